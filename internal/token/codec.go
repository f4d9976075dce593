package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the decoded, verified content of a token.
type Claims struct {
	ID        string
	Kind      Kind
	IssuedAt  time.Time
	ExpiresAt time.Time
	Payload   Payload
}

// Issued is a freshly signed token.
type Issued struct {
	Token  string
	Claims *Claims
}

// wireClaims is the JWT body. Per-kind fields are omitted when unused.
type wireClaims struct {
	Type      Kind   `json:"type"`
	UserAppID string `json:"user_app_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies expiring HS256 tokens. It holds no state beyond
// the key and clock, so one Codec is safe for concurrent use.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock replaces the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec creates a codec signing with secret.
func NewCodec(secret string, opts ...Option) *Codec {
	c := &Codec{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue signs payload with a lifetime of ttl.
func (c *Codec) Issue(payload Payload, ttl time.Duration) (*Issued, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrTokenGeneration)
	}

	// JWT dates carry whole seconds
	issuedAt := c.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)

	wc := wireClaims{
		Type: payload.Kind(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	switch p := payload.(type) {
	case AuthCode:
		wc.UserAppID = p.UserAppID
		wc.Subject = p.UserAppID
	case LoginToken:
		wc.UserID = p.UserID
		wc.Subject = p.UserID
	default:
		return nil, fmt.Errorf("%w: unsupported payload %T", ErrTokenGeneration, payload)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wc).SignedString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	return &Issued{
		Token: signed,
		Claims: &Claims{
			ID:        wc.ID,
			Kind:      wc.Type,
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
			Payload:   payload,
		},
	}, nil
}

// Verify checks signature and expiry, then requires the signed kind to equal expected.
func (c *Codec) Verify(tokenString string, expected Kind) (*Claims, error) {
	var wc wireClaims
	_, err := jwt.ParseWithClaims(
		tokenString,
		&wc,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if wc.Type != expected {
		return nil, ErrKindMismatch
	}

	var payload Payload
	switch wc.Type {
	case KindAuthCode:
		if wc.UserAppID == "" {
			return nil, fmt.Errorf("%w: missing user_app_id", ErrInvalidToken)
		}
		payload = AuthCode{UserAppID: wc.UserAppID}
	case KindLoginToken:
		if wc.UserID == "" {
			return nil, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
		}
		payload = LoginToken{UserID: wc.UserID}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidToken, wc.Type)
	}

	claims := &Claims{
		ID:      wc.ID,
		Kind:    wc.Type,
		Payload: payload,
	}
	if wc.IssuedAt != nil {
		claims.IssuedAt = wc.IssuedAt.Time
	}
	if wc.ExpiresAt != nil {
		claims.ExpiresAt = wc.ExpiresAt.Time
	}
	return claims, nil
}

// VerifyAuthCode verifies an AUTH_CODE and returns its payload.
func (c *Codec) VerifyAuthCode(tokenString string) (AuthCode, *Claims, error) {
	claims, err := c.Verify(tokenString, KindAuthCode)
	if err != nil {
		return AuthCode{}, nil, err
	}
	return claims.Payload.(AuthCode), claims, nil
}

// VerifyLoginToken verifies a LOGIN_TOKEN and returns its payload.
func (c *Codec) VerifyLoginToken(tokenString string) (LoginToken, *Claims, error) {
	claims, err := c.Verify(tokenString, KindLoginToken)
	if err != nil {
		return LoginToken{}, nil, err
	}
	return claims.Payload.(LoginToken), claims, nil
}
