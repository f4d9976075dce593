package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-authgate/appgrant/internal/core"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-with-enough-entropy-123456"

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestCodec() (*Codec, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewCodec(testSecret, WithClock(clock.Now)), clock
}

func TestIssueAndVerifyAuthCode(t *testing.T) {
	codec, _ := newTestCodec()

	issued, err := codec.Issue(AuthCode{UserAppID: "handle-123"}, 5*time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.Equal(t, KindAuthCode, issued.Claims.Kind)
	assert.Equal(t, 5*time.Minute, issued.Claims.ExpiresAt.Sub(issued.Claims.IssuedAt))
	assert.NotEmpty(t, issued.Claims.ID)

	payload, claims, err := codec.VerifyAuthCode(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "handle-123", payload.UserAppID)
	assert.Equal(t, issued.Claims.ID, claims.ID)
	assert.True(t, claims.IssuedAt.Equal(issued.Claims.IssuedAt))
	assert.True(t, claims.ExpiresAt.Equal(issued.Claims.ExpiresAt))
}

func TestIssueAndVerifyLoginToken(t *testing.T) {
	codec, _ := newTestCodec()

	issued, err := codec.Issue(LoginToken{UserID: "user-1"}, 720*time.Hour)
	require.NoError(t, err)

	payload, _, err := codec.VerifyLoginToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", payload.UserID)
}

func TestAuthCodeExpiryWindow(t *testing.T) {
	codec, clock := newTestCodec()

	issued, err := codec.Issue(AuthCode{UserAppID: "handle-123"}, 300*time.Second)
	require.NoError(t, err)

	// Verifies immediately
	_, err = codec.Verify(issued.Token, KindAuthCode)
	require.NoError(t, err)

	// Still valid just inside the window
	clock.Advance(299 * time.Second)
	_, err = codec.Verify(issued.Token, KindAuthCode)
	require.NoError(t, err)

	// Expired after the window
	clock.Advance(2 * time.Second)
	_, err = codec.Verify(issued.Token, KindAuthCode)
	require.ErrorIs(t, err, ErrExpiredToken)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestVerifyKindMismatch(t *testing.T) {
	codec, _ := newTestCodec()

	issued, err := codec.Issue(LoginToken{UserID: "user-1"}, time.Hour)
	require.NoError(t, err)

	_, err = codec.Verify(issued.Token, KindAuthCode)
	require.ErrorIs(t, err, ErrKindMismatch)
	assert.ErrorIs(t, err, core.ErrInvalidToken)

	_, _, err = codec.VerifyAuthCode(issued.Token)
	assert.ErrorIs(t, err, ErrKindMismatch)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	codec, clock := newTestCodec()

	issued, err := codec.Issue(AuthCode{UserAppID: "handle-123"}, time.Hour)
	require.NoError(t, err)

	otherCodec := NewCodec("a-different-secret", WithClock(clock.Now))
	foreign, err := otherCodec.Issue(AuthCode{UserAppID: "handle-123"}, time.Hour)
	require.NoError(t, err)

	parts := strings.Split(issued.Token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"type":        string(KindAuthCode),
		"user_app_id": "handle-123",
		"iat":         clock.Now().Unix(),
		"exp":         clock.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"type":        string(KindAuthCode),
		"user_app_id": "handle-123",
		"iat":         clock.Now().Unix(),
		"exp":         clock.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"type":        string(KindAuthCode),
		"user_app_id": "handle-123",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	missingHandle, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"type": string(KindAuthCode),
		"iat":  clock.Now().Unix(),
		"exp":  clock.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-token"},
		{name: "tampered signature", token: tampered},
		{name: "wrong secret", token: foreign.Token},
		{name: "alg none", token: noneToken},
		{name: "unexpected algorithm", token: hs512},
		{name: "missing expiry", token: noExpiry},
		{name: "missing handle", token: missingHandle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Verify(tt.token, KindAuthCode)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
			assert.Equal(t, core.ErrInvalidToken, core.KindOf(err))
		})
	}
}

func TestIssueRejectsNilPayload(t *testing.T) {
	codec, _ := newTestCodec()

	_, err := codec.Issue(nil, time.Minute)
	require.ErrorIs(t, err, ErrTokenGeneration)
}

func TestKindIsSigned(t *testing.T) {
	codec, _ := newTestCodec()

	issued, err := codec.Issue(LoginToken{UserID: "user-1"}, time.Hour)
	require.NoError(t, err)

	// Rewriting the body to claim another kind breaks the signature
	parts := strings.Split(issued.Token, ".")
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"type":        string(KindAuthCode),
		"user_app_id": "user-1",
	}).SigningString()
	require.NoError(t, err)
	forgedParts := strings.Split(forged, ".")

	_, err = codec.Verify(parts[0]+"."+forgedParts[1]+"."+parts[2], KindAuthCode)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
