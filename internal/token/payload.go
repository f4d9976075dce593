package token

// Kind names what a token grants. It is signed into every token.
type Kind string

const (
	KindAuthCode   Kind = "AUTH_CODE"
	KindLoginToken Kind = "LOGIN_TOKEN"
)

// Payload is the kind-specific content of a token.
type Payload interface {
	Kind() Kind
}

// AuthCode is issued when a user consents to an app. It carries only the
// relation handle, never the user or app id.
type AuthCode struct {
	UserAppID string
}

func (AuthCode) Kind() Kind { return KindAuthCode }

// LoginToken identifies a signed-in user.
type LoginToken struct {
	UserID string
}

func (LoginToken) Kind() Kind { return KindLoginToken }
