package auth

import "errors"

var (
	ErrMalformed        = errors.New("token is malformed")
	ErrSignatureInvalid = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("token claims are invalid")
)

// TokenError carries one of the sentinel kinds above. Detail, when set,
// replaces the kind's text in Error().
type TokenError struct {
	Kind   error
	Detail string
}

func (e *TokenError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return e.Detail
}

func (e *TokenError) Unwrap() error { return e.Kind }

// UserMessage is the caller-facing text for a Verify failure.
func UserMessage(err error) string {
	if errors.Is(err, ErrExpired) {
		return "Token has expired"
	}
	return "Invalid token: " + err.Error()
}
