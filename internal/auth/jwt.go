package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/zoheir79/whispey-sub004/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Codec signs and verifies HS256 identity tokens.
// It is pure over its inputs: secret, token and the supplied clock.
type Codec struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	leeway   time.Duration
}

func NewCodec(cfg config.AuthConfig) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	return &Codec{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      ttl,
		leeway:   cfg.Leeway,
	}, nil
}

// DefaultTTL is the lifetime applied when Issue gets ttl <= 0.
func (c *Codec) DefaultTTL() time.Duration { return c.ttl }

/* ===================== ISSUE ===================== */

// Issue signs a token for id that expires at now+ttl.
func (c *Codec) Issue(now time.Time, id Identity, ttl time.Duration) (string, Claims, error) {
	if strings.TrimSpace(id.UserID) == "" {
		return "", Claims{}, errors.New("user_id is required")
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    c.issuer,
			Audience:  audienceOrNil(c.audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		UserID:    id.UserID,
		Email:     id.Email,
		AgentInfo: id.AgentInfo,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", Claims{}, err
	}
	return signed, claims, nil
}

/* ===================== VERIFY ===================== */

// Verify checks the signature first, then the registered claims, then
// re-checks expiry against now without leeway.
func (c *Codec) Verify(tokenString string, now time.Time) (Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return Claims{}, &TokenError{Kind: ErrMalformed, Detail: "token is malformed: empty token"}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(c.leeway),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	if c.audience != "" {
		opts = append(opts, jwt.WithAudience(c.audience))
	}

	var claims Claims
	_, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, classify(err)
	}

	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(now.Truncate(time.Second)) {
		return Claims{}, &TokenError{Kind: ErrExpired}
	}

	claims.normalize()
	if claims.UserID == "" {
		return Claims{}, &TokenError{Kind: ErrInvalidClaims, Detail: "token claims are invalid: user_id missing"}
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &TokenError{Kind: ErrExpired}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return &TokenError{Kind: ErrSignatureInvalid, Detail: err.Error()}
	case errors.Is(err, jwt.ErrTokenMalformed):
		return &TokenError{Kind: ErrMalformed, Detail: err.Error()}
	default:
		return &TokenError{Kind: ErrInvalidClaims, Detail: err.Error()}
	}
}

func audienceOrNil(aud string) jwt.ClaimStrings {
	if aud == "" {
		return nil
	}
	return jwt.ClaimStrings{aud}
}
