package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxEmail
)

// WithPrincipal stores an authenticated identity in ctx.
func WithPrincipal(ctx context.Context, userID, email string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxEmail, email)
	return ctx
}

func UserID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxUserID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("user_id not in context")
}

func Email(ctx context.Context) (string, error) {
	v := ctx.Value(ctxEmail)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("email not in context")
}
