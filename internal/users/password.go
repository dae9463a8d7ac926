package users

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Length limits for new and changed passwords. MaxPasswordLen is in bytes,
// the most bcrypt accepts.
const (
	MinPasswordLen = 6
	MaxPasswordLen = 72
)

func HashPassword(plaintext string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("hashing password: %w", ErrInvalidInput)
	}
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(h), nil
}

// VerifyPassword compares in constant time via bcrypt.
func VerifyPassword(u User, plaintext string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plaintext)) == nil
}
