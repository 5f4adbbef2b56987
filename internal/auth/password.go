package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost of 10 keeps login under ~100ms on small nodes
const bcryptCost = 10

// MinPasswordLength is enforced on registration and password change.
const MinPasswordLength = 6

var ErrWeakPassword = errors.New("password must be at least 6 characters")

// HashPassword generates a bcrypt hash of the password
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks if the provided password matches the hash. An empty
// or malformed hash never matches.
func VerifyPassword(hashedPassword, password string) bool {
	if hashedPassword == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// DummyHash is a fixed bcrypt hash at the login cost. Comparing against it
// when no account matches keeps unknown logins as slow as wrong passwords.
func DummyHash() string {
	dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("farmfi-no-such-account"), bcryptCost)
		if err == nil {
			dummyHash = string(hash)
		}
	})
	return dummyHash
}
