package membership

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost applies to newly hashed passwords only; existing hashes
// verify at whatever cost they were created with.
const bcryptCost = 10

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrValidationFailed
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext password
// matches the hashed password. A malformed hash yields the same
// ErrInvalidCredentials as a mismatch so callers have a single boolean
// decision point.
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// IsPasswordHash reports whether the value already looks like a bcrypt
// hash, so promotion never double-hashes a pending credential.
func IsPasswordHash(value string) bool {
	_, err := bcrypt.Cost([]byte(value))
	return err == nil
}

// RandomPasswordHash is a temporary password for externally-verified
// accounts that have not set a credential yet.
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}
