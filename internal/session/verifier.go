package session

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/steward/internal/users"
)

// CredentialVerifier decides whether password unlocks identity.
type CredentialVerifier interface {
	Verify(ctx context.Context, identity users.Identity, password string) bool
}

// DefaultMinPasswordLength is the placeholder acceptance threshold.
const DefaultMinPasswordLength = 3

// PlaceholderVerifier stands in for real credential checks: it accepts an
// exact temporary-password match, or any password of at least MinLength
// characters. It does not consult stored hashes.
type PlaceholderVerifier struct {
	MinLength int
}

// Verify implements CredentialVerifier.
func (v PlaceholderVerifier) Verify(_ context.Context, identity users.Identity, password string) bool {
	min := v.MinLength
	if min <= 0 {
		min = DefaultMinPasswordLength
	}
	if identity.HasTemporaryPassword() && password == identity.TemporaryPassword {
		return true
	}
	return len([]rune(password)) >= min
}

// BcryptVerifier accepts an exact temporary-password match, otherwise checks
// password against the identity's bcrypt hash. Identities with neither are refused.
type BcryptVerifier struct{}

// Verify implements CredentialVerifier.
func (BcryptVerifier) Verify(_ context.Context, identity users.Identity, password string) bool {
	if identity.HasTemporaryPassword() && password == identity.TemporaryPassword {
		return true
	}
	if identity.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)) == nil
}

// HashPassword returns a bcrypt hash suitable for Identity.PasswordHash.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

var (
	_ CredentialVerifier = PlaceholderVerifier{}
	_ CredentialVerifier = BcryptVerifier{}
)
