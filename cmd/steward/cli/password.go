package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/odyssey-erp/steward/internal/session"
)

// ErrEmptyPassword rejects a blank hash-password input.
var ErrEmptyPassword = errors.New("cli: password must not be empty")

// HashPassword writes the bcrypt hash of password to out, for seeding
// Identity.PasswordHash when AUTH_VERIFIER=bcrypt.
func HashPassword(out io.Writer, password string) error {
	password = strings.TrimRight(password, "\r\n")
	if password == "" {
		return ErrEmptyPassword
	}
	hash, err := session.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}
