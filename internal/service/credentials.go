package service

import (
	"fmt"
	"strings"

	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/models"
)

// checkCredentials validates a username and password before anything is
// hashed or written. An empty password passes when it is optional.
func checkCredentials(username, password string, passwordOptional bool) error {
	if strings.TrimSpace(username) == "" || (password == "" && !passwordOptional) {
		return fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	if len(username) > models.UsernameMaxLen {
		return fmt.Errorf("%w: username must be at most %d characters", ErrValidation, models.UsernameMaxLen)
	}
	if len(password) > hash.MaxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, hash.MaxPasswordBytes)
	}
	return nil
}
