package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth wraps every failure reported by an identity provider.
	ErrAuth        = errors.New("authentication failed")
	ErrNotSignedIn = errors.New("not signed in")

	errTokenExpired = errors.New("id token expired")
)

func authError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrAuth, err)
}

func IsErrAuth(err error) bool        { return errors.Is(err, ErrAuth) }
func IsErrNotSignedIn(err error) bool { return errors.Is(err, ErrNotSignedIn) }
