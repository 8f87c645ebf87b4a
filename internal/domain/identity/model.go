package identity

import (
	"context"
	"time"
)

// User is the signed-in principal. IDToken is the Firebase ID token sent as
// a bearer token to the API.
type User struct {
	UID          string    `yaml:"uid" json:"uid"`
	Email        string    `yaml:"email,omitempty" json:"email,omitempty"`
	DisplayName  string    `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	IDToken      string    `yaml:"id_token,omitempty" json:"-"`
	RefreshToken string    `yaml:"refresh_token,omitempty" json:"-"`
	ExpiresAt    time.Time `yaml:"expires_at,omitempty" json:"-"`
}

// Expired reports whether the ID token is expired or expires within a minute
// of now.
func (u *User) Expired(now time.Time) bool {
	if u.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(time.Minute).Before(u.ExpiresAt)
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// Provider performs the interactive sign-in and sign-out.
type Provider interface {
	SignIn(ctx context.Context) (*User, error)
	SignOut(ctx context.Context, u *User) error
}

// Refresher is implemented by providers able to renew an expired ID token.
type Refresher interface {
	Refresh(ctx context.Context, u *User) (*User, error)
}
