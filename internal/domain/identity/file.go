package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SaveUser persists u to path, readable by the owner only.
func SaveUser(path string, u *User) error {
	if u == nil {
		return ClearUser(path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	b, err := yaml.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// LoadUser reads the user saved at path. A missing file means signed out
// and yields (nil, nil).
func LoadUser(path string) (*User, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var u User
	if err := yaml.Unmarshal(b, &u); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", path, err)
	}
	if u.UID == "" {
		return nil, nil
	}
	return &u, nil
}

func ClearUser(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
