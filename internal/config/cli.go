package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const appName = "firelog"

// CLI is the command line client configuration, kept in
// ~/.config/firelog/config.yaml. Environment variables override the file.
type CLI struct {
	APIURL         string `yaml:"api_url"`
	FirebaseAPIKey string `yaml:"firebase_api_key"`
	ClientSecrets  string `yaml:"client_secrets"`
	SessionFile    string `yaml:"session_file"`
	CacheDir       string `yaml:"cache_dir"`
}

// Dir returns the firelog config directory.
func Dir() (string, error) {
	if d := os.Getenv("FIRELOG_CONFIG_DIR"); d != "" {
		return d, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// LoadCLI reads path, or the default location when path is empty. A missing
// file is not an error.
func LoadCLI(path string) (CLI, error) {
	dir, err := Dir()
	if err != nil {
		return CLI{}, err
	}
	if path == "" {
		path = filepath.Join(dir, "config.yaml")
	}

	var c CLI
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return CLI{}, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return CLI{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	c.APIURL = getenv("FIRELOG_API_URL", c.APIURL)
	c.FirebaseAPIKey = getenv("FIREBASE_API_KEY", c.FirebaseAPIKey)
	c.ClientSecrets = getenv("FIRELOG_CLIENT_SECRETS", c.ClientSecrets)

	if c.APIURL == "" {
		c.APIURL = "http://localhost:8080"
	}
	if c.ClientSecrets == "" {
		c.ClientSecrets = filepath.Join(dir, "credentials.json")
	}
	if c.SessionFile == "" {
		c.SessionFile = filepath.Join(dir, "session.yaml")
	}
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(dir, "cache")
	}
	return c, nil
}

// CachePath returns the offline cache file for a user.
func (c CLI) CachePath(uid string) string {
	return filepath.Join(c.CacheDir, uid+".yaml")
}
