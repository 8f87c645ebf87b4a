package firebase

import (
	"context"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"firelog/backend/internal/config"
)

// clientOptions prefers FIREBASE_SERVICE_ACCOUNT_JSON (raw json content),
// then GOOGLE_APPLICATION_CREDENTIALS (a file path). With neither set the
// clients fall back to Application Default Credentials.
func clientOptions() []option.ClientOption {
	opts := []option.ClientOption{}
	if json := getenv("FIREBASE_SERVICE_ACCOUNT_JSON", ""); json != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(json)))
	} else if file := getenv("GOOGLE_APPLICATION_CREDENTIALS", ""); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}
	return opts
}

func NewApp(ctx context.Context, cfg config.Config) (*firebase.App, error) {
	appCfg := &firebase.Config{}
	if cfg.ProjectID != "" {
		appCfg.ProjectID = cfg.ProjectID
	}
	if cfg.StorageBucket != "" {
		appCfg.StorageBucket = cfg.StorageBucket
	}
	return firebase.NewApp(ctx, appCfg, clientOptions()...)
}

func NewAuthClient(ctx context.Context, app *firebase.App) (*auth.Client, error) {
	return app.Auth(ctx)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
