package firebase

import (
	"context"
	"fmt"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"

	"firelog/backend/internal/config"
)

// Clients bundles the Firebase and GCP clients used by the API server.
// Storage and IAM are only created when an export bucket is configured.
type Clients struct {
	App       *firebase.App
	Auth      *auth.Client
	Firestore *Firestore
	Storage   *storage.Client
	IAM       *credentials.IamCredentialsClient

	ProjectID string
	Bucket    string
}

func NewClients(ctx context.Context, cfg config.Config) (*Clients, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("missing FIREBASE_PROJECT_ID or GOOGLE_CLOUD_PROJECT")
	}

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	authClient, err := NewAuthClient(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}

	c := &Clients{App: app, Auth: authClient, ProjectID: cfg.ProjectID, Bucket: cfg.StorageBucket}

	if cfg.StoreBackend == config.BackendFirestore {
		if c.Firestore, err = NewFirestore(ctx, app, cfg); err != nil {
			return nil, fmt.Errorf("firestore: %w", err)
		}
	}

	if cfg.StorageBucket != "" {
		if c.Storage, err = storage.NewClient(ctx, clientOptions()...); err != nil {
			c.Close()
			return nil, fmt.Errorf("storage: %w", err)
		}
		if cfg.SignedURLServiceAccountEmail != "" {
			// IAM client is optional; only needed for signed URLs.
			c.IAM, _ = credentials.NewIamCredentialsClient(ctx, clientOptions()...)
		}
	}
	return c, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	c.Firestore.Close()
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.IAM != nil {
		_ = c.IAM.Close()
	}
}
