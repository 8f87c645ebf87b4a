package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"

	"firelog/backend/internal/config"
)

type Firestore struct {
	Client *firestore.Client
}

// NewFirestore opens the default database through the app, or the database
// named by FIRESTORE_DATABASE.
func NewFirestore(ctx context.Context, app *firebase.App, cfg config.Config) (*Firestore, error) {
	if cfg.FirestoreDatabase == "" || cfg.FirestoreDatabase == firestore.DefaultDatabaseID {
		c, err := app.Firestore(ctx)
		if err != nil {
			return nil, err
		}
		return &Firestore{Client: c}, nil
	}

	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("FIRESTORE_DATABASE requires FIREBASE_PROJECT_ID or GOOGLE_CLOUD_PROJECT")
	}
	c, err := firestore.NewClientWithDatabase(ctx, cfg.ProjectID, cfg.FirestoreDatabase, clientOptions()...)
	if err != nil {
		return nil, err
	}
	return &Firestore{Client: c}, nil
}

func (f *Firestore) Close() {
	if f == nil || f.Client == nil {
		return
	}
	_ = f.Client.Close()
}
