package config

import (
	"os"
	"strconv"
	"strings"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

type Config struct {
	ProjectID                    string
	Port                         string
	AllowedOrigins               []string
	StorageBucket                string
	SignedURLServiceAccountEmail string

	StoreBackend      string
	FirestoreDatabase string
	CloudLogging      bool
	LogID             string
	Debug             bool
}

func Load() Config {
	projectID := getenv("FIREBASE_PROJECT_ID", "")
	if projectID == "" {
		projectID = getenv("GOOGLE_CLOUD_PROJECT", "")
	}

	port := getenv("PORT", "8080")
	origins := getenv("ALLOWED_ORIGINS", "http://localhost:3000")
	storageBucket := getenv("FIREBASE_STORAGE_BUCKET", "")
	signedURLServiceAccountEmail := getenv("SIGNED_URL_SERVICE_ACCOUNT_EMAIL", "")

	backend := strings.ToLower(getenv("STORE_BACKEND", BackendFirestore))
	if backend != BackendMemory {
		backend = BackendFirestore
	}

	return Config{
		ProjectID:                    projectID,
		Port:                         port,
		AllowedOrigins:               splitList(origins),
		StorageBucket:                storageBucket,
		SignedURLServiceAccountEmail: signedURLServiceAccountEmail,

		StoreBackend:      backend,
		FirestoreDatabase: getenv("FIRESTORE_DATABASE", ""),
		CloudLogging:      getbool("GCP_LOGGING"),
		LogID:             getenv("LOG_ID", "firelog-api"),
		Debug:             getbool("DEBUG"),
	}
}

func splitList(s string) []string {
	out := []string{}
	for _, o := range strings.Split(s, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getbool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}
