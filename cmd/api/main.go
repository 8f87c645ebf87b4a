package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"firelog/backend/internal/config"
	"firelog/backend/internal/domain/export"
	"firelog/backend/internal/domain/tasklog"
	"firelog/backend/internal/firebase"
	apihttp "firelog/backend/internal/http"
	"firelog/backend/internal/logger"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	lg, closeLog, err := logger.New(ctx, logger.Options{
		ProjectID:    cfg.ProjectID,
		LogID:        cfg.LogID,
		CloudLogging: cfg.CloudLogging,
		Debug:        cfg.Debug,
	})
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer closeLog()

	clients, err := firebase.NewClients(ctx, cfg)
	if err != nil {
		log.Fatalf("firebase init failed: %v", err)
	}
	defer clients.Close()

	var store tasklog.Store
	switch cfg.StoreBackend {
	case config.BackendMemory:
		store = tasklog.NewMemoryStore()
		log.Println("STORE_BACKEND=memory, data is not persisted")
	default:
		store = tasklog.NewRepo(clients.Firestore.Client)
	}
	tasks := tasklog.NewService(store, lg)

	var (
		sink   export.Sink
		signer export.Signer
	)
	if clients.Storage != nil {
		sink = export.NewGCSSink(clients.Storage, cfg.StorageBucket)
		if clients.IAM != nil {
			signer = export.NewIAMSigner(clients.IAM, cfg.StorageBucket, cfg.SignedURLServiceAccountEmail)
		}
	} else {
		log.Println("FIREBASE_STORAGE_BUCKET not set, exports disabled")
	}
	exports := export.NewService(tasks, sink, signer, lg)

	router := apihttp.NewRouter(apihttp.RouterDeps{
		Cfg:      cfg,
		Verifier: clients.Auth,
		Tasks:    tasks,
		Exports:  exports,
		Log:      lg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// graceful shutdown
	go func() {
		log.Printf("API listening on :%s (project=%s, store=%s)", cfg.Port, cfg.ProjectID, cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Println("shutting down...")
	_ = srv.Shutdown(ctxShutdown)
}
