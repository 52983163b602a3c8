package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"vote_zone/internal/api"
	"vote_zone/internal/app/service"
	"vote_zone/internal/app/worker"
	"vote_zone/internal/common/security"
	"vote_zone/internal/domain/repository"
	"vote_zone/internal/platform/config"
	"vote_zone/internal/platform/database"
	"vote_zone/internal/platform/queue"
	"vote_zone/internal/platform/storage"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// 1. Configuration
	cfg := config.Load()

	// 2. JWT
	security.InitJWT(cfg.JWTKey, cfg.JWTExp)

	// 3. Database (schema is created on connect)
	database.Connect()
	defer database.Close()

	// 4. Redis
	queue.ConnectRedis()
	defer queue.CloseRedis()
	cleanupQueue := queue.NewFileCleanupQueue(queue.RDB, cfg.FileCleanupQueueName)

	// 5. Object storage is optional; without it file URLs answer 503 and cleanup stays queued.
	var store service.ObjectStore
	var gcs *storage.GCSStore
	if cfg.GCSBucket != "" {
		var err error
		gcs, err = storage.NewGCSStore(context.Background(), cfg.GCSBucket, cfg.GCSCredentialsFile, cfg.SignedURLTTL)
		if err != nil {
			slog.Error("could not initialize object storage", "bucket", cfg.GCSBucket, "error", err)
			os.Exit(1)
		}
		defer gcs.Close()
		store = gcs
		slog.Info("object storage ready", "bucket", cfg.GCSBucket)
	} else {
		slog.Warn("GCS_BUCKET not set, file uploads and downloads are disabled")
	}

	// 6. Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)
	groupRepo := repository.NewPgSubmissionGroupRepository(database.DB)
	voteRepo := repository.NewPgVoteRepository(database.DB)

	// 7. Services
	authService := service.NewAuthService(userRepo)
	fileService := service.NewFileService(store, submissionRepo, cfg.MaxUploadBytes)
	submissionService := service.NewSubmissionService(submissionRepo, groupRepo, fileService, cleanupQueue, database.DB)
	voteService := service.NewVoteService(voteRepo, submissionRepo, database.DB)
	groupService := service.NewSubmissionGroupService(groupRepo, submissionRepo, database.DB)

	// 8. File cleanup worker
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	workerDone := make(chan struct{})
	if gcs != nil {
		cleanupWorker := worker.NewFileCleanupWorker(cleanupQueue, gcs, submissionRepo, cfg.FileCleanupMaxAttempts)
		go func() {
			defer close(workerDone)
			cleanupWorker.Start(workerCtx)
		}()
	} else {
		close(workerDone)
	}

	// 9. Router & HTTP server
	router := api.NewRouter(authService, submissionService, voteService, groupService, fileService)
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("could not listen", "port", cfg.APIPort, "error", err)
			os.Exit(1)
		}
	}()

	<-stop

	slog.Info("shutting down server")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		slog.Warn("file cleanup worker did not stop before shutdown deadline")
	}
	slog.Info("server and worker stopped")
}
