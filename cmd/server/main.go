package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fsms/backend/internal/auth"
	"fsms/backend/internal/database"
	"fsms/backend/internal/filestorage"
	"fsms/backend/internal/handlers"
	"fsms/backend/internal/notifications"
	"fsms/backend/internal/router"
	"fsms/backend/internal/seeders"
	"fsms/backend/internal/utils"
	"fsms/backend/pkg/config"
	phxlog "fsms/backend/pkg/log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	config.LoadConfig()
	phxlog.Init(config.Cfg.LogLevel, config.Cfg.Environment)
	defer phxlog.Sync()
	log := phxlog.L

	if config.Cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := utils.InitEncryptionKey(); err != nil {
		log.Fatal("Failed to initialize encryption key", zap.Error(err))
	}
	if err := auth.InitializeJWT(); err != nil {
		log.Fatal("Failed to initialize JWT", zap.Error(err))
	}

	if err := database.ConnectDB(config.Cfg.DSN(), config.Cfg.Environment == "development"); err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.MigrateDB(config.Cfg.MigrationsPath); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}
	db := database.GetDB()
	if err := seeders.SeedInitialData(db); err != nil {
		log.Fatal("Failed to seed initial data", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	filestorage.InitFileStorage(ctx)

	notifier := notifications.NewService(db, notifications.NewEmailNotifier(ctx, db), nil)
	handlers.ConfigureNotifications(notifier, notifier)

	srv := &http.Server{
		Addr:              ":" + config.Cfg.Port,
		Handler:           router.SetupRouter(log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting server", zap.String("addr", srv.Addr), zap.String("version", config.Cfg.AppVersion))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited")
}
