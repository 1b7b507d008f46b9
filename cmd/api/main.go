package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/todo-service/internal/auth"
	"github.com/Dan9191/todo-service/internal/config"
	"github.com/Dan9191/todo-service/internal/handler"
	"github.com/Dan9191/todo-service/internal/logging"
	"github.com/Dan9191/todo-service/internal/maintenance"
	"github.com/Dan9191/todo-service/internal/repository"
	"github.com/Dan9191/todo-service/internal/service"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize logger
	logger := logging.New(os.Getenv("LOG_LEVEL"))

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger = logging.New(cfg.LogLevel)

	var mail *logging.MailHook
	if cfg.MailEnabled() {
		mail = logging.NewMailHook(cfg, logging.New(cfg.LogLevel))
		logger.AddHook(mail)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	dialect := repository.Dialect(cfg.DBDriver)
	db, err := repository.Open(ctx, dialect, cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := repository.Migrate(ctx, db, dialect); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize layers
	store := service.NewStore(repository.NewRepository(db, dialect))
	identity := service.NewIdentityService(store, auth.NewTokenAuthenticator(cfg.SecretKey), logger)
	todos := service.NewTodoService(store, logger, cfg.ItemsPerPage)
	sessions := auth.NewSessionAuthenticator(cfg.SecretKey, cfg.SessionBlockKey, cfg.CookieSecure)

	api, err := handler.NewAPIHandler(identity, todos, logger, cfg.APIBaseURL)
	if err != nil {
		logger.Fatalf("Failed to configure API: %v", err)
	}
	web := handler.NewWebHandler(identity, todos, sessions, logger)

	scheduler, err := maintenance.New(db, cfg.MaintenanceCron, logger)
	if err != nil {
		logger.Fatalf("Failed to configure maintenance: %v", err)
	}
	scheduler.Start()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.NewRouter(api, web, sessions, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Errorf("Server failed: %v", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
	scheduler.Stop(shutdownCtx)
	if mail != nil {
		mail.Close()
	}
	logger.Info("Server stopped")
}
