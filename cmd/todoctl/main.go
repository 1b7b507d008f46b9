package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/Dan9191/todo-service/internal/auth"
	"github.com/Dan9191/todo-service/internal/config"
	"github.com/Dan9191/todo-service/internal/ctl"
	"github.com/Dan9191/todo-service/internal/logging"
	"github.com/Dan9191/todo-service/internal/repository"
	"github.com/Dan9191/todo-service/internal/service"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	// service logs go to stderr so exports on stdout stay clean
	logger := logging.NewWithOutput(cfg.LogLevel, os.Stderr)

	ctx := context.Background()
	dialect := repository.Dialect(cfg.DBDriver)
	db, err := repository.Open(ctx, dialect, cfg.DBConn)
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		return 1
	}
	defer db.Close()

	store := service.NewStore(repository.NewRepository(db, dialect))
	identity := service.NewIdentityService(store, auth.NewTokenAuthenticator(cfg.SecretKey), logger)
	todos := service.NewTodoService(store, logger, cfg.ItemsPerPage)

	app := ctl.NewApp(db, dialect, identity, todos, os.Stdin, os.Stdout)
	if err := app.Run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintf(os.Stderr, "todoctl: %v\n", err)
		return 1
	}
	return 0
}
