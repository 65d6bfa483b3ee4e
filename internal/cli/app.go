// Package cli implements the interactive front end: login screen, main menu,
// and the prompts for writing and reading encrypted messages. It is a thin
// I/O layer; all rules live in the services it calls.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/sigilosec/sigilo/internal/config"
	"github.com/sigilosec/sigilo/internal/logging"
	"github.com/sigilosec/sigilo/internal/repositories/repomanager"
	"github.com/sigilosec/sigilo/internal/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	userService    *services.UserService
	messageService *services.MessageService
	currentUser    string
	reader         *bufio.Reader
	out            io.Writer
}

// NewApp opens the database, applies migrations, optionally seeds demo users,
// and wires the services behind the menu.
func NewApp(cfg *config.Config, logger logging.Logger) (*App, error) {
	ctx := context.Background()

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	us := services.NewUserService(db, repos, logger)
	ms := services.NewMessageService(db, repos, logger, us)

	if cfg.SeedDemoUsers {
		if err := us.SeedDemoUsers(ctx); err != nil {
			return nil, err
		}
	}

	return &App{
		config:         cfg,
		logger:         logger,
		db:             db,
		userService:    us,
		messageService: ms,
		reader:         bufio.NewReader(os.Stdin),
		out:            os.Stdout,
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.currentUser != ""
}

// Run drives the login screen and then the main menu until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	fmt.Fprintln(a.out, "=== sigilo: end-to-end encrypted messages ===")

	for {
		if !a.isLoggedIn() {
			if !a.login(ctx) {
				return
			}
		}
		if !runMenu(ctx, a, a.reader, a.out) {
			return
		}
	}
}

// Close releases the database connection.
func (a *App) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

// login prompts for a handle until authentication succeeds or the user gives
// up. Returns false when the user wants to quit.
func (a *App) login(ctx context.Context) bool {
	for {
		handle, err := GetSimpleText(a.reader, "Enter your @handle (or 'exit')", a.out)
		if err != nil {
			return false
		}
		if handle == "exit" || handle == "quit" {
			return false
		}

		if err := a.userService.Authenticate(ctx, handle); err != nil {
			if services.IsNotFound(err) {
				fmt.Fprintf(a.out, "Unknown handle %s.\n", handle)
			} else {
				fmt.Fprintf(a.out, "Login failed: %v\n", err)
			}
			continue
		}

		a.currentUser = handle
		n, err := a.messageService.UnreadCount(ctx, handle)
		if err == nil && n > 0 {
			fmt.Fprintf(a.out, "Welcome, %s! You have %d unread message(s).\n", handle, n)
		} else {
			fmt.Fprintf(a.out, "Welcome, %s!\n", handle)
		}
		return true
	}
}

// logout clears the current session.
func (a *App) logout() {
	a.logger.Info(context.Background(), "user logged out", "handle", a.currentUser)
	a.currentUser = ""
}
