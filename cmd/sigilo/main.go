package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/sigilosec/sigilo/internal/cli"
	"github.com/sigilosec/sigilo/internal/config"
	"github.com/sigilosec/sigilo/internal/logging"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	// The menu owns stdout; structured logs go to stderr.
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	app, err := cli.NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)
}
