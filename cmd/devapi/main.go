package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/fanpulse/internal/devapi"
	"github.com/dmitrijs2005/fanpulse/internal/logging"
	"github.com/joho/godotenv"
)

func main() {

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}

	cfg, err := devapi.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	app := devapi.NewApp(cfg, logger)

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("%v", err)
	}

}
