package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/pfrederiksen/botgc-results/internal/cli"
	"github.com/pfrederiksen/botgc-results/internal/logger"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Default().Warn("Failed to load .env", logger.Fields{"error": err.Error()})
	}
	cli.Execute()
}
