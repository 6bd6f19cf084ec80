package main

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"place-std/internal/logger"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	if err := newRootCmd().Execute(); err != nil {
		l.Error("command_error", "err", err)
		os.Exit(1)
	}
}
