package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/agenthands/topoclean/internal/config"
	"github.com/agenthands/topoclean/internal/server"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.toml"
	}
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("No config at %s, using defaults", path)
		cfg, err = config.Default(), nil
	}
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatal(err)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer srv.Close(context.Background())
	r := srv.SetupRouter()

	log.Printf("Starting server on port %s (store: %s)", cfg.Server.Port, cfg.Server.Store)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal(err)
	}
}
