package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/trusteelab/vpass/internal/verify/app"
)

func main() {
	// Best effort: a missing .env file is fine, the environment wins.
	_ = godotenv.Load()

	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
