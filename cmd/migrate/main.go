package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"gowatch/config"
	"gowatch/internal/pkg/database"
	"gowatch/internal/pkg/logger"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️ Warning: .env file not found. Loading configs from system environment only: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	flag.Parse()

	logr := logger.NewLogger(cfg.LogLevel)

	// Connect to the database
	db, err := database.Open(cfg.DatabaseURL, logr)
	if err != nil {
		log.Fatalf("goose: failed to connect to DB: %v\n", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Fatalf("goose: failed to close DB: %v\n", err)
		}
	}()

	arguments := flag.Args()
	if len(arguments) == 0 {
		arguments = []string{"up"} // Default to 'up' if no command is provided
	}

	command := arguments[0]
	args := arguments[1:]

	// as migrações vêm embutidas no binário (internal/pkg/database/migrations)
	if err := database.RunCommand(context.Background(), db.DB, db.Dialect, command, args...); err != nil {
		log.Fatalf("goose %v: %v", command, err)
	}

	fmt.Printf("goose %s success\n", command)
}
