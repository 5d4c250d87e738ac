package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"saazebharat/internal/config"
	"saazebharat/internal/database"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	command := flag.String("command", "up", "Migration command: up, down, version")
	steps := flag.Int("steps", 0, "Number of migration steps for down")
	flag.Parse()

	cfg := config.NewConfig()

	if *command == "up" {
		if err := database.Migrate(cfg.Database.DSN()); err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
		fmt.Println("Migrations applied")
		return
	}

	db, err := sql.Open("pgx", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatalf("Failed to create migration driver: %v", err)
	}
	source, err := iofs.New(database.MigrationFiles(), "migrations")
	if err != nil {
		log.Fatalf("Failed to load migrations: %v", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		log.Fatalf("Failed to create migrator: %v", err)
	}

	switch *command {
	case "down":
		n := *steps
		if n <= 0 {
			n = 1
		}
		if err := m.Steps(-n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Migration down failed: %v", err)
		}
		fmt.Printf("Rolled back %d migration(s)\n", n)

	case "version":
		v, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			log.Fatalf("Failed to read version: %v", err)
		}
		fmt.Printf("Current version: %d (dirty: %v)\n", v, dirty)

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q (want up, down or version)\n", *command)
		os.Exit(1)
	}
}
