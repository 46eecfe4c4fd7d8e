package main

import (
	"context"
	"fmt"
	"os"

	"github.com/odiabackend099/callwaiting/internal/config"
	"github.com/odiabackend099/callwaiting/internal/repository/postgres"
	"github.com/odiabackend099/callwaiting/migrations"
)

const usage = "usage: migrate [up|down|version]"

func main() {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Database.Driver == "memory" {
		fmt.Println("memory driver has no schema to migrate")
		return
	}

	db, err := postgres.New(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	driver := cfg.Database.Driver
	fsys := migrations.GetFS()

	switch command {
	case "up":
		applied, err := postgres.RunMigrations(ctx, db, driver, fsys)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Migration failed after %d applied: %v\n", applied, err)
			os.Exit(1)
		}
		fmt.Printf("Applied %d migration(s)\n", applied)
	case "down":
		if err := postgres.RollbackMigration(ctx, db, driver, fsys); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		fmt.Println("Rolled back one migration")
	case "version":
		v, err := postgres.MigrationVersion(ctx, db, driver, fsys)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read schema version: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Schema version: %d\n", v)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}
