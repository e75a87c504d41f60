package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/chrissnell/pixeltrend/pkg/config"
	"github.com/chrissnell/pixeltrend/pkg/migrate"
)

func main() {
	var (
		dbPath        = flag.String("db", "", "Path to the SQLite configuration database")
		command       = flag.String("command", "up", "Migration command: up, down, version, status")
		targetVersion = flag.String("target", "", "Target version for the down command")
		helpFlag      = flag.Bool("help", false, "Show help")
	)

	flag.Parse()

	if *helpFlag {
		showHelp()
		return
	}

	if *dbPath == "" {
		fmt.Fprintf(os.Stderr, "Error: -db flag is required\n")
		showHelp()
		os.Exit(1)
	}

	provider, err := config.NewSQLiteProvider(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open configuration database: %v", err)
	}
	defer provider.Close()

	migrator := provider.Migrator()

	switch *command {
	case "up":
		applied, err := migrator.MigrateUp()
		if err != nil {
			log.Fatalf("Migration command failed: %v", err)
		}
		fmt.Printf("Applied %d migration(s)\n", applied)
	case "down":
		if *targetVersion == "" {
			fmt.Fprintf(os.Stderr, "Error: -target flag is required for down command\n")
			os.Exit(1)
		}
		target, err := strconv.Atoi(*targetVersion)
		if err != nil {
			log.Fatalf("Invalid target version: %v", err)
		}
		if err := migrator.MigrateDown(target); err != nil {
			log.Fatalf("Migration command failed: %v", err)
		}
		fmt.Printf("Rolled back to version %d\n", target)
	case "version":
		version, err := migrator.Version()
		if err != nil {
			log.Fatalf("Failed to get current version: %v", err)
		}
		fmt.Printf("Current version: %d\n", version)
	case "status":
		if err := showStatus(migrator); err != nil {
			log.Fatalf("Migration command failed: %v", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", *command)
		showHelp()
		os.Exit(1)
	}
}

func showStatus(migrator *migrate.Migrator) error {
	currentVersion, err := migrator.Version()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	pending, err := migrator.Pending()
	if err != nil {
		return fmt.Errorf("failed to get pending migrations: %w", err)
	}

	fmt.Printf("Current version: %d\n", currentVersion)
	fmt.Printf("Pending migrations: %d\n", len(pending))

	if len(pending) > 0 {
		fmt.Println("\nPending migrations:")
		for _, migration := range pending {
			fmt.Printf("  %d: %s\n", migration.Version, migration.Name)
		}
	}

	return nil
}

func showHelp() {
	fmt.Println("pixeltrend configuration schema migrations")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  migrate -db <config.db> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up        Apply all pending migrations")
	fmt.Println("  down      Roll back to -target version")
	fmt.Println("  version   Show current migration version")
	fmt.Println("  status    Show pending migrations")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  migrate -db config.db -command status")
	fmt.Println("  migrate -db config.db -command down -target 1")
}
