package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/projectdash/dashboard-backend/config"
	"github.com/projectdash/dashboard-backend/internal/bootstrap"
	"github.com/projectdash/dashboard-backend/internal/storage/postgres/migrations"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate up | down <n> | version")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := bootstrap.OpenDB(context.Background(), &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	m, err := migrations.New(db)
	if err != nil {
		log.Fatalf("Failed to open migrator: %v", err)
	}
	defer m.Close()

	if err := run(m, os.Args[1:]); err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func run(m *migrations.Migrator, args []string) error {
	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		if len(args) < 2 {
			return fmt.Errorf("down needs a step count")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid step count %q", args[1])
		}
		return m.Steps(-n)
	case "version":
		v, dirty, ok, err := m.Version()
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("no migrations applied")
			return nil
		}
		fmt.Printf("version %d (dirty=%t)\n", v, dirty)
		return nil
	default:
		return fmt.Errorf("unknown command")
	}
}
