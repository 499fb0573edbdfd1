// cmd/migrate applies or rolls back the embedded schema migrations against
// the target database. The schema_migrations table is golang-migrate's, so
// the server's auto-migrate and this tool are interchangeable.
//
// Usage:
//
//	go run ./cmd/migrate            # apply all pending migrations
//	go run ./cmd/migrate down 1     # roll back the most recent migration
//	DATABASE_URL=postgres://... go run ./cmd/migrate
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmerrifield20/accounts/internal/config"
	"github.com/jmerrifield20/accounts/migrations"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(os.Getenv("ACCOUNTS_CONFIG"))
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	fmt.Println("connected to database")

	var res migrations.Result
	switch {
	case len(args) == 0 || args[0] == "up":
		res, err = migrations.Up(db)
	case args[0] == "down":
		steps := 1
		if len(args) > 1 {
			steps, err = strconv.Atoi(args[1])
			if err != nil || steps < 1 {
				return fmt.Errorf("down: step count must be a positive integer, got %q", args[1])
			}
		}
		res, err = migrations.Down(db, steps)
	default:
		return fmt.Errorf("unknown command %q (want up or down [n])", args[0])
	}
	if err != nil {
		return err
	}

	switch {
	case res.Dirty:
		return fmt.Errorf("schema version %d is dirty", res.Version)
	case !res.Changed:
		fmt.Printf("nothing to migrate, already at version %d\n", res.Version)
	default:
		fmt.Printf("schema now at version %d\n", res.Version)
	}
	return nil
}
