// Command migrate applies, reverts or lists the database migrations
// embedded in the server binary.
//
//	go run ./cmd/migrate up
//	go run ./cmd/migrate down
//	go run ./cmd/migrate status
//	go run ./cmd/migrate --db /var/lib/edublog/edublog.db status
//
// The database path defaults to database.path from the usual configuration
// (config.yaml, EDUBLOG_DATABASE_PATH or DB_PATH).
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/sakif/edublog/internal/config"
	"github.com/sakif/edublog/internal/repository/sqlite"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: migrate [--db path] [--config dir] up|down|status\n\n")
	flag.PrintDefaults()
}

func main() {
	dbPath := flag.String("db", "", "database file (overrides configuration)")
	configDir := flag.StringP("config", "c", "", "directory containing config.yaml")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *dbPath, *configDir); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(command, dbPath, configDir string) error {
	if dbPath == "" {
		cfg, err := config.Read(configDir)
		if err != nil {
			return err
		}
		dbPath = cfg.Database.Path
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := sqlite.Connect(ctx, dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	switch command {
	case "up":
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		fmt.Println("migrations applied")
	case "down":
		if err := db.Rollback(ctx); err != nil {
			return err
		}
		fmt.Println("latest migration reverted")
	case "status":
		states, err := db.MigrationStatus(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tFILE")
		for _, s := range states {
			state, at := "pending", "-"
			if s.Applied {
				state, at = "applied", s.AppliedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Version, state, at, s.Path)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown command %q", command)
	}

	return nil
}
