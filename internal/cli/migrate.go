package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/execdash/execdash/db"
	"github.com/execdash/execdash/internal/config"
	"github.com/execdash/execdash/store"
)

var printSchema bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long: `Apply the execdash schema (profiles, workspaces, resources, resource_acl,
files, audit_logs) to the database. The schema is idempotent.

Environment Variables Required:
  DATABASE_URL    - PostgreSQL connection string

Examples:
  execdash migrate              # Apply the schema
  execdash migrate --print      # Print the schema without applying it`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if printSchema {
			_, err := fmt.Fprint(cmd.OutOrStdout(), db.Schema)
			return err
		}
		return runMigrate(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVar(&printSchema, "print", false, "Print the schema instead of applying it")
}

func runMigrate(ctx context.Context) error {
	pg, err := openDatabase(config.App.DatabaseURL)
	if err != nil {
		return err
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	logrus.Info("Applying schema...")
	if err := store.Migrate(ctx, pg); err != nil {
		return err
	}
	logrus.Info("Schema applied successfully")
	return nil
}

func openDatabase(url string) (*sql.DB, error) {
	if url == "" {
		return nil, errors.New("DATABASE_URL environment variable (or config) is required")
	}

	pg, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	pg.SetMaxOpenConns(10)
	pg.SetMaxIdleConns(10)
	pg.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pg.PingContext(ctx); err != nil {
		pg.Close()
		return nil, err
	}

	// Timestamps are stored and compared in UTC
	if _, err := pg.ExecContext(ctx, "SET TIME ZONE 'UTC'"); err != nil {
		logrus.WithError(err).Warn("Failed to set timezone to UTC")
	}
	return pg, nil
}
