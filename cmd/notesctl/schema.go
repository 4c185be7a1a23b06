package main

import (
	"context"
	"fmt"
	"time"

	"noteforge-server/internal/config"
	"noteforge-server/internal/repository"
	"noteforge-server/pkg/logger"

	"github.com/spf13/cobra"
)

func schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Create the CouchDB database and its indexes",
		Long: `Create the configured CouchDB database if it is missing and
install the Mango indexes the server queries with. Safe to run repeatedly.`,
		Args: cobra.NoArgs,
		RunE: runSchema,
	}

	cmd.Flags().Duration("timeout", 30*time.Second, "How long to wait for CouchDB")

	return cmd
}

func runSchema(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Setup(cfg.Logging.Level, "console")

	if cfg.Database.Driver != config.DriverCouchDB {
		return fmt.Errorf("schema needs DB_DRIVER=%s, got %s", config.DriverCouchDB, cfg.Database.Driver)
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	gw, err := repository.NewGateway(cfg.Database.CouchURL(), cfg.Database.Name)
	if err != nil {
		return err
	}
	defer gw.Close()

	if err := gw.EnsureSchema(ctx); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "database %s ready\n", cfg.Database.Name)
	return nil
}
