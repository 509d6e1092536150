package main

import (
	"fmt"
	"os"

	"notes-rag-be/internal/bootstrap"
	"notes-rag-be/internal/config"
	"notes-rag-be/internal/model"
	"notes-rag-be/pkg/database"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:          "ragctl",
		Short:        "Maintenance commands for the notes index",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every SQL statement")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(requestReconcileCmd())

	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.Connection == "" {
		return nil, fmt.Errorf("DB_CONNECTION_STRING is not set")
	}
	return database.NewGormDBFromDSN(cfg.Database.Connection, verbose)
}

func ownerArg(args []string) (uuid.UUID, error) {
	ownerId, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid owner id %q: %w", args[0], err)
	}
	return ownerId, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create extensions and tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(config.Load())
			if err != nil {
				return err
			}

			color.Yellow("Running migrations...")
			if err := database.Migrate(db, model.All()...); err != nil {
				return err
			}
			color.Green("Migration completed")
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile [owner-id]",
		Short: "Repair one owner's embedding index in this process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerId, err := ownerArg(args)
			if err != nil {
				return err
			}

			cfg := config.Load()
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			container, err := bootstrap.NewContainer(db, cfg)
			if err != nil {
				return err
			}
			defer container.Close()

			color.Yellow("Reconciling %s...", ownerId)
			report, err := container.IndexService.Reconcile(cmd.Context(), ownerId)
			if err != nil {
				return err
			}

			fmt.Printf("scanned:   %d\n", report.Scanned)
			fmt.Printf("refreshed: %d\n", report.Refreshed)
			fmt.Printf("removed:   %d\n", report.Removed)
			if report.Failed > 0 {
				color.Red("failed:    %d (records left stale)", report.Failed)
				return nil
			}
			color.Green("Index is consistent")
			return nil
		},
	}
}

func requestReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "request-reconcile [owner-id]",
		Short: "Ask the running workers to reconcile an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerId, err := ownerArg(args)
			if err != nil {
				return err
			}

			cfg := config.Load()
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			container, err := bootstrap.NewContainer(db, cfg)
			if err != nil {
				return err
			}
			defer container.Close()

			if err := container.IndexService.RequestReconcile(cmd.Context(), ownerId); err != nil {
				return err
			}
			color.Green("Reconcile requested for %s", ownerId)
			return nil
		},
	}
}
