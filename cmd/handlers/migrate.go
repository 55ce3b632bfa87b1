package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/config"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/logger"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/store"
)

// NewMigrateCmd creates the migrate command for applying schema migrations.
func NewMigrateCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the document store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), *cfgFile)
		},
	}
	return cmd
}

func runMigrate(ctx context.Context, cfgFile string) error {
	log := logger.Get()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(logger.ParseLevel(cfg.Logging.Level))

	db, err := store.Open(cfg.Database.ConnectionString, cfg.Database.MaxConnections, cfg.Database.IdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	mgr := store.NewMigrationManager(db)
	if err := mgr.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Info("migrations applied")
	return nil
}
