package cli

import (
	"fmt"

	"socialpilot/internal/config"
	"socialpilot/internal/database"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the automation run log tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := config.InitLogger(cfg); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		logrus.Infof("Migrating %s database...", cfg.Database.Driver)
		db, err := database.Open(cfg)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		logrus.Info("Database migration completed successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
