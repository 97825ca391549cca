package cmd

import (
	"fmt"
	"os"

	internalApp "github.com/haierkeys/doc-history-service/internal/app"
	"github.com/haierkeys/doc-history-service/internal/dao"
	"github.com/haierkeys/doc-history-service/pkg/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the document, version and operation tables",
	Long: `Create or update the document, version and operation tables.

Use this when database.auto-migrate is disabled for the service. It is safe to
run more than once; existing tables only gain missing columns and indexes.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		if len(configPath) <= 0 {
			configPath = "config/config.yaml"
		}

		appConfig, configRealpath, err := internalApp.LoadConfig(configPath)
		if err != nil {
			fmt.Printf("Failed to load config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Loading config from: %s\n", configRealpath)

		lg, err := logger.NewLogger(logger.Config{
			Level:      appConfig.Log.Level,
			File:       appConfig.Log.File,
			Production: appConfig.Log.Production,
		})
		if err != nil {
			fmt.Printf("Failed to init logger: %v\n", err)
			os.Exit(1)
		}

		dbConfig := appConfig.GetDatabaseConfig()
		dbConfig.AutoMigrate = false
		dbConfig.Replicas = nil
		db, err := dao.NewDBEngineWithConfig(dbConfig, lg)
		if err != nil {
			fmt.Printf("Failed to init database: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Starting database migration...")
		if err := dao.New(db, dao.WithLogger(lg)).AutoMigrate(); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Database migration completed successfully!")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().StringP("config", "c", "", "config file path")
}
