package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	internalApp "github.com/haierkeys/doc-history-service/internal/app"
	"github.com/haierkeys/doc-history-service/internal/dao"
	"github.com/haierkeys/doc-history-service/pkg/logger"

	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Export version history to the configured archive storage once",
	Long: `Export version history to the configured archive storage once.

Every room updated within --since is written as one JSON object. Without
--since all rooms are exported. The archive section of the config file
selects the storage backend; archive.enabled is implied.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		if len(configPath) <= 0 {
			configPath = "config/config.yaml"
		}
		since, _ := cmd.Flags().GetDuration("since")

		appConfig, configRealpath, err := internalApp.LoadConfig(configPath)
		if err != nil {
			fmt.Printf("Failed to load config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Loading config from: %s\n", configRealpath)
		appConfig.Archive.Enabled = true

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
		db, err := dao.NewDBEngineWithConfig(dbConfig, lg)
		if err != nil {
			fmt.Printf("Failed to init database: %v\n", err)
			os.Exit(1)
		}

		a, err := internalApp.NewApp(appConfig, lg, db)
		if err != nil {
			fmt.Printf("Failed to init app: %v\n", err)
			os.Exit(1)
		}
		defer a.Shutdown(context.Background())

		var from time.Time
		if since > 0 {
			from = time.Now().Add(-since)
		}
		res, err := a.ArchiveService.ArchiveSince(cmd.Context(), from)
		if err != nil {
			fmt.Printf("Archive failed: %v\n", err)
			os.Exit(1)
		}
		for _, key := range res.Keys {
			fmt.Println(key)
		}
		fmt.Printf("Archived %d rooms, %d failed\n", res.Rooms, len(res.Failed))
		if len(res.Failed) > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.Flags().StringP("config", "c", "", "config file path")
	archiveCmd.Flags().Duration("since", 0, "only rooms updated within this duration, 0 exports all")
}
