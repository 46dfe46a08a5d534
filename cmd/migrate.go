package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wensia/callscribe/internal/database"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Apply schema migrations for the call recording, ASR credential and
batch run tables. Safe to run repeatedly; only missing columns and indexes
are added.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	dbPath := viper.GetString("database.path")

	db, err := database.Initialize(dbPath, viper.GetBool("database.verbose"))
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Migrations applied to %s\n", dbPath)
	return nil
}
