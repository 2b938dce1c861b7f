package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/coachbook/internal/shared/infrastructure/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Apply pending schema migrations to the configured database.

SQLite databases are migrated automatically on startup. PostgreSQL
deployments run this command once per release.

Examples:
  coachbook migrate
  coachbook migrate status`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.DB == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		m, err := migrations.New(app.DB, app.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer m.Close()

		applied, err := m.Up(cmd.Context())
		if err != nil {
			return err
		}
		version, err := m.Version(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s), schema version %d\n", applied, version)
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.DB == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		m, err := migrations.New(app.DB, app.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer m.Close()

		statuses, err := m.Status(cmd.Context())
		if err != nil {
			return err
		}
		if JSONOutput() {
			return PrintJSON(cmd.OutOrStdout(), statuses)
		}

		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied " + s.AppliedAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%5d  %-40s %s\n", s.Version, s.Path, state)
		}
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}
