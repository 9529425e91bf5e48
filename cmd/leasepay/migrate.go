package leasepay

import (
	"log/slog"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tn-tools/leasepay/internal/cache"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply Postgres cache schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, _ := cmd.Flags().GetString("postgres-dsn")
		if dsn == "" {
			dsn = viper.GetString("postgres-dsn")
		}
		if dsn == "" {
			return errors.New("postgres-dsn must be set")
		}
		if err := cache.Migrate(dsn); err != nil {
			return err
		}
		slog.Info("Cache schema is up to date")
		return nil
	},
}

func init() {
	migrateCmd.Flags().String("postgres-dsn", "", "Postgres DSN for the cache database")
	rootCmd.AddCommand(migrateCmd)
}
