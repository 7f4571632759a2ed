package main

import (
	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"productblog/internal/db"
)

var migrateFlags = map[string]cobraflags.Flag{
	envFileFlag: envFileOption(),
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the product table",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, log, conn, err := bootstrap(migrateFlags[envFileFlag].GetString())
			if err != nil {
				return err
			}
			defer closeDB(conn, log)

			if err := db.Migrate(conn); err != nil {
				return err
			}
			log.Info("migrations applied", "driver", cfg.DBDriver)
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, migrateFlags)
	return cmd
}
