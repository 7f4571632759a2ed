package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"productblog/internal/config"
	"productblog/internal/db"
	"productblog/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

const envFileFlag = "env-file"

func envFileOption() *cobraflags.StringFlag {
	return &cobraflags.StringFlag{
		Name:  envFileFlag,
		Value: "",
		Usage: "Load settings from this file instead of .env, ../.env and ../../.env",
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "server",
		Short:         "Product catalog web application",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	return root
}

// bootstrap loads the configuration, builds the logger and opens the
// database. The caller closes the database.
func bootstrap(envFile string) (config.Config, *slog.Logger, *gorm.DB, error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return config.Config{}, nil, nil, err
	}

	log := logging.New(os.Stdout, cfg.IsProduction())
	slog.SetDefault(log)

	conn, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	return cfg, log, conn, nil
}

func closeDB(conn *gorm.DB, log *slog.Logger) {
	sqlDB, err := conn.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("close database", "error", err)
	}
}
