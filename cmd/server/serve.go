package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"productblog/internal/attachments"
	"productblog/internal/catalog"
	"productblog/internal/config"
	"productblog/internal/db"
	"productblog/internal/web"
)

const portFlag = "port"

var serveFlags = map[string]cobraflags.Flag{
	envFileFlag: envFileOption(),
	portFlag: &cobraflags.StringFlag{
		Name:  portFlag,
		Value: "",
		Usage: "Listen port, overrides APP_PORT",
	},
}

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and start the HTTP server",
		RunE:  serve,
	}
	cobraflags.RegisterMap(cmd, serveFlags)
	return cmd
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg, log, conn, err := bootstrap(serveFlags[envFileFlag].GetString())
	if err != nil {
		return err
	}
	defer closeDB(conn, log)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Env,
			Release:     version,
		}); err != nil {
			return fmt.Errorf("sentry.Init: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	if err := db.Migrate(conn); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	disk, err := openDisk(ctx, cfg)
	if err != nil {
		return err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	products := db.NewProducts(conn)
	router, err := web.NewRouter(web.Options{
		Service:        catalog.New(products, attachments.New(disk), log),
		Health:         products,
		Logger:         log,
		SessionSecret:  cfg.SessionSecret,
		SecureCookies:  cfg.IsProduction(),
		MaxUploadBytes: cfg.MaxUploadBytes(),
	})
	if err != nil {
		return err
	}

	port := cfg.Port
	if p := serveFlags[portFlag].GetString(); p != "" {
		port = p
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "env", cfg.Env, "db", cfg.DBDriver, "disk", cfg.AttachmentsDisk)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openDisk(ctx context.Context, cfg config.Config) (attachments.Disk, error) {
	switch cfg.AttachmentsDisk {
	case "s3":
		disk, err := attachments.NewS3Disk(ctx, attachments.S3Options{
			Bucket:   cfg.S3.Bucket,
			Region:   cfg.S3.Region,
			Key:      cfg.S3.Key,
			Secret:   cfg.S3.Secret,
			Endpoint: cfg.S3.Endpoint,
			Prefix:   cfg.AttachmentsRoot,
		})
		if err != nil {
			return nil, err
		}
		return disk, nil
	default:
		disk, err := attachments.NewLocalDisk(cfg.AttachmentsRoot)
		if err != nil {
			return nil, err
		}
		return disk, nil
	}
}
