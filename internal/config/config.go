// Package config reads the server settings from the environment. A .env file
// in the working directory or one of its two parents is loaded first and
// overrides variables already set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port string

	DBDriver string
	DBDSN    string

	SessionSecret string
	MaxUploadMB   int64

	AttachmentsDisk string
	AttachmentsRoot string
	S3              S3

	SentryDSN string
}

type S3 struct {
	Bucket   string
	Region   string
	Key      string
	Secret   string
	Endpoint string
}

const devSessionSecret = "dev_fallback_secret"

// Load reads the configuration. envFiles replaces the default .env search
// list when given.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env", "../.env", "../../.env"}
	}
	for _, f := range envFiles {
		// a missing file is not an error
		_ = godotenv.Overload(f)
	}

	cfg := Config{
		Env:             getenv("APP_ENV", "local"),
		Port:            getenv("APP_PORT", "8080"),
		DBDriver:        strings.ToLower(getenv("DB_DRIVER", "postgres")),
		DBDSN:           os.Getenv("DB_DSN"),
		SessionSecret:   getenv("SESSION_SECRET", devSessionSecret),
		AttachmentsDisk: strings.ToLower(getenv("ATTACHMENTS_DISK", "local")),
		AttachmentsRoot: getenv("ATTACHMENTS_ROOT", "UploadedFiles"),
		S3: S3{
			Bucket:   os.Getenv("S3_BUCKET"),
			Region:   getenv("S3_REGION", "us-east-1"),
			Key:      os.Getenv("S3_KEY"),
			Secret:   os.Getenv("S3_SECRET"),
			Endpoint: os.Getenv("S3_ENDPOINT"),
		},
		SentryDSN: os.Getenv("SENTRY_DSN"),
	}

	mb, err := strconv.ParseInt(getenv("MAX_UPLOAD_MB", "32"), 10, 64)
	if err != nil || mb <= 0 {
		return Config{}, fmt.Errorf("config: MAX_UPLOAD_MB must be a positive integer, got %q", os.Getenv("MAX_UPLOAD_MB"))
	}
	cfg.MaxUploadMB = mb
	if cfg.DBDSN == "" && cfg.DBDriver == "sqlite" {
		cfg.DBDSN = "catalog.db"
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DBDSN == "" && c.DBDriver != "sqlite" {
		return fmt.Errorf("config: DB_DSN is required for driver %s", c.DBDriver)
	}
	switch c.AttachmentsDisk {
	case "local":
	case "s3":
		if c.S3.Bucket == "" {
			return fmt.Errorf("config: S3_BUCKET is required when ATTACHMENTS_DISK=s3")
		}
	default:
		return fmt.Errorf("config: unknown ATTACHMENTS_DISK %q (supported: local, s3)", c.AttachmentsDisk)
	}
	if c.IsProduction() && c.SessionSecret == devSessionSecret {
		return fmt.Errorf("config: SESSION_SECRET must be set in production")
	}
	return nil
}

// IsProduction reports whether APP_ENV is "production".
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// MaxUploadBytes is the multipart memory limit handed to gin.
func (c Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
