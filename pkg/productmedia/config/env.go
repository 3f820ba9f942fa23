package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig is the environment surface, read with cleanenv. Empty values
// leave the corresponding ServerConfig field untouched.
type envConfig struct {
	Port        string `env:"PORT" env-default:""`
	Environment string `env:"ENVIRONMENT" env-default:""`

	DatabaseURL string `env:"DATABASE_URL" env-default:""`

	StorageBackend string `env:"STORAGE_BACKEND" env-default:""`
	PublicEndpoint string `env:"PUBLIC_ENDPOINT" env-default:""`
	Bucket         string `env:"MEDIA_BUCKET" env-default:""`

	S3Region          string `env:"S3_REGION" env-default:""`
	S3Endpoint        string `env:"S3_ENDPOINT" env-default:""`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID" env-default:""`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY" env-default:""`
	S3UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`
	S3CreateBucket    bool   `env:"S3_CREATE_BUCKET" env-default:"false"`

	Encoding string `env:"MEDIA_ENCODING" env-default:""`
}

// WithEnv applies environment variable overrides.
//
// Recognized variables:
//
//	PORT, ENVIRONMENT
//	DATABASE_URL          - "memory" or a postgresql:// connection string
//	STORAGE_BACKEND       - "memory" or "s3"
//	PUBLIC_ENDPOINT       - public base URL objects are served from
//	MEDIA_BUCKET          - object store bucket name
//	S3_REGION, S3_ENDPOINT, S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY,
//	S3_USE_PATH_STYLE, S3_CREATE_BUCKET
//	MEDIA_ENCODING        - "webp" or "jpeg"
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var e envConfig
		if err := cleanenv.ReadEnv(&e); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}

		if e.Port != "" {
			c.Port = e.Port
		}
		if e.Environment != "" {
			c.Environment = e.Environment
		}

		if err := applyDatabaseEnv(e, c); err != nil {
			return err
		}

		if e.StorageBackend != "" {
			c.StorageBackend = e.StorageBackend
		}
		if e.PublicEndpoint != "" {
			c.PublicEndpoint = e.PublicEndpoint
		}
		if e.Bucket != "" {
			c.Bucket = e.Bucket
		}

		if e.S3Region != "" {
			c.S3.Region = e.S3Region
		}
		if e.S3Endpoint != "" {
			c.S3.Endpoint = e.S3Endpoint
		}
		if e.S3AccessKeyID != "" {
			c.S3.AccessKeyID = e.S3AccessKeyID
		}
		if e.S3SecretAccessKey != "" {
			c.S3.SecretAccessKey = e.S3SecretAccessKey
		}
		c.S3.UsePathStyle = c.S3.UsePathStyle || e.S3UsePathStyle
		c.S3.CreateBucketIfNotExist = c.S3.CreateBucketIfNotExist || e.S3CreateBucket

		if e.Encoding != "" {
			c.Encoding = e.Encoding
		}

		return nil
	}
}

func applyDatabaseEnv(e envConfig, c *ServerConfig) error {
	switch {
	case e.DatabaseURL == "" || e.DatabaseURL == "memory":
		return nil
	case strings.HasPrefix(e.DatabaseURL, "postgresql://"),
		strings.HasPrefix(e.DatabaseURL, "postgres://"):
		c.DatabaseType = "postgres"
		c.DatabaseURL = e.DatabaseURL
		return nil
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", e.DatabaseURL)
	}
}
