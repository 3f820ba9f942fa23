// Package config builds a productmedia.Service from declarative
// configuration, with library defaults, programmatic options and environment
// overrides.
package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storekit/product-media/pkg/productmedia"
	"github.com/storekit/product-media/pkg/productmedia/objectkey"
	repomemory "github.com/storekit/product-media/pkg/productmedia/repo/memory"
	repopg "github.com/storekit/product-media/pkg/productmedia/repo/postgres"
	memorystorage "github.com/storekit/product-media/pkg/productmedia/storage/memory"
	s3storage "github.com/storekit/product-media/pkg/productmedia/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:           "8080",
		Environment:    "development",
		DatabaseType:   "memory",
		StorageBackend: "memory",
		PublicEndpoint: "memory://objects",
		Bucket:         "product-media",
		Encoding:       string(productmedia.EncodingWebP),
		Limits:         productmedia.DefaultUploadLimits(),
		Specs:          productmedia.DefaultDerivativeSpecs(),
	}
}

// ServerConfig represents server configuration for the product media service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"

	// Object store configuration
	StorageBackend string // "memory", "s3"
	S3             S3Config

	// PublicEndpoint is the public base URL objects are served from; with
	// Bucket it forms every derivative URL.
	PublicEndpoint string
	Bucket         string

	// Pipeline configuration
	Encoding string // "webp", "jpeg"
	Limits   productmedia.UploadLimits
	Specs    []productmedia.DerivativeSpec
}

// S3Config holds the S3/MinIO connection options.
type S3Config struct {
	Region                 string
	Endpoint               string
	AccessKeyID            string
	SecretAccessKey        string
	UsePathStyle           bool
	CreateBucketIfNotExist bool
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	if c.StorageBackend != "memory" && c.StorageBackend != "s3" {
		return errors.New("storage_backend must be 'memory' or 's3'")
	}
	if c.Bucket == "" {
		return errors.New("bucket is required")
	}
	if c.PublicEndpoint == "" {
		return errors.New("public_endpoint is required")
	}

	if c.Encoding != string(productmedia.EncodingWebP) && c.Encoding != string(productmedia.EncodingJPEG) {
		return fmt.Errorf("unsupported encoding %q", c.Encoding)
	}

	return nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService(ctx context.Context) (productmedia.Service, error) {
	var (
		repo     productmedia.Repository
		products productmedia.ProductStore
	)

	switch c.DatabaseType {
	case "postgres":
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		pg := repopg.NewWithPool(pool)
		repo, products = pg, pg
	default:
		mem := repomemory.New()
		repo, products = mem, mem
	}

	var store productmedia.BlobStore
	switch c.StorageBackend {
	case "s3":
		s3Store, err := s3storage.New(s3storage.Config{
			Region:                 c.S3.Region,
			Bucket:                 c.Bucket,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               c.S3.Endpoint,
			UsePathStyle:           c.S3.UsePathStyle,
			CreateBucketIfNotExist: c.S3.CreateBucketIfNotExist,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 backend: %w", err)
		}
		store = s3Store
	default:
		store = memorystorage.New()
	}

	return productmedia.New(
		productmedia.WithRepository(repo),
		productmedia.WithProductStore(products),
		productmedia.WithBlobStore(store),
		productmedia.WithKeyAllocator(objectkey.NewAllocator(c.PublicEndpoint, c.Bucket)),
		productmedia.WithValidator(productmedia.NewValidator(c.Limits)),
		productmedia.WithGenerator(productmedia.NewGenerator(c.Specs, productmedia.Encoding(c.Encoding))),
	)
}
