package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tendant/folio/pkg/folio"
	"github.com/tendant/folio/pkg/folio/auth"
	"github.com/tendant/folio/pkg/folio/metrics"
	"github.com/tendant/folio/pkg/folio/objectkey"
	"github.com/tendant/folio/pkg/folio/repo/gormstore"
	"github.com/tendant/folio/pkg/folio/repo/memory"
	repopg "github.com/tendant/folio/pkg/folio/repo/postgres"
	fsstorage "github.com/tendant/folio/pkg/folio/storage/fs"
	memorystorage "github.com/tendant/folio/pkg/folio/storage/memory"
	s3storage "github.com/tendant/folio/pkg/folio/storage/s3"
)

// Store is an opened repository with its health check and release hook.
type Store struct {
	Repository folio.Repository
	Ping       func(ctx context.Context) error
	Close      func()
}

// Components is everything the server needs, built from a Config.
type Components struct {
	Service      folio.Service
	Store        *Store
	Metrics      *metrics.Prometheus   // nil when metrics are disabled
	Sessions     *auth.Sessions        // nil when auth is disabled
	Verifier     auth.IdentityVerifier // nil when sign-in is not mounted
	KeyGenerator objectkey.Generator
	BlobStore    folio.BlobStore
}

// Close releases the database.
func (c *Components) Close() {
	if c.Store != nil && c.Store.Close != nil {
		c.Store.Close()
	}
}

// OpenStore opens the configured repository. Postgres schemas are migrated
// first when auto-migrate is on; SQLite tables are always created.
func (c *Config) OpenStore(ctx context.Context, logger *slog.Logger) (*Store, error) {
	switch c.DB.Type {
	case "memory":
		return &Store{
			Repository: memory.New(),
			Ping:       func(context.Context) error { return nil },
			Close:      func() {},
		}, nil

	case "postgres":
		databaseURL := c.DB.DatabaseURL()
		if c.DB.AutoMigrate {
			if err := repopg.RunMigrations(ctx, databaseURL, logger); err != nil {
				return nil, err
			}
		}
		pool, err := repopg.NewDbPool(ctx, databaseURL, c.DB.MaxConns)
		if err != nil {
			return nil, err
		}
		return &Store{
			Repository: repopg.NewWithPool(pool),
			Ping:       pool.Ping,
			Close:      pool.Close,
		}, nil

	case "sqlite":
		db, err := gormstore.OpenSQLite(c.DB.SQLitePath)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sqlite handle: %w", err)
		}
		return &Store{
			Repository: gormstore.New(db),
			Ping:       sqlDB.PingContext,
			Close: func() {
				if err := gormstore.Close(db); err != nil {
					logger.Error("Failed to close sqlite database", "error", err)
				}
			},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DB.Type)
	}
}

// BuildBlobStore creates the asset store.
func (c *Config) BuildBlobStore(ctx context.Context) (folio.BlobStore, error) {
	switch c.Storage.Type {
	case "memory":
		return memorystorage.New(memorystorage.Config{URLPrefix: c.Storage.URLPrefix}), nil

	case "fs":
		backend, err := fsstorage.New(fsstorage.Config{
			BaseDir:   c.Storage.BaseDir,
			URLPrefix: c.Storage.URLPrefix,
		})
		if err != nil {
			return nil, err
		}
		return backend, nil

	case "s3":
		backend, err := s3storage.New(ctx, s3storage.Config{
			Region:                 c.S3.Region,
			Bucket:                 c.S3.BucketName,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               c.S3.Endpoint,
			UsePathStyle:           c.S3.UsePathStyle,
			PublicBaseURL:          c.S3.PublicBaseURL,
			PublicRead:             c.S3.PublicRead,
			EnableSSE:              c.S3.EnableSSE,
			SSEAlgorithm:           c.S3.SSEAlgorithm,
			SSEKMSKeyID:            c.S3.SSEKMSKeyID,
			CreateBucketIfNotExist: c.S3.CreateBucket,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 backend: %w", err)
		}
		return backend, nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
}

// BuildSessions returns nil when auth is disabled.
func (c *Config) BuildSessions() (*auth.Sessions, error) {
	if c.Auth.Disabled {
		return nil, nil
	}
	allow := auth.ParseAllowList(c.Auth.AdminEmails)
	if allow.Len() == 0 {
		return nil, errors.New("ADMIN_EMAIL contains no addresses")
	}
	return auth.NewSessions(c.Auth.Secret, c.Auth.SessionTTL, allow)
}

// BuildIdentityVerifier returns the proxy header verifier, or nil when auth is
// disabled or no proxy secret is set.
func (c *Config) BuildIdentityVerifier() (auth.IdentityVerifier, error) {
	if c.Auth.Disabled || c.Auth.ProxySecret == "" {
		return nil, nil
	}
	verifier, err := auth.NewHeaderVerifier(c.Auth.IdentityHeader, c.Auth.ProxySecretHeader, c.Auth.ProxySecret)
	if err != nil {
		return nil, err
	}
	return verifier, nil
}

// Build wires every component. Callers must Close the result.
func (c *Config) Build(ctx context.Context, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}

	keys, err := objectkey.New(c.ObjectKeyLayout)
	if err != nil {
		return nil, err
	}

	sessions, err := c.BuildSessions()
	if err != nil {
		return nil, fmt.Errorf("failed to build sessions: %w", err)
	}

	verifier, err := c.BuildIdentityVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to build identity verifier: %w", err)
	}

	blobStore, err := c.BuildBlobStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build blob store: %w", err)
	}

	store, err := c.OpenStore(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	options := []folio.Option{
		folio.WithRepository(store.Repository),
		folio.WithBlobStore(blobStore),
		folio.WithLogger(logger),
	}

	var prom *metrics.Prometheus
	if c.MetricsEnabled {
		prom = metrics.NewPrometheus()
		options = append(options, folio.WithMetrics(prom))
	}

	svc, err := folio.New(options...)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Components{
		Service:      svc,
		Store:        store,
		Metrics:      prom,
		Sessions:     sessions,
		Verifier:     verifier,
		KeyGenerator: keys,
		BlobStore:    blobStore,
	}, nil
}
