package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/meimodev/activid-web-sub001/internal/clock"
	"github.com/meimodev/activid-web-sub001/internal/config"
	"github.com/meimodev/activid-web-sub001/internal/ids"
	"github.com/meimodev/activid-web-sub001/internal/invitation"
	"github.com/meimodev/activid-web-sub001/internal/live"
	"github.com/meimodev/activid-web-sub001/internal/photos"
	"github.com/meimodev/activid-web-sub001/internal/store"
	"github.com/meimodev/activid-web-sub001/internal/store/dynamostore"
	"github.com/meimodev/activid-web-sub001/internal/store/memstore"
	"github.com/meimodev/activid-web-sub001/internal/store/pgstore"
	"github.com/meimodev/activid-web-sub001/internal/wish"
)

// backend is the wish store and change notifier selected by config.
type backend struct {
	repo     wish.Repository
	notifier wish.Notifier
	closers  []func() error
}

// Close releases every resource opened by openBackend, last opened first.
func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// service builds a wish.Service over the backend.
func (b *backend) service(logger *slog.Logger) *wish.Service {
	return wish.NewService(b.repo,
		wish.WithNotifier(b.notifier),
		wish.WithIDGenerator(ids.UUIDv7Generator{}),
		wish.WithLogger(logger),
	)
}

// openBackend opens the configured store and live notifier.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	b := &backend{}

	switch cfg.Store.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.Store.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		st, err := store.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		b.repo = st
		b.closers = append(b.closers, st.Close)
	case "postgres":
		st, err := pgstore.Open(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		b.repo = st
		b.closers = append(b.closers, st.Close)
	case "dynamodb":
		st, err := dynamostore.NewFromConfig(ctx, cfg.Store.DynamoTable, cfg.Store.DynamoRegion, cfg.Store.DynamoEndpoint)
		if err != nil {
			return nil, fmt.Errorf("open dynamodb store: %w", err)
		}
		b.repo = st
	case "memory":
		b.repo = memstore.New(clock.NewMonotonic())
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	logger.Debug("wish store opened", "driver", cfg.Store.Driver)

	switch cfg.Live.Driver {
	case "redis":
		n := live.NewRedisNotifier(live.DialRedis(cfg.Live.RedisAddr, cfg.Live.RedisPassword, cfg.Live.RedisDB), logger)
		if err := n.Ping(ctx); err != nil {
			_ = n.Close()
			_ = b.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		b.notifier = n
		b.closers = append(b.closers, n.Close)
	default:
		hub := live.NewHub()
		b.notifier = hub
		b.closers = append(b.closers, hub.Close)
	}
	logger.Debug("live notifier ready", "driver", cfg.Live.Driver)

	return b, nil
}

// openPhotos returns the S3 library when a bucket or an S3 endpoint is
// configured and the static URL library otherwise. Without a default
// bucket, only invitations naming their own bucket are served from S3; the
// rest use photos.base_url.
func openPhotos(ctx context.Context, cfg *config.Config) (photos.Library, error) {
	if cfg.Photos.Bucket == "" && cfg.Photos.Endpoint == "" {
		return photos.Static{BaseURL: cfg.Photos.BaseURL}, nil
	}
	lib, err := photos.NewS3FromConfig(ctx, photos.S3Config{
		Bucket:    cfg.Photos.Bucket,
		Region:    cfg.Photos.Region,
		Endpoint:  cfg.Photos.Endpoint,
		AccessKey: cfg.Photos.AccessKey,
		SecretKey: cfg.Photos.SecretKey,
		TTL:       cfg.Photos.PresignTTL,
		BaseURL:   cfg.Photos.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("open photo bucket: %w", err)
	}
	return lib, nil
}

// loadResolver compiles the invitations directory. A missing directory
// yields a resolver with only preview slugs.
func loadResolver(dir string, logger *slog.Logger) (*invitation.Resolver, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Warn("invitations directory not found, serving previews only", "dir", dir)
		return invitation.NewResolver(nil), nil
	}
	result, errs := invitation.Load(dir, invitation.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	logger.Info("invitations loaded", "dir", dir, "files", result.FileCount, "count", len(result.Invitations))
	return invitation.NewResolver(result.Invitations), nil
}

// resolveInvitation looks up slug in the configured invitations directory.
func resolveInvitation(cfg *config.Config, slug string, logger *slog.Logger) (*invitation.Invitation, error) {
	resolver, err := loadResolver(cfg.InvitationsDir, logger)
	if err != nil {
		return nil, err
	}
	return resolver.Resolve(slug)
}
