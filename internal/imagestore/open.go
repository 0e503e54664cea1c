package imagestore

import (
	"context"
	"fmt"

	"github.com/shinyyama/strata-community/internal/config"
)

// Open builds the store selected by IMAGE_STORE. The returned close func
// must be called once the store is no longer used.
func Open(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	switch cfg.ImageStore {
	case config.ImageStoreGCS:
		store, err := NewGCSStore(ctx, cfg.StorageBucket, cfg.UploadURLPrefix, cfg.GCSCredentialsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open gcs image store: %w", err)
		}
		return store, store.Close, nil
	case config.ImageStoreS3:
		store, err := NewS3Store(cfg.S3Region, cfg.StorageBucket, cfg.UploadURLPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("open s3 image store: %w", err)
		}
		return store, func() error { return nil }, nil
	case config.ImageStoreLocal:
		store, err := NewLocalStore(cfg.UploadDir, cfg.UploadURLPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("open local image store: %w", err)
		}
		return store, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported image store %q", cfg.ImageStore)
	}
}
