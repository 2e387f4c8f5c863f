// Package storage builds the configured attachment backend.
package storage

import (
	"fmt"

	"attachr/internal/config"
	"attachr/internal/port"
	"attachr/internal/storage/local"
	"attachr/internal/storage/s3"
)

// New creates the backend selected by cfg.Storage.Backend.
func New(cfg *config.Config) (port.Backend, error) {
	switch cfg.Storage.Backend {
	case "", "s3":
		return s3.NewS3Client(&cfg.S3)
	case "local":
		return local.New(cfg.Storage.Local.Root, cfg.Storage.Local.PublicURL, local.NewSigner(cfg.Storage.Local.SigningSecret))
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}
