package attachment

import (
	"time"

	"attachr/internal/config"
	"attachr/internal/domain"
	"attachr/internal/metrics"
	"attachr/internal/resolver"
)

// DefaultsFromConfig builds definition defaults from the loaded config. The
// S3 environment variables are consulted again on every resolution, so a
// changed variable takes effect without a reload.
func DefaultsFromConfig(cfg *config.Config) Defaults {
	return Defaults{
		ACL:          resolver.FromEnv("ATTACHR_S3_DEFAULT_ACL", domain.ACL(cfg.S3.DefaultACL)),
		Bucket:       resolver.FromEnv("ATTACHR_S3_BUCKET", cfg.S3.Bucket),
		AssetHost:    resolver.FromEnv("ATTACHR_S3_ASSET_HOST", cfg.S3.AssetHost),
		VirtualHost:  resolver.FromEnvBool("ATTACHR_S3_VIRTUAL_HOST", cfg.S3.VirtualHost),
		SignedURLTTL: time.Duration(cfg.S3.PresignExpiry) * time.Second,
	}
}

// OptionsFromConfig builds Attacher options from the transform settings.
func OptionsFromConfig(cfg *config.Config, observer metrics.Observer) Options {
	return Options{
		Concurrency:    cfg.Transform.Concurrency,
		VersionTimeout: cfg.Transform.Timeout(),
		Observer:       observer,
	}
}
