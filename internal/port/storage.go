package port

import (
	"context"
	"time"

	"attachr/internal/domain"
)

// PutInput encapsulates the parameters needed to store one version.
type PutInput struct {
	Bucket  string
	Key     string
	Body    []byte
	ACL     domain.ACL
	Headers map[string]string
}

// URLOptions control how the unsigned part of a URL is built.
type URLOptions struct {
	// VirtualHost embeds the bucket as a subdomain instead of the first path segment.
	VirtualHost bool
	// AssetHost, when non-empty, replaces scheme, host and bucket entirely.
	AssetHost string
}

// SignOptions extends URLOptions with the lifetime of a signed URL.
type SignOptions struct {
	URLOptions
	TTL time.Duration
}

// Backend abstracts the object store holding attachment versions.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Put uploads body at key, overwriting any existing object.
	Put(ctx context.Context, input PutInput) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, bucket, key string) error
	// BuildURL returns the public URL of key without any network call.
	BuildURL(bucket, key string, opts URLOptions) string
	// BuildSignedURL returns a time-limited authenticated URL for key.
	BuildSignedURL(ctx context.Context, bucket, key string, opts SignOptions) (string, error)
	// Name identifies the backend in logs and errors.
	Name() string
}
