// Package local implements the filesystem storage backend. Buckets are not
// modelled: every key lives under a single root directory, and the ACL and
// headers of each object are kept in a sidecar metadata file so the file
// server can enforce and replay them.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"attachr/internal/domain"
	"attachr/internal/port"
	"attachr/internal/storage/urlpath"
)

const metaSuffix = ".attachr-meta.json"

// DefaultSignedExpiry is used when a signed URL is requested without a TTL.
const DefaultSignedExpiry = 5 * time.Minute

// ObjectMeta is persisted next to every stored object.
type ObjectMeta struct {
	ACL     domain.ACL        `json:"acl"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Storage implements port.Backend on the local filesystem.
type Storage struct {
	root      string
	publicURL string
	signer    *Signer
}

var _ port.Backend = (*Storage)(nil)

// New creates a new local storage backend rooted at root. publicURL is the
// base under which the file server exposes the root (e.g. "/files").
func New(root, publicURL string, signer *Signer) (*Storage, error) {
	if root == "" {
		root = "data/attachments"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage directory: %w", err)
	}
	if publicURL == "" {
		publicURL = "/files"
	}
	return &Storage{root: abs, publicURL: publicURL, signer: signer}, nil
}

func (s *Storage) Name() string {
	return "local"
}

// Put writes the object through a temp file and rename, then records its metadata.
func (s *Storage) Put(ctx context.Context, input port.PutInput) error {
	if err := ctx.Err(); err != nil {
		return s.backendError("put", input.Key, err)
	}
	fullPath, err := s.Path(input.Key)
	if err != nil {
		return s.backendError("put", input.Key, err)
	}
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return s.backendError("put", input.Key, fmt.Errorf("create directory: %w", err))
	}

	if err := writeAtomic(dir, fullPath, input.Body); err != nil {
		return s.backendError("put", input.Key, err)
	}

	meta, err := json.Marshal(ObjectMeta{ACL: input.ACL, Headers: input.Headers})
	if err != nil {
		return s.backendError("put", input.Key, fmt.Errorf("encode metadata: %w", err))
	}
	if err := writeAtomic(dir, fullPath+metaSuffix, meta); err != nil {
		return s.backendError("put", input.Key, err)
	}
	return nil
}

// Delete removes the object and its metadata. Missing files are ignored.
func (s *Storage) Delete(ctx context.Context, _ string, key string) error {
	fullPath, err := s.Path(key)
	if err != nil {
		return s.backendError("delete", key, err)
	}
	for _, p := range []string{fullPath, fullPath + metaSuffix} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return s.backendError("delete", key, fmt.Errorf("delete file: %w", err))
		}
	}

	// Try to remove parent directory if empty
	dir := filepath.Dir(fullPath)
	if dir != s.root {
		_ = os.Remove(dir)
	}
	return nil
}

func (s *Storage) BuildURL(_ string, key string, opts port.URLOptions) string {
	base := s.publicURL
	if opts.AssetHost != "" {
		base = opts.AssetHost
	}
	return urlpath.Join(base, urlpath.Escape(key))
}

func (s *Storage) BuildSignedURL(_ context.Context, bucket, key string, opts port.SignOptions) (string, error) {
	if s.signer == nil {
		return "", errors.New("local storage: no signing secret configured")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultSignedExpiry
	}
	expires, signature, err := s.signer.Sign(key, ttl)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set(ParamExpires, strconv.FormatInt(expires, 10))
	q.Set(ParamSignature, signature)
	return s.BuildURL(bucket, key, opts.URLOptions) + "?" + q.Encode(), nil
}

// Verify checks a signed URL's query parameters for key.
func (s *Storage) Verify(method, key, expires, signature string) error {
	if s.signer == nil {
		return domain.ErrInvalidSignature
	}
	return s.signer.Verify(method, key, expires, signature)
}

// Stat returns the on-disk path and metadata of key, or domain.ErrNotFound.
func (s *Storage) Stat(key string) (string, *ObjectMeta, error) {
	fullPath, err := s.Path(key)
	if err != nil {
		return "", nil, err
	}
	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		return "", nil, domain.ErrNotFound
	}
	meta := &ObjectMeta{ACL: domain.ACLPrivate}
	if raw, err := os.ReadFile(fullPath + metaSuffix); err == nil {
		if err := json.Unmarshal(raw, meta); err != nil {
			return "", nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return fullPath, meta, nil
}

// Path maps key to a file under root, rejecting keys that escape it.
func (s *Storage) Path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(key, "/")))
	if clean == "." || strings.HasSuffix(clean, metaSuffix) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	full := filepath.Join(s.root, clean)
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return full, nil
}

// Root returns the absolute base directory.
func (s *Storage) Root() string {
	return s.root
}

func (s *Storage) backendError(op, key string, err error) error {
	return &domain.BackendError{Backend: "local", Op: op, Key: key, Err: err}
}

func writeAtomic(dir, dest string, data []byte) error {
	f, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}
