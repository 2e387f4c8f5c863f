package attachment

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attachr/internal/config"
	"attachr/internal/domain"
	"attachr/internal/resolver"
	"attachr/internal/transform"
)

const sampleDefinitions = `
definitions:
  - name: avatar
    versions: [original, thumb, raw]
    transforms:
      thumb:
        command: convert
        args: ["-thumbnail", "250x250"]
        ext: JPG
      raw:
        skip: true
    acl: public_read
    version_acl:
      original: private
    storage_dir: "uploads/users/{user_id}"
    bucket:
      env: ATTACHR_TEST_AVATAR_BUCKET
      default: avatars
      scope_key: bucket
    asset_host: "false"
    virtual_host: true
    headers:
      Cache-Control: "max-age=3600"
    version_headers:
      thumb:
        Content-Type: image/jpeg
    allowed_extensions: [.png, jpg]
    randomize_basename: true
    default_url: "/img/default_{version}.png"
    signed_url_ttl: 10m
  - name: document
`

func TestParseDefinitions(t *testing.T) {
	defs, err := ParseDefinitions([]byte(sampleDefinitions))
	require.NoError(t, err)
	require.Len(t, defs, 2)

	avatar := defs[0]
	scope := map[string]any{"user_id": 9}
	file := nameOnly("me.png")

	assert.Equal(t, "avatar", avatar.Name)
	assert.Equal(t, transform.Command("convert", []string{"-thumbnail", "250x250"}, "jpg"), avatar.TransformSpec("thumb", file, scope))
	assert.True(t, avatar.TransformSpec("raw", file, scope).IsSkip())
	assert.Equal(t, transform.Identity(), avatar.TransformSpec("original", file, scope))

	assert.Equal(t, domain.ACLPrivate, avatar.aclFor("original", scope))
	assert.Equal(t, domain.ACLPublicRead, avatar.aclFor("thumb", scope))

	assert.Equal(t, "uploads/users/9", StorageDir(avatar, scope))
	assert.Equal(t, "avatars", BucketFor(avatar, scope))
	t.Setenv("ATTACHR_TEST_AVATAR_BUCKET", "env-bucket")
	assert.Equal(t, "env-bucket", BucketFor(avatar, scope))
	assert.Equal(t, "override", BucketFor(avatar, map[string]any{"bucket": "override"}))

	assert.Equal(t, "", AssetHostFor(avatar, scope))
	assert.True(t, avatar.VirtualHost.Resolve(nil))

	assert.Equal(t, map[string]string{"Cache-Control": "max-age=3600", "Content-Type": "image/jpeg"}, avatar.headersFor("thumb", file, scope))
	assert.Equal(t, map[string]string{"Cache-Control": "max-age=3600"}, avatar.headersFor("original", file, scope))

	assert.True(t, avatar.Validate(nameOnly("a.PNG")))
	assert.True(t, avatar.Validate(nameOnly("a.jpg")))
	assert.False(t, avatar.Validate(nameOnly("a.gif")))

	assert.True(t, avatar.RandomizeBasename)
	assert.Equal(t, "/img/default_thumb.png", avatar.DefaultURL("thumb", nil))
	assert.Equal(t, 10*time.Minute, avatar.SignedURLTTL)

	doc := defs[1]
	assert.Equal(t, []string{domain.VersionOriginal}, doc.VersionList())
	assert.True(t, doc.Bucket.IsZero())
	assert.Nil(t, doc.Validate)
}

func TestParseDefinitions_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", "definitions:\n  - name: a\n    colour: red\n"},
		{"missing name", "definitions:\n  - versions: [original]\n"},
		{"bad acl", "definitions:\n  - name: a\n    acl: world_writable\n"},
		{"bad version acl", "definitions:\n  - name: a\n    version_acl: {original: everyone}\n"},
		{"undeclared transform", "definitions:\n  - name: a\n    versions: [original]\n    transforms:\n      thumb: {command: convert}\n"},
		{"skip with command", "definitions:\n  - name: a\n    versions: [original, t]\n    transforms:\n      t: {command: convert, skip: true}\n"},
		{"bad bool", "definitions:\n  - name: a\n    virtual_host: sometimes\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefinitions([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadRegistry_AppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attachments.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDefinitions), 0o600))

	reg, err := LoadRegistry(path, Defaults{
		Bucket:       resolver.Literal("default-bucket"),
		AssetHost:    resolver.Literal("https://cdn.example.com"),
		VirtualHost:  resolver.Literal(false),
		SignedURLTTL: 5 * time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"avatar", "document"}, reg.Names())

	doc, err := reg.Get("document")
	require.NoError(t, err)
	assert.Equal(t, "default-bucket", BucketFor(doc, nil))
	assert.Equal(t, "https://cdn.example.com", AssetHostFor(doc, nil))
	assert.Equal(t, domain.ACLPrivate, doc.aclFor("original", nil))
	assert.Equal(t, 5*time.Minute, doc.SignedURLTTL)

	avatar, err := reg.Get("avatar")
	require.NoError(t, err)
	assert.Equal(t, "", AssetHostFor(avatar, nil))
	assert.Equal(t, 10*time.Minute, avatar.SignedURLTTL)

	_, err = reg.Get("missing")
	assert.ErrorIs(t, err, domain.ErrUnknownDefinition)
}

func TestLoadRegistry_ScopeKeyBucketFallsBackToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attachments.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
definitions:
  - name: tenant_file
    bucket:
      scope_key: bucket
    asset_host:
      scope_key: cdn
`), 0o600))

	reg, err := LoadRegistry(path, Defaults{
		Bucket:    resolver.Literal("global-bucket"),
		AssetHost: resolver.Literal("https://cdn.example.com"),
	})
	require.NoError(t, err)
	def, err := reg.Get("tenant_file")
	require.NoError(t, err)

	assert.Equal(t, "tenant-bucket", BucketFor(def, map[string]string{"bucket": "tenant-bucket"}))
	assert.Equal(t, "global-bucket", BucketFor(def, nil))
	assert.Equal(t, "global-bucket", BucketFor(def, map[string]string{"other": "x"}))
	assert.Equal(t, "https://cdn.example.com", AssetHostFor(def, nil))
	assert.Equal(t, "https://tenant.example.com", AssetHostFor(def, map[string]string{"cdn": "https://tenant.example.com/"}))
}

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(&Definition{Name: "a"}, &Definition{Name: "a"})
	assert.ErrorContains(t, err, "duplicate")

	_, err = NewRegistry(&Definition{})
	assert.Error(t, err)
}

func TestLoadRegistry_MissingFile(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.yaml"), Defaults{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultsFromConfig_RereadsEnvironment(t *testing.T) {
	cfg := &config.Config{S3: config.S3Config{Bucket: "loaded", DefaultACL: "public_read", PresignExpiry: 120}}
	def := (&Definition{Name: "doc"}).WithDefaults(DefaultsFromConfig(cfg))

	assert.Equal(t, "loaded", BucketFor(def, nil))
	assert.Equal(t, domain.ACLPublicRead, def.aclFor("original", nil))
	assert.Equal(t, 2*time.Minute, def.SignedURLTTL)
	assert.False(t, def.VirtualHost.Resolve(nil))

	t.Setenv("ATTACHR_S3_BUCKET", "rotated")
	t.Setenv("ATTACHR_S3_VIRTUAL_HOST", "true")
	assert.Equal(t, "rotated", BucketFor(def, nil))
	assert.True(t, def.VirtualHost.Resolve(nil))
}

func TestLoadRegistry_ShippedDefinitions(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join("..", "..", "attachments.yaml"), Defaults{})
	require.NoError(t, err)
	assert.Equal(t, []string{"avatar", "document"}, reg.Names())

	avatar, err := reg.Get("avatar")
	require.NoError(t, err)
	assert.Equal(t, "avatars/7/me_thumb.jpg", KeyFor(avatar, "thumb", "me.png", "jpg", map[string]string{"user_id": "7"}))
	assert.Equal(t, domain.ACLPublicRead, avatar.aclFor("thumb", nil))

	doc, err := reg.Get("document")
	require.NoError(t, err)
	t.Setenv("ATTACHR_DOCUMENTS_BUCKET", "docs-bucket")
	assert.Equal(t, "docs-bucket", BucketFor(doc, nil))
	assert.Equal(t, "tenant-bucket", BucketFor(doc, map[string]string{"bucket": "tenant-bucket"}))
	assert.Equal(t, 10*time.Minute, doc.SignedURLTTL)

	preview := doc.TransformSpec("preview", nil, nil)
	assert.Equal(t, "pdftoppm", preview.Command)
	assert.Contains(t, preview.Args, transform.OutputRootPlaceholder)
	assert.NotContains(t, preview.Args, transform.OutputPlaceholder)
}
