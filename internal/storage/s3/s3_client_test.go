package s3

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attachr/internal/config"
	"attachr/internal/domain"
	"attachr/internal/port"
)

func testS3Config() config.S3Config {
	return config.S3Config{
		Region:    "us-east-1",
		Bucket:    "avatars",
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY",
	}
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestBuildURL_PathStyle(t *testing.T) {
	endpoint := mustParse(t, "https://s3.amazonaws.com")
	got := BuildURL(endpoint, "avatars", "uploads/image.png", port.URLOptions{})
	assert.Equal(t, "https://s3.amazonaws.com/avatars/uploads/image.png", got)
}

func TestBuildURL_VirtualHost(t *testing.T) {
	endpoint := mustParse(t, "https://s3.amazonaws.com")
	got := BuildURL(endpoint, "avatars", "uploads/image.png", port.URLOptions{VirtualHost: true})
	assert.Equal(t, "https://avatars.s3.amazonaws.com/uploads/image.png", got)
}

func TestBuildURL_AssetHostReplacesBucketAndHost(t *testing.T) {
	endpoint := mustParse(t, "https://s3.amazonaws.com")
	got := BuildURL(endpoint, "avatars", "uploads/image.png", port.URLOptions{
		VirtualHost: true,
		AssetHost:   "https://cdn.example.com",
	})
	assert.Equal(t, "https://cdn.example.com/uploads/image.png", got)
}

func TestBuildURL_CustomEndpointKeepsPath(t *testing.T) {
	endpoint := mustParse(t, "http://localhost:9000/minio")
	got := BuildURL(endpoint, "avatars", "a.png", port.URLOptions{})
	assert.Equal(t, "http://localhost:9000/minio/avatars/a.png", got)
}

func TestBuildURL_Encoding(t *testing.T) {
	endpoint := mustParse(t, "https://s3.amazonaws.com")

	spaced := BuildURL(endpoint, "avatars", "uploads/my image.png", port.URLOptions{})
	assert.Equal(t, "https://s3.amazonaws.com/avatars/uploads/my%20image.png", spaced)
	assert.NotContains(t, spaced, "+")

	plus := BuildURL(endpoint, "avatars", "uploads/a+b.png", port.URLOptions{})
	assert.Equal(t, "https://s3.amazonaws.com/avatars/uploads/a%2Bb.png", plus)
}

func TestCannedACL(t *testing.T) {
	assert.Equal(t, types.ObjectCannedACLPublicRead, CannedACL(domain.ACLPublicRead))
	assert.Equal(t, types.ObjectCannedACLPrivate, CannedACL(domain.ACLPrivate))
	assert.Equal(t, types.ObjectCannedACLBucketOwnerFullControl, CannedACL(domain.ACLBucketOwnerFullControl))
}

func TestApplyHeaders(t *testing.T) {
	obj := &s3.PutObjectInput{}
	applyHeaders(obj, map[string]string{
		"Content-Type":        "image/webp",
		"Cache-Control":       "max-age=3600",
		"Content-Disposition": "attachment",
		"Expires":             "Wed, 21 Oct 2015 07:28:00 GMT",
		"x-amz-meta-owner":    "42",
		"X-Trace":             "abc",
	})

	assert.Equal(t, "image/webp", *obj.ContentType)
	assert.Equal(t, "max-age=3600", *obj.CacheControl)
	assert.Equal(t, "attachment", *obj.ContentDisposition)
	require.NotNil(t, obj.Expires)
	assert.Equal(t, 2015, obj.Expires.Year())
	assert.Equal(t, map[string]string{"owner": "42", "x-trace": "abc"}, obj.Metadata)
}

func TestNewS3Client_BuildURLUsesRegionalEndpoint(t *testing.T) {
	cfg := testS3Config()
	cfg.Region = "eu-west-1"
	backend, err := NewS3Client(&cfg)
	require.NoError(t, err)

	assert.Equal(t, "s3", backend.Name())
	assert.Equal(t, "https://s3.eu-west-1.amazonaws.com/avatars/k.png",
		backend.BuildURL("avatars", "k.png", port.URLOptions{}))
}

func TestNewS3Client_SignedAndUnsignedShareHost(t *testing.T) {
	cfg := testS3Config()
	backend, err := NewS3Client(&cfg)
	require.NoError(t, err)

	unsigned := mustParse(t, backend.BuildURL("avatars", "uploads/a.png", port.URLOptions{}))
	raw, err := backend.BuildSignedURL(context.Background(), "avatars", "uploads/a.png", port.SignOptions{TTL: time.Minute})
	require.NoError(t, err)
	signed := mustParse(t, raw)

	assert.Equal(t, "s3.us-east-1.amazonaws.com", unsigned.Host)
	assert.Equal(t, unsigned.Host, signed.Host)
	assert.Equal(t, unsigned.EscapedPath(), signed.EscapedPath())
}

func TestBuildSignedURL_PathStyle(t *testing.T) {
	cfg := testS3Config()
	backend, err := NewS3Client(&cfg)
	require.NoError(t, err)

	raw, err := backend.BuildSignedURL(context.Background(), "avatars", "uploads/a.png", port.SignOptions{TTL: 10 * time.Minute})
	require.NoError(t, err)

	u := mustParse(t, raw)
	assert.False(t, strings.HasPrefix(u.Host, "avatars."))
	assert.True(t, strings.HasPrefix(u.EscapedPath(), "/avatars/uploads/"))
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestBuildSignedURL_VirtualHost(t *testing.T) {
	cfg := testS3Config()
	backend, err := NewS3Client(&cfg)
	require.NoError(t, err)

	raw, err := backend.BuildSignedURL(context.Background(), "avatars", "uploads/a.png", port.SignOptions{
		URLOptions: port.URLOptions{VirtualHost: true},
		TTL:        time.Minute,
	})
	require.NoError(t, err)

	u := mustParse(t, raw)
	assert.True(t, strings.HasPrefix(u.Host, "avatars."))
	assert.Equal(t, "/uploads/a.png", u.Path)
	assert.Equal(t, "60", u.Query().Get("X-Amz-Expires"))
}

func TestBuildSignedURL_AssetHost(t *testing.T) {
	cfg := testS3Config()
	backend, err := NewS3Client(&cfg)
	require.NoError(t, err)

	raw, err := backend.BuildSignedURL(context.Background(), "avatars", "uploads/a.png", port.SignOptions{
		URLOptions: port.URLOptions{AssetHost: "https://cdn.example.com"},
	})
	require.NoError(t, err)

	u := mustParse(t, raw)
	assert.Equal(t, "cdn.example.com", u.Host)
	assert.Equal(t, "/uploads/a.png", u.Path)
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
}

func TestBuildSignedURL_DifferentKeysDifferentSignatures(t *testing.T) {
	cfg := testS3Config()
	backend, err := NewS3Client(&cfg)
	require.NoError(t, err)

	a, err := backend.BuildSignedURL(context.Background(), "avatars", "a.png", port.SignOptions{TTL: time.Minute})
	require.NoError(t, err)
	b, err := backend.BuildSignedURL(context.Background(), "avatars", "b.png", port.SignOptions{TTL: time.Minute})
	require.NoError(t, err)

	assert.NotEqual(t,
		mustParse(t, a).Query().Get("X-Amz-Signature"),
		mustParse(t, b).Query().Get("X-Amz-Signature"))
}
