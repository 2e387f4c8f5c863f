package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"attachr/internal/config"
	"attachr/internal/domain"
	"attachr/internal/port"
	"attachr/internal/storage/urlpath"
)

// DefaultPresignExpiry is used when a signed URL is requested without a TTL.
const DefaultPresignExpiry = 5 * time.Minute

type s3Client struct {
	client    *s3.Client
	presigner *s3.PresignClient
	uploader  *manager.Uploader
	endpoint  *url.URL
}

// NewS3Client creates a new S3-backed Backend implementation.
func NewS3Client(cfg *config.S3Config) (port.Backend, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	endpoint, err := url.Parse(cfg.DefaultEndpoint())
	if err != nil {
		return nil, fmt.Errorf("parsing s3 endpoint: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return &s3Client{
		client:    client,
		presigner: s3.NewPresignClient(client),
		uploader:  manager.NewUploader(client),
		endpoint:  endpoint,
	}, nil
}

func (c *s3Client) Name() string {
	return "s3"
}

func (c *s3Client) Put(ctx context.Context, input port.PutInput) error {
	if input.Bucket == "" {
		return &domain.ConfigurationError{Field: "bucket"}
	}
	obj := &s3.PutObjectInput{
		Bucket: aws.String(input.Bucket),
		Key:    aws.String(input.Key),
		Body:   bytes.NewReader(input.Body),
	}
	if input.ACL != "" {
		obj.ACL = CannedACL(input.ACL)
	}
	applyHeaders(obj, input.Headers)
	if obj.ContentType == nil {
		if ct := mime.TypeByExtension(path.Ext(input.Key)); ct != "" {
			obj.ContentType = aws.String(ct)
		}
	}

	if _, err := c.uploader.Upload(ctx, obj); err != nil {
		return backendError("put", input.Bucket, input.Key, err)
	}
	return nil
}

func (c *s3Client) Delete(ctx context.Context, bucket, key string) error {
	if bucket == "" {
		return &domain.ConfigurationError{Field: "bucket"}
	}
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return backendError("delete", bucket, key, err)
	}
	return nil
}

func (c *s3Client) BuildURL(bucket, key string, opts port.URLOptions) string {
	return BuildURL(c.endpoint, bucket, key, opts)
}

func (c *s3Client) BuildSignedURL(ctx context.Context, bucket, key string, opts port.SignOptions) (string, error) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultPresignExpiry
	}

	clientOpts := func(o *s3.Options) {
		// A custom endpoint (MinIO and friends) stays path-style.
		if o.BaseEndpoint == nil {
			o.UsePathStyle = !opts.VirtualHost
		}
		if opts.AssetHost != "" {
			if u, err := url.Parse(opts.AssetHost); err == nil {
				o.EndpointResolverV2 = &assetHostResolver{uri: *u}
			}
		}
	}

	result, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl), s3.WithPresignClientFromClientOptions(clientOpts))
	if err != nil {
		return "", fmt.Errorf("s3 presign: %w", err)
	}
	return result.URL, nil
}

// BuildURL assembles the unsigned object URL. S3 treats a literal "+" in a
// path as a space, so it is sent as %2B.
func BuildURL(endpoint *url.URL, bucket, key string, opts port.URLOptions) string {
	escaped := EscapeKey(key)
	if opts.AssetHost != "" {
		return urlpath.Join(opts.AssetHost, escaped)
	}
	base := strings.TrimRight(endpoint.Path, "/")
	if opts.VirtualHost {
		return fmt.Sprintf("%s://%s.%s%s/%s", endpoint.Scheme, bucket, endpoint.Host, base, escaped)
	}
	return fmt.Sprintf("%s://%s%s/%s/%s", endpoint.Scheme, endpoint.Host, base, bucket, escaped)
}

// EscapeKey applies path-segment encoding plus the S3 "+" override.
func EscapeKey(key string) string {
	return strings.ReplaceAll(urlpath.Escape(key), "+", "%2B")
}

// CannedACL maps the underscore ACL spelling onto the S3 canned ACL.
func CannedACL(acl domain.ACL) types.ObjectCannedACL {
	return types.ObjectCannedACL(strings.ReplaceAll(string(acl), "_", "-"))
}

func applyHeaders(obj *s3.PutObjectInput, headers map[string]string) {
	for name, value := range headers {
		switch strings.ToLower(name) {
		case "content-type":
			obj.ContentType = aws.String(value)
		case "cache-control":
			obj.CacheControl = aws.String(value)
		case "content-disposition":
			obj.ContentDisposition = aws.String(value)
		case "content-encoding":
			obj.ContentEncoding = aws.String(value)
		case "content-language":
			obj.ContentLanguage = aws.String(value)
		case "expires":
			if t, err := http.ParseTime(value); err == nil {
				obj.Expires = aws.Time(t)
			}
		default:
			if obj.Metadata == nil {
				obj.Metadata = make(map[string]string)
			}
			obj.Metadata[strings.TrimPrefix(strings.ToLower(name), "x-amz-meta-")] = value
		}
	}
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	var respErr *awshttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}

func backendError(op, bucket, key string, err error) error {
	be := &domain.BackendError{Backend: "s3", Op: op, Bucket: bucket, Key: key, Err: err}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		be.StatusCode = respErr.HTTPStatusCode()
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		be.Code = apiErr.ErrorCode()
	}
	return be
}
