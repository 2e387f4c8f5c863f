package s3

import (
	"context"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithyendpoints "github.com/aws/smithy-go/endpoints"
)

// assetHostResolver signs requests against a custom asset host, so the bucket
// never appears in the URL and the key is appended to the host directly.
type assetHostResolver struct {
	uri url.URL
}

var _ s3.EndpointResolverV2 = (*assetHostResolver)(nil)

func (r *assetHostResolver) ResolveEndpoint(_ context.Context, _ s3.EndpointParameters) (smithyendpoints.Endpoint, error) {
	return smithyendpoints.Endpoint{URI: r.uri}, nil
}
