// Package s3store implements blobtypes.BlobStore on top of Amazon S3 and
// S3-compatible services.
//
// The storage account identifier and credential of a run map to a static
// access key pair; the run's container maps to a bucket and blob names map to
// object keys.
package s3store

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/gabriel-vasile/mimetype"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/blobtypes"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
)

// S3 error code constants
const (
	NoSuchBucket          = "NoSuchBucket"
	AccessDenied          = "AccessDenied"
	InvalidAccessKeyID    = "InvalidAccessKeyId"
	SignatureDoesNotMatch = "SignatureDoesNotMatch"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "us-east-1"

// API defines the S3 operations used by the store.
// It is satisfied by *s3.Client and allows mocking in tests.
type API interface {
	// PutObject uploads an object to S3
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store writes blobs as S3 objects.
// It is safe for concurrent use.
type Store struct {
	api    API
	logger *slog.Logger
}

var _ blobtypes.BlobStore = (*Store)(nil)

type storeOptions struct {
	region     string
	endpoint   string
	pathStyle  bool
	maxRetries int
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Store.
type Option func(*storeOptions)

// WithRegion sets the AWS region. Default is us-east-1.
func WithRegion(region string) Option {
	return func(o *storeOptions) {
		o.region = region
	}
}

// WithEndpoint sets a custom S3 endpoint URL.
// This is useful for S3-compatible services or local testing with LocalStack.
func WithEndpoint(endpoint string) Option {
	return func(o *storeOptions) {
		o.endpoint = endpoint
	}
}

// WithForcePathStyle forces path-style URLs instead of virtual-hosted style.
func WithForcePathStyle(pathStyle bool) Option {
	return func(o *storeOptions) {
		o.pathStyle = pathStyle
	}
}

// WithMaxRetries sets the maximum number of SDK retry attempts. Default is 3.
func WithMaxRetries(maxRetries int) Option {
	return func(o *storeOptions) {
		if maxRetries > 0 {
			o.maxRetries = maxRetries
		}
	}
}

// WithTimeout sets a timeout for each HTTP request. Default is none.
func WithTimeout(timeout time.Duration) Option {
	return func(o *storeOptions) {
		o.timeout = timeout
	}
}

// WithLogger sets the logger. If logger is nil, logging will be disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(o *storeOptions) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) *storeOptions {
	o := &storeOptions{
		region:     DefaultRegion,
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// New creates a Store authenticated with the static key pair accountID/credential.
func New(ctx context.Context, accountID, credential string, opts ...Option) (*Store, error) {
	if accountID == "" || credential == "" {
		return nil, errors.NewError("client initialization", errors.ErrInvalidCredentials).
			WithMessage("account and credential are required")
	}

	o := buildOptions(opts)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(o.region),
		config.WithRetryMaxAttempts(o.maxRetries),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accountID, credential, ""),
		),
	)
	if err != nil {
		return nil, errors.NewError("client initialization", err)
	}

	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.endpoint != "" {
			so.BaseEndpoint = aws.String(o.endpoint)
		}
		so.UsePathStyle = o.pathStyle
		if o.timeout > 0 {
			so.HTTPClient = &http.Client{Timeout: o.timeout}
		}
	})

	return &Store{api: client, logger: o.logger}, nil
}

// NewWithAPI creates a Store over an existing S3 API implementation.
func NewWithAPI(api API, opts ...Option) *Store {
	o := buildOptions(opts)
	return &Store{api: api, logger: o.logger}
}

// Store uploads payload as the object blobName in bucket container.
// The content type is detected from the payload.
func (s *Store) Store(ctx context.Context, container, blobName string, payload []byte) error {
	contentType := mimetype.Detect(payload).String()

	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(container),
		Key:           aws.String(blobName),
		Body:          bytes.NewReader(payload),
		ContentLength: aws.Int64(int64(len(payload))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return convertError(container, blobName, err)
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "stored object",
			"bucket", container,
			"key", blobName,
			"size", len(payload),
			"content_type", contentType,
		)
	}
	return nil
}

// convertError maps S3 failures onto the package sentinels.
func convertError(bucket, key string, err error) error {
	var noBucket *types.NoSuchBucket
	if stderrors.As(err, &noBucket) {
		return errors.NewBlobError("store", bucket, key, errors.ErrContainerNotFound)
	}

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		var sentinel error
		switch apiErr.ErrorCode() {
		case NoSuchBucket:
			sentinel = errors.ErrContainerNotFound
		case AccessDenied:
			sentinel = errors.ErrAccessDenied
		case InvalidAccessKeyID, SignatureDoesNotMatch:
			sentinel = errors.ErrInvalidCredentials
		}
		if sentinel != nil {
			return errors.NewBlobError("store", bucket, key,
				fmt.Errorf("%w: %s: %s", sentinel, apiErr.ErrorCode(), apiErr.ErrorMessage()))
		}
	}

	return errors.NewBlobError("store", bucket, key, err)
}
