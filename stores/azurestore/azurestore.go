// Package azurestore implements blobtypes.BlobStore on Azure Blob Storage
// using a storage account name and shared access key.
package azurestore

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/gabriel-vasile/mimetype"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/blobtypes"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
)

// API defines the Azure Blob operations used by the store.
// It is satisfied by *azblob.Client.
type API interface {
	UploadBuffer(
		ctx context.Context,
		containerName, blobName string,
		buffer []byte,
		o *azblob.UploadBufferOptions,
	) (azblob.UploadBufferResponse, error)
}

// Store writes blobs as Azure block blobs.
// It is safe for concurrent use.
type Store struct {
	api    API
	logger *slog.Logger
}

var _ blobtypes.BlobStore = (*Store)(nil)

type storeOptions struct {
	serviceURL string
	maxRetries int32
	tryTimeout time.Duration
	logger     *slog.Logger
}

// Option configures a Store.
type Option func(*storeOptions)

// WithServiceURL overrides the blob service URL, e.g. for the Azurite emulator.
// Default is https://<account>.blob.core.windows.net/.
func WithServiceURL(url string) Option {
	return func(o *storeOptions) {
		o.serviceURL = url
	}
}

// WithMaxRetries sets the SDK retry count. Default is 3.
func WithMaxRetries(maxRetries int) Option {
	return func(o *storeOptions) {
		if maxRetries > 0 {
			o.maxRetries = int32(maxRetries)
		}
	}
}

// WithTimeout bounds each HTTP attempt. Default is the SDK's.
func WithTimeout(timeout time.Duration) Option {
	return func(o *storeOptions) {
		o.tryTimeout = timeout
	}
}

// WithLogger sets the logger. If logger is nil, logging will be disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(o *storeOptions) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) *storeOptions {
	o := &storeOptions{maxRetries: 3}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ServiceURL returns the public blob endpoint of an account.
func ServiceURL(account string) string {
	return fmt.Sprintf("https://%s.blob.core.windows.net/", account)
}

// New creates a Store authenticated with the account's shared key.
func New(account, accessKey string, opts ...Option) (*Store, error) {
	if account == "" || accessKey == "" {
		return nil, errors.NewError("client initialization", errors.ErrInvalidCredentials).
			WithMessage("account and credential are required")
	}

	o := buildOptions(opts)
	if o.serviceURL == "" {
		o.serviceURL = ServiceURL(account)
	}

	cred, err := azblob.NewSharedKeyCredential(account, accessKey)
	if err != nil {
		return nil, errors.NewError("client initialization",
			fmt.Errorf("%w: %w", errors.ErrInvalidCredentials, err))
	}

	client, err := azblob.NewClientWithSharedKeyCredential(o.serviceURL, cred, &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries: o.maxRetries,
				TryTimeout: o.tryTimeout,
			},
		},
	})
	if err != nil {
		return nil, errors.NewError("client initialization", err)
	}

	return &Store{api: client, logger: o.logger}, nil
}

// NewWithAPI creates a Store over an existing Azure Blob API implementation.
func NewWithAPI(api API, opts ...Option) *Store {
	o := buildOptions(opts)
	return &Store{api: api, logger: o.logger}
}

// Store uploads payload as the block blob blobName in container.
// The content type is detected from the payload.
func (s *Store) Store(ctx context.Context, container, blobName string, payload []byte) error {
	contentType := mimetype.Detect(payload).String()

	_, err := s.api.UploadBuffer(ctx, container, blobName, payload, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: to.Ptr(contentType),
		},
	})
	if err != nil {
		return convertError(container, blobName, err)
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "stored blob",
			"container", container,
			"blob", blobName,
			"size", len(payload),
			"content_type", contentType,
		)
	}
	return nil
}

// convertError maps Azure storage failures onto the package sentinels.
func convertError(container, blobName string, err error) error {
	var sentinel error
	switch {
	case bloberror.HasCode(err, bloberror.ContainerNotFound):
		sentinel = errors.ErrContainerNotFound
	case bloberror.HasCode(err, bloberror.AuthenticationFailed):
		sentinel = errors.ErrInvalidCredentials
	case bloberror.HasCode(err,
		bloberror.AuthorizationFailure,
		bloberror.AuthorizationPermissionMismatch,
		bloberror.InsufficientAccountPermissions):
		sentinel = errors.ErrAccessDenied
	}

	var respErr *azcore.ResponseError
	if sentinel != nil && stderrors.As(err, &respErr) {
		return errors.NewBlobError("store", container, blobName,
			fmt.Errorf("%w: %s (status %d)", sentinel, respErr.ErrorCode, respErr.StatusCode))
	}

	return errors.NewBlobError("store", container, blobName, err)
}
