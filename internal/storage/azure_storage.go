package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

type azureStorage struct {
	client    *azblob.Client
	container string
}

// NewAzureStorage serves artifacts from a blob container.
func NewAzureStorage(accountName, accountKey, container string) (ArtifactStore, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		&azblob.ClientOptions{ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries: httpAttempts - 1,
				RetryDelay: time.Second,
			},
			Telemetry: policy.TelemetryOptions{ApplicationID: "go-medical-analyzer"},
		}},
	)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}

	return &azureStorage{client: client, container: container}, nil
}

func (s *azureStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, name, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("download %s/%s: %w", s.container, name, err)
	}
	return resp.Body, nil
}

func (s *azureStorage) Exists(ctx context.Context, name string) (bool, error) {
	blob := s.client.ServiceClient().NewContainerClient(s.container).NewBlobClient(name)
	_, err := blob.GetProperties(ctx, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("blob properties %s/%s: %w", s.container, name, err)
	}
	return true, nil
}

func (s *azureStorage) Location() string {
	return s.client.URL() + s.container
}
