package storage

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"PaperIngest/internal/config"
	"PaperIngest/internal/domain"
	"PaperIngest/internal/ports"
)

// blobStore is the slice of the container API the sink needs.
type blobStore interface {
	Exists(ctx context.Context, name string) (bool, error)
	Upload(ctx context.Context, name string, body []byte, contentType string, metadata map[string]*string) error
}

// AzureSink uploads blobs into one container, overwriting existing ones.
type AzureSink struct {
	store blobStore
}

var _ ports.Sink = (*AzureSink)(nil)

// OpenAzure connects with a storage account connection string. When
// createContainer is set the container is created if missing.
func OpenAzure(ctx context.Context, cfg config.AzureConfig, createContainer bool) (*AzureSink, error) {
	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}
	if createContainer {
		_, err := client.CreateContainer(ctx, cfg.Container, nil)
		if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return nil, fmt.Errorf("create container %s: %w", cfg.Container, err)
		}
	}
	return &AzureSink{store: &azblobStore{client: client, container: cfg.Container}}, nil
}

// Exists asks the service for the blob properties.
func (s *AzureSink) Exists(ctx context.Context, key string) (bool, error) {
	return s.store.Exists(ctx, key)
}

// Write uploads the document or the JSON record. An annotated document is
// preceded by a JSON sidecar blob.
func (s *AzureSink) Write(ctx context.Context, key string, record domain.Record) error {
	meta := map[string]*string{
		"paper_id": to.Ptr(record.PaperID),
		"source":   to.Ptr(record.Source),
	}

	name, sidecar, ok, err := blobSidecar(key, record)
	if err != nil {
		return err
	}
	if ok {
		if err := s.store.Upload(ctx, name, sidecar, jsonContentType, meta); err != nil {
			return fmt.Errorf("upload sidecar: %w", err)
		}
	}

	body, contentType, err := blobPayload(record)
	if err != nil {
		return err
	}
	if err := s.store.Upload(ctx, key, body, contentType, meta); err != nil {
		return fmt.Errorf("upload blob: %w", err)
	}
	return nil
}

type azblobStore struct {
	client    *azblob.Client
	container string
}

func (a *azblobStore) Exists(ctx context.Context, name string) (bool, error) {
	blobClient := a.client.ServiceClient().NewContainerClient(a.container).NewBlobClient(name)
	_, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound, bloberror.ResourceNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get blob properties: %w", err)
	}
	return true, nil
}

func (a *azblobStore) Upload(ctx context.Context, name string, body []byte, contentType string, metadata map[string]*string) error {
	_, err := a.client.UploadBuffer(ctx, a.container, name, body, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr(contentType)},
		Metadata:    metadata,
	})
	return err
}
