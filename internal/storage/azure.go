package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/sirupsen/logrus"
)

// AzureStorage keeps the poll archive in one blob container. Each poll is a
// block blob named polls/<brandId>/<timestamp>.json, so a brand's history is
// a prefix listing.
type AzureStorage struct {
	client        *azblob.Client
	containerName string
}

// Ensure AzureStorage implements StorageInterface
var _ StorageInterface = (*AzureStorage)(nil)

// NewAzureStorage opens the archive container, creating it on first use.
// Credentials come from the default Azure chain (env, managed identity, CLI).
func NewAzureStorage(accountName, containerName string) (*AzureStorage, error) {
	if accountName == "" {
		return nil, fmt.Errorf("archive storage account is required")
	}
	if containerName == "" {
		return nil, fmt.Errorf("archive container is required")
	}

	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	client, err := azblob.NewClient(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	s := &AzureStorage{
		client:        client,
		containerName: containerName,
	}

	if err := s.ensureContainer(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to prepare archive container %s: %w", containerName, err)
	}

	return s, nil
}

func (s *AzureStorage) ensureContainer(ctx context.Context) error {
	_, err := s.client.CreateContainer(ctx, s.containerName, nil)
	if err != nil {
		if !strings.Contains(err.Error(), "ContainerAlreadyExists") {
			return fmt.Errorf("failed to create archive container: %w", err)
		}
		logrus.Debugf("Archive container %s already exists", s.containerName)
	} else {
		logrus.Infof("Created archive container %s", s.containerName)
	}
	return nil
}

// Store uploads one poll document. Documents are small, so a single block
// usually suffices.
func (s *AzureStorage) Store(ctx context.Context, filename string, data []byte) error {
	_, err := s.client.UploadBuffer(ctx, s.containerName, filename, data, &azblob.UploadBufferOptions{
		BlockSize:   int64(1024 * 1024),
		Concurrency: 3,
	})
	if err != nil {
		return fmt.Errorf("failed to archive poll %s: %w", filename, err)
	}

	logrus.WithFields(logrus.Fields{
		"container": s.containerName,
		"blob":      filename,
		"bytes":     len(data),
	}).Debug("Archived poll document")
	return nil
}

// Retrieve downloads one archived poll document
func (s *AzureStorage) Retrieve(ctx context.Context, filename string) ([]byte, error) {
	response, err := s.client.DownloadStream(ctx, s.containerName, filename, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch archived poll %s: %w", filename, err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read archived poll %s: %w", filename, err)
	}
	return data, nil
}

// List returns archived document names under prefix (e.g. "polls/<brandId>/")
// in the lexical order the service returns, which is chronological per brand.
func (s *AzureStorage) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	pager := s.client.NewListBlobsFlatPager(s.containerName, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})

	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list archive under %q: %w", prefix, err)
		}
		for _, blob := range page.Segment.BlobItems {
			if blob.Name != nil {
				names = append(names, *blob.Name)
			}
		}
	}

	return names, nil
}

// Delete removes one archived poll document, as used by archive pruning
func (s *AzureStorage) Delete(ctx context.Context, filename string) error {
	if _, err := s.client.DeleteBlob(ctx, s.containerName, filename, nil); err != nil {
		return fmt.Errorf("failed to prune archived poll %s: %w", filename, err)
	}

	logrus.WithField("blob", filename).Debug("Pruned archived poll document")
	return nil
}
