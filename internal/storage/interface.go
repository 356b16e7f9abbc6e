package storage

import (
	"context"
	"fmt"

	"github.com/websapdev/ai-visibility/internal/config"
)

// StorageInterface defines the contract for the poll archive
type StorageInterface interface {
	Store(ctx context.Context, filename string, data []byte) error
	Retrieve(ctx context.Context, filename string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, filename string) error
}

// New builds the archive selected by cfg.ArchiveBackend. "none" returns nil.
func New(cfg *config.Config) (StorageInterface, error) {
	switch cfg.ArchiveBackend {
	case "", "none":
		return nil, nil
	case "file":
		fs, err := NewFileStorage(cfg.ArchiveDir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case "azure":
		az, err := NewAzureStorage(cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			return nil, err
		}
		return az, nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.ArchiveBackend)
	}
}
