package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/websapdev/ai-visibility/internal/config"
)

func TestNewAzureStorage_RequiresAccountAndContainer(t *testing.T) {
	_, err := NewAzureStorage("", "visibility-polls")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account")

	_, err = NewAzureStorage("acct", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "container")

	// An azure archive without an account fails before touching the network
	archive, err := New(&config.Config{ArchiveBackend: "azure", StorageContainer: "visibility-polls"})
	assert.Error(t, err)
	assert.Nil(t, archive)
}
