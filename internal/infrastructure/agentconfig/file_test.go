package agentconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collectorkit/internal/domain"
	"collectorkit/internal/domain/entities"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent", "settings.toml")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.DWORD(ctx, entities.AgentKey, entities.ThreadMaxCPUUsage)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.SetDWORD(ctx, entities.AgentKey, entities.ThreadMaxCPUUsage, 15))
	require.NoError(t, store.SetDWORD(ctx, entities.AgentPatchKey, entities.PatchScanTimeout, 200))
	require.NoError(t, store.SetDWORD(ctx, entities.AgentKey, entities.ThreadMaxCPUUsage, 30))

	cpu, err := store.DWORD(ctx, entities.AgentKey, entities.ThreadMaxCPUUsage)
	require.NoError(t, err)
	assert.Equal(t, uint32(30), cpu)
	timeout, err := store.DWORD(ctx, entities.AgentPatchKey, entities.PatchScanTimeout)
	require.NoError(t, err)
	assert.Equal(t, uint32(200), timeout)

	_, err = store.DWORD(ctx, entities.AgentPatchKey, entities.ThreadMaxCPUUsage)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "THRDMAXCPUUSAGE_2C = 30")
	assert.Contains(t, string(raw), "DCAgent")
}

func TestFileStoreRejectsBadInput(t *testing.T) {
	_, err := NewFileStore(" ")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0o600))
	store, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = store.DWORD(context.Background(), entities.AgentKey, entities.ThreadMaxCPUUsage)
	assert.ErrorIs(t, err, domain.ErrParseError)

	err = store.SetDWORD(context.Background(), "", "x", 1)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
}
