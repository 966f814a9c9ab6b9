package application

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"collectorkit/internal/domain"
	"collectorkit/internal/domain/entities"
)

// memorySettings keeps values in a map and fails writes to the keys in deny.
type memorySettings struct {
	values map[string]uint32
	deny   map[string]bool
	broken map[string]bool
}

func newMemorySettings() *memorySettings {
	return &memorySettings{values: map[string]uint32{}, deny: map[string]bool{}, broken: map[string]bool{}}
}

func (m *memorySettings) SetDWORD(_ context.Context, key, name string, value uint32) error {
	if m.deny[key] {
		return domain.Wrap("set "+name, domain.ErrAccessDenied, fs.ErrPermission)
	}
	m.values[key+`\`+name] = value
	return nil
}

func (m *memorySettings) DWORD(_ context.Context, key, name string) (uint32, error) {
	if m.broken[key] {
		return 0, errors.New("value is not a REG_DWORD")
	}
	v, ok := m.values[key+`\`+name]
	if !ok {
		return 0, domain.Wrap("read "+name, domain.ErrNotFound, nil)
	}
	return v, nil
}

func TestAgentServiceApply(t *testing.T) {
	tests := []struct {
		mode    entities.PerformanceMode
		cpu     uint32
		timeout uint32
	}{
		{entities.PerformanceLow, 15, 200},
		{entities.PerformanceHigh, 30, 200},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			settings := newMemorySettings()
			report, err := NewAgentService(settings).Apply(context.Background(), tt.mode)
			require.NoError(t, err)
			assert.True(t, report.Complete())
			assert.Equal(t, 2, report.Total())
			assert.Equal(t, tt.cpu, settings.values[entities.AgentKey+`\`+entities.ThreadMaxCPUUsage])
			assert.Equal(t, tt.timeout, settings.values[entities.AgentPatchKey+`\`+entities.PatchScanTimeout])
		})
	}
}

func TestAgentServiceApplyReportsPartialSuccess(t *testing.T) {
	settings := newMemorySettings()
	settings.deny[entities.AgentKey] = true

	report, err := NewAgentService(settings).Apply(context.Background(), entities.PerformanceHigh)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	assert.Contains(t, err.Error(), "1/2 settings applied")
	assert.Len(t, multierr.Errors(errors.Unwrap(err)), 1)

	require.NotNil(t, report)
	assert.False(t, report.Complete())
	require.Len(t, report.Applied, 1)
	assert.Equal(t, entities.PatchScanTimeout, report.Applied[0].Name)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, entities.ThreadMaxCPUUsage, report.Failed[0].Setting.Name)
	assert.Equal(t, uint32(200), settings.values[entities.AgentPatchKey+`\`+entities.PatchScanTimeout])
}

func TestAgentServiceApplyUnknownMode(t *testing.T) {
	report, err := NewAgentService(newMemorySettings()).Apply(context.Background(), "turbo")
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Nil(t, report)
}

func TestAgentServiceStatus(t *testing.T) {
	settings := newMemorySettings()
	svc := NewAgentService(settings)
	ctx := context.Background()

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 2)
	for _, s := range status {
		assert.False(t, s.Set, s.Name)
		assert.NoError(t, s.Err)
	}

	_, err = svc.Apply(ctx, entities.PerformanceLow)
	require.NoError(t, err)
	settings.broken[entities.AgentKey] = true

	status, err = svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.PatchScanTimeout, status[0].Name)
	assert.True(t, status[0].Set)
	assert.Equal(t, uint32(200), status[0].Value)
	assert.Equal(t, entities.ThreadMaxCPUUsage, status[1].Name)
	assert.False(t, status[1].Set)
	assert.Error(t, status[1].Err)
}

func TestParsePerformanceMode(t *testing.T) {
	mode, ok := entities.ParsePerformanceMode(" HIGH ")
	assert.True(t, ok)
	assert.Equal(t, entities.PerformanceHigh, mode)

	s, ok := mode.Setting(entities.ThreadMaxCPUUsage)
	assert.True(t, ok)
	assert.Equal(t, uint32(30), s.Value)

	_, ok = entities.ParsePerformanceMode("medium")
	assert.False(t, ok)
}
