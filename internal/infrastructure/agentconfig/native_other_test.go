//go:build !windows

package agentconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"collectorkit/internal/domain"
)

func TestNativeNeedsWindows(t *testing.T) {
	store, err := Native()
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Nil(t, store)
}
