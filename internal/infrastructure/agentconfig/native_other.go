//go:build !windows

package agentconfig

import (
	"errors"

	"collectorkit/internal/domain"
	"collectorkit/internal/ports/output"
)

// Native fails outside Windows: the agent registry only exists there.
func Native() (output.AgentSettings, error) {
	return nil, domain.Wrap("agent settings", domain.ErrValidationFailed,
		errors.New("the Windows registry is unavailable on this platform, set AGENT_SETTINGS_PATH"))
}
