package application

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"collectorkit/internal/domain"
	"collectorkit/internal/domain/entities"
	"collectorkit/internal/ports/output"
)

// agentValues are the values reported by Status, in display order.
var agentValues = []struct{ key, name string }{
	{entities.AgentPatchKey, entities.PatchScanTimeout},
	{entities.AgentKey, entities.ThreadMaxCPUUsage},
}

// AgentService configures the resource limits of the patch management agent.
type AgentService struct {
	settings output.AgentSettings
}

func NewAgentService(settings output.AgentSettings) *AgentService {
	return &AgentService{settings: settings}
}

// Apply writes every setting of mode. A failed write does not stop the
// others; the report lists both sides and the error combines the failures.
func (s *AgentService) Apply(ctx context.Context, mode entities.PerformanceMode) (*entities.AgentApplyReport, error) {
	op := fmt.Sprintf("apply %s performance mode", mode)
	settings := mode.Settings()
	if len(settings) == 0 {
		return nil, domain.Wrap(op, domain.ErrValidationFailed, fmt.Errorf("unknown mode %q", mode))
	}

	report := &entities.AgentApplyReport{Mode: mode}
	var errs error
	for _, setting := range settings {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := s.settings.SetDWORD(ctx, setting.Key, setting.Name, setting.Value); err != nil {
			report.Failed = append(report.Failed, entities.AgentSettingFailure{Setting: setting, Err: err})
			errs = multierr.Append(errs, fmt.Errorf("%s\\%s: %w", setting.Key, setting.Name, err))
			continue
		}
		report.Applied = append(report.Applied, setting)
	}
	if errs != nil {
		return report, fmt.Errorf("%s: %d/%d settings applied: %w", op, len(report.Applied), report.Total(), errs)
	}
	return report, nil
}

// Status reads the current agent values. Only a cancelled context fails the
// call; per-value problems are reported in the result.
func (s *AgentService) Status(ctx context.Context) ([]entities.AgentSettingStatus, error) {
	out := make([]entities.AgentSettingStatus, 0, len(agentValues))
	for _, v := range agentValues {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		status := entities.AgentSettingStatus{Key: v.key, Name: v.name}
		value, err := s.settings.DWORD(ctx, v.key, v.name)
		switch {
		case err == nil:
			status.Value = value
			status.Set = true
		case errors.Is(err, domain.ErrNotFound):
		default:
			status.Err = err
		}
		out = append(out, status)
	}
	return out, nil
}
