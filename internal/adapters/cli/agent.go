package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"collectorkit/internal/application"
	"collectorkit/internal/domain"
	"collectorkit/internal/domain/entities"
	"collectorkit/internal/infrastructure/agentconfig"
	"collectorkit/internal/logging"
	"collectorkit/internal/ports/output"
)

// agentSettings opens the settings file when one is named, the Windows
// registry otherwise.
func (a *App) agentSettings(file string) (output.AgentSettings, error) {
	if file == "" {
		file = a.cfg.AgentSettingsPath
	}
	if file != "" {
		return agentconfig.NewFileStore(file)
	}
	return agentconfig.Native()
}

func (a *App) agentCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Configure the resource limits of the patch management agent",
		Long: `Performance modes:
  low   CPU usage 15%, patch scan timeout 200
  high  CPU usage 30%, patch scan timeout 200

The values live in the DCAgent registry keys on Windows (run elevated), or in
the TOML file named by --file or AGENT_SETTINGS_PATH.`,
	}
	cmd.PersistentFlags().StringVar(&file, "file", "", "settings file used instead of the registry")

	mode := &cobra.Command{
		Use:       "mode low|high",
		Short:     "Apply a performance mode",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(entities.PerformanceLow), string(entities.PerformanceHigh)},
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ok := entities.ParsePerformanceMode(args[0])
			if !ok {
				return domain.Wrap("agent mode", domain.ErrValidationFailed, fmt.Errorf("unknown mode %q (low or high)", args[0]))
			}
			settings, err := a.agentSettings(file)
			if err != nil {
				return err
			}

			p := a.print()
			p.Header(fmt.Sprintf("Configuring the agent for %s performance mode", m))
			if s, ok := m.Setting(entities.ThreadMaxCPUUsage); ok {
				p.Info(fmt.Sprintf("CPU usage limit: %d%%", s.Value))
			}
			if s, ok := m.Setting(entities.PatchScanTimeout); ok {
				p.Info(fmt.Sprintf("Patch scan timeout: %d seconds", s.Value))
			}

			report, err := application.NewAgentService(settings).Apply(cmd.Context(), m)
			if report == nil {
				return err
			}
			for _, s := range report.Applied {
				logging.LogEvent(a.logger, "agent setting applied", "info", "key", s.Key, "name", s.Name, "value", s.Value)
				p.Success(fmt.Sprintf(`%s\%s = %d`, s.Key, s.Name, s.Value))
			}
			for _, f := range report.Failed {
				logging.LogEvent(a.logger, "agent setting failed", "error", "key", f.Setting.Key, "name", f.Setting.Name, "error", f.Err.Error())
				p.Error(fmt.Sprintf(`%s\%s: %s`, f.Setting.Key, f.Setting.Name, ErrorMessage(a.tr, a.tr.Language(), f.Err)))
			}
			if err != nil {
				if len(report.Applied) > 0 {
					p.Warning(fmt.Sprintf("only %d/%d settings applied", len(report.Applied), report.Total()))
				}
				return err
			}
			p.Success("configuration applied")
			p.Info("the DCAgent service may need a restart for the changes to take effect")
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current agent settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := a.agentSettings(file)
			if err != nil {
				return err
			}
			values, err := application.NewAgentService(settings).Status(cmd.Context())
			if err != nil {
				return err
			}
			rows := [][]string{{"SETTING", "VALUE", "KEY"}}
			for _, v := range values {
				value := "not set"
				switch {
				case v.Err != nil:
					value = "error: " + v.Err.Error()
				case v.Set:
					value = strconv.FormatUint(uint64(v.Value), 10)
				}
				rows = append(rows, []string{v.Name, value, v.Key})
			}
			a.print().Table(rows)
			return nil
		},
	}

	cmd.AddCommand(mode, status)
	return cmd
}
