package entities

import "strings"

// PerformanceMode caps the CPU share the patch management agent may use.
type PerformanceMode string

const (
	PerformanceLow  PerformanceMode = "low"
	PerformanceHigh PerformanceMode = "high"
)

// Agent registry locations, relative to HKEY_LOCAL_MACHINE.
const (
	AgentKey      = `SOFTWARE\WOW6432Node\AdventNet\DesktopCentral\DCAgent`
	AgentPatchKey = AgentKey + `\Patch`

	PatchScanTimeout  = "Patch_scan_timeout"
	ThreadMaxCPUUsage = "THRDMAXCPUUSAGE_2C"
)

// AgentSetting is one DWORD value of the agent configuration.
type AgentSetting struct {
	Key   string
	Name  string
	Value uint32
}

var agentProfiles = map[PerformanceMode][]AgentSetting{
	PerformanceLow: {
		{Key: AgentPatchKey, Name: PatchScanTimeout, Value: 200},
		{Key: AgentKey, Name: ThreadMaxCPUUsage, Value: 15},
	},
	PerformanceHigh: {
		{Key: AgentPatchKey, Name: PatchScanTimeout, Value: 200},
		{Key: AgentKey, Name: ThreadMaxCPUUsage, Value: 30},
	},
}

// ParsePerformanceMode accepts "low" or "high" in any case.
func ParsePerformanceMode(s string) (PerformanceMode, bool) {
	mode := PerformanceMode(strings.ToLower(strings.TrimSpace(s)))
	_, ok := agentProfiles[mode]
	return mode, ok
}

// Settings returns the values the mode writes, in write order.
func (m PerformanceMode) Settings() []AgentSetting {
	return append([]AgentSetting(nil), agentProfiles[m]...)
}

// Setting returns the value the mode uses for name.
func (m PerformanceMode) Setting(name string) (AgentSetting, bool) {
	for _, s := range agentProfiles[m] {
		if s.Name == name {
			return s, true
		}
	}
	return AgentSetting{}, false
}

// AgentSettingFailure is a setting that could not be written.
type AgentSettingFailure struct {
	Setting AgentSetting
	Err     error
}

// AgentApplyReport is the outcome of applying a mode. Settings are written
// independently, so a report can be partial.
type AgentApplyReport struct {
	Mode    PerformanceMode
	Applied []AgentSetting
	Failed  []AgentSettingFailure
}

func (r AgentApplyReport) Total() int { return len(r.Applied) + len(r.Failed) }

func (r AgentApplyReport) Complete() bool { return len(r.Failed) == 0 }

// AgentSettingStatus is the observed state of one agent value. Set is false
// when the value does not exist; Err holds any other read failure.
type AgentSettingStatus struct {
	Key   string
	Name  string
	Value uint32
	Set   bool
	Err   error
}
