//go:build windows

package agentconfig

import (
	"context"
	"fmt"

	"golang.org/x/sys/windows/registry"

	"collectorkit/internal/ports/output"
)

var _ output.AgentSettings = (*RegistryStore)(nil)

// RegistryStore writes REG_DWORD values below a root key, normally
// HKEY_LOCAL_MACHINE, which needs an elevated process.
type RegistryStore struct {
	root registry.Key
}

func NewRegistryStore(root registry.Key) *RegistryStore {
	return &RegistryStore{root: root}
}

// Native opens the agent settings of the local machine.
func Native() (output.AgentSettings, error) {
	return NewRegistryStore(registry.LOCAL_MACHINE), nil
}

func (s *RegistryStore) SetDWORD(_ context.Context, key, name string, value uint32) error {
	op := fmt.Sprintf("set HKLM\\%s\\%s", key, name)
	k, _, err := registry.CreateKey(s.root, key, registry.SET_VALUE)
	if err != nil {
		return classify(op, err)
	}
	defer k.Close()
	if err := k.SetDWordValue(name, value); err != nil {
		return classify(op, err)
	}
	return nil
}

func (s *RegistryStore) DWORD(_ context.Context, key, name string) (uint32, error) {
	op := fmt.Sprintf("read HKLM\\%s\\%s", key, name)
	k, err := registry.OpenKey(s.root, key, registry.QUERY_VALUE)
	if err != nil {
		return 0, classify(op, err)
	}
	defer k.Close()
	value, valtype, err := k.GetIntegerValue(name)
	if err != nil {
		return 0, classify(op, err)
	}
	if valtype != registry.DWORD {
		return 0, fmt.Errorf("%s: value is not a REG_DWORD", op)
	}
	return uint32(value), nil
}
