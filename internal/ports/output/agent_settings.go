package output

import "context"

// AgentSettings reads and writes the DWORD values of the agent configuration.
// Keys are backslash-separated paths.
type AgentSettings interface {
	SetDWORD(ctx context.Context, key, name string, value uint32) error
	// DWORD fails with domain.ErrNotFound when the key or value is absent.
	DWORD(ctx context.Context, key, name string) (uint32, error)
}
