// Package remote provides the optional remote capability catalog: a
// secondary, dynamically discovered source of capability descriptors
// behind a TTL cache. On any remote failure the catalog degrades
// silently so the registry keeps serving static capabilities.
package remote

import (
	"context"
	"encoding/json"
)

// Descriptor is the wire form of a remotely discovered capability.
type Descriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// CallResult is the wire form of a remote invocation outcome.
type CallResult struct {
	Success   bool            `json:"success"`
	Output    json.RawMessage `json:"output,omitempty"`
	Message   string          `json:"message,omitempty"`
	Error     string          `json:"error,omitempty"`
	LatencyMs int64           `json:"latency_ms"`
}

// Transport is the protocol-level interface to a remote catalog server.
type Transport interface {
	// ListTools retrieves the currently published descriptors.
	ListTools(ctx context.Context) ([]Descriptor, error)

	// CallTool invokes a remote capability. Protocol-level failures are
	// returned inside the CallResult where possible.
	CallTool(ctx context.Context, name string, args map[string]any) (*CallResult, error)

	// Ping checks if the server is responsive.
	Ping(ctx context.Context) error
}
