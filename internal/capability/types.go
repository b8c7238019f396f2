// Package capability provides the catalog of invocable capabilities for
// the orchestration engine. A capability is described by a Descriptor,
// validated against its declared schema, and invoked through the Registry,
// which never lets an executor failure escape as anything other than a
// failed Result.
package capability

import (
	"context"
	"fmt"
	"time"
)

// Origin indicates where a capability descriptor came from.
type Origin string

const (
	// OriginStatic marks capabilities registered in-process.
	OriginStatic Origin = "static"

	// OriginRemote marks capabilities discovered from a remote catalog.
	OriginRemote Origin = "remote"
)

// Category classifies capabilities for selection and gating.
type Category string

const (
	// CategoryRecords covers structured record lookup and mutation.
	CategoryRecords Category = "records"

	// CategoryCommunication covers email, messaging, notifications.
	CategoryCommunication Category = "communication"

	// CategorySearch covers file and document search.
	CategorySearch Category = "search"

	// CategoryWeb covers web lookups.
	CategoryWeb Category = "web"

	// CategoryGeneral is for capabilities usable by any request.
	CategoryGeneral Category = "general"
)

// Property describes a single parameter for the declared schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	// Items describes array element schema (required for type="array").
	Items *PropertyItems `json:"items,omitempty"`
}

// PropertyItems describes the schema for array elements.
type PropertyItems struct {
	Type string `json:"type"`
}

// Schema defines the declared parameters of a capability.
type Schema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// Descriptor is the static metadata describing an invocable capability.
type Descriptor struct {
	// Name is the unique key for lookup and invocation.
	Name string `json:"name"`

	// Description explains what the capability does. Sent to the model
	// as part of the catalog.
	Description string `json:"description"`

	// Schema defines the expected parameters.
	Schema Schema `json:"schema"`

	// Category classifies the capability for selection.
	Category Category `json:"category"`

	// Origin records whether the descriptor is static or remote.
	Origin Origin `json:"origin"`
}

// Validate checks that the descriptor is usable as a registry key.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return ErrNameEmpty
	}
	return nil
}

// Result is the uniform outcome of a capability invocation.
// Invariant: Success=false implies Error is set; Success=true implies
// Data or Message is set.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// OK builds a successful result carrying data.
func OK(data any) *Result {
	return &Result{Success: true, Data: data}
}

// OKMessage builds a successful result carrying only a message.
func OKMessage(format string, args ...any) *Result {
	return &Result{Success: true, Message: fmt.Sprintf(format, args...)}
}

// Fail builds a failed result.
func Fail(format string, args ...any) *Result {
	return &Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Normalize repairs a result that violates the package invariant, so a
// sloppy executor cannot leak an empty success or a silent failure.
func (r *Result) Normalize() {
	if r.Success {
		if r.Data == nil && r.Message == "" {
			r.Message = "completed"
		}
		return
	}
	if r.Error == "" {
		r.Error = "capability failed without detail"
	}
}

// Invocation records one capability call with timing.
type Invocation struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Params      map[string]any `json:"params"`
	Result      *Result        `json:"result"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
	Duration    time.Duration  `json:"duration"`
}

// Capability is an invocable unit: static metadata plus an executor.
type Capability interface {
	Descriptor() Descriptor
	Invoke(ctx context.Context, params map[string]any) (*Result, error)
}

// Func adapts a descriptor and a function into a Capability.
type Func struct {
	Desc Descriptor
	Fn   func(ctx context.Context, params map[string]any) (*Result, error)
}

// Descriptor returns the capability's metadata.
func (f *Func) Descriptor() Descriptor { return f.Desc }

// Invoke runs the wrapped function.
func (f *Func) Invoke(ctx context.Context, params map[string]any) (*Result, error) {
	if f.Fn == nil {
		return nil, ErrInvokeNil
	}
	return f.Fn(ctx, params)
}

var _ Capability = (*Func)(nil)
