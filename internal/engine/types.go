package engine

import (
	"time"

	"concierge/internal/capability"
	"concierge/internal/promptctx"
)

// StepType classifies one recorded unit of loop work.
type StepType string

const (
	StepAnalysis   StepType = "analysis"
	StepInvocation StepType = "invocation"
	StepValidation StepType = "validation"
	StepSynthesis  StepType = "synthesis"
)

// Step is one atomic, recorded unit of orchestration work. IDs are
// monotonic within a run; a synthesis step, when recorded, is last.
type Step struct {
	ID         int                    `json:"id"`
	Type       StepType               `json:"type"`
	Content    string                 `json:"content"`
	Timestamp  time.Time              `json:"timestamp"`
	Invocation *capability.Invocation `json:"invocation,omitempty"`
}

// Budgets are the hard ceilings bounding a single run. The loop
// terminates on exhaustion regardless of what the model asks for next.
type Budgets struct {
	MaxSteps int `json:"max_steps"`
	MaxCalls int `json:"max_calls"`
}

// Request is the top-level contract for one orchestration run. Chat
// history is caller-supplied and read-only; the engine keeps no state
// between runs.
type Request struct {
	UserMessage     string
	ChatHistory     []promptctx.Turn
	Budgets         Budgets
	DevelopmentMode bool
}

// Response carries the synthesized answer and the full step and
// invocation trace. On terminal failure Success is false, FinalAnswer
// holds a user-safe message, Error the internal detail, and the partial
// trace is still populated.
type Response struct {
	FinalAnswer string
	Steps       []Step
	Invocations []capability.Invocation
	Success     bool
	Error       string
}

// ProgressSink receives ordered human-readable progress events during a
// run. Implementations are called synchronously from the loop; a panic
// in a sink is contained and never reaches the loop.
type ProgressSink interface {
	OnProgress(message string)
}

// ProgressFunc adapts a function to the ProgressSink interface.
type ProgressFunc func(string)

func (f ProgressFunc) OnProgress(message string) { f(message) }
