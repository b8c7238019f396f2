// Package engine drives the orchestration loop: it turns one
// natural-language request into a bounded sequence of capability
// invocations and a synthesized answer. The loop is strictly
// sequential within a run; concurrency exists only across independent
// runs, each owning its own session state.
package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"concierge/internal/capability"
	"concierge/internal/llm"
	"concierge/internal/logging"
	"concierge/internal/parser"
	"concierge/internal/promptctx"
)

// apologyMessage is the fixed user-safe text returned on terminal
// failure. Internal detail goes to Response.Error and the log, not the
// user, unless development mode is on.
const apologyMessage = "I'm sorry, something went wrong on my side and I couldn't complete your request."

// DefaultBudgets bound a run when the caller supplies none.
var DefaultBudgets = Budgets{MaxSteps: 12, MaxCalls: 6}

// Engine orchestrates model calls and capability invocations for one
// request at a time. It is stateless across runs and safe for
// concurrent use.
type Engine struct {
	client   llm.Client
	registry *capability.Registry
	builder  *promptctx.Builder
	policy   ValidationPolicy
	sink     ProgressSink
	defaults Budgets
}

// Option configures an Engine.
type Option func(*Engine)

// WithProgressSink registers a sink for ordered progress events.
func WithProgressSink(s ProgressSink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithDedupWindow sets the context builder's dedup window.
func WithDedupWindow(k int) Option {
	return func(e *Engine) { e.builder = promptctx.NewBuilder(k) }
}

// WithValidation sets the draft review policy. Passing nil disables
// the validation pass entirely.
func WithValidation(p ValidationPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithDefaultBudgets overrides the budgets applied when a request
// carries none.
func WithDefaultBudgets(b Budgets) Option {
	return func(e *Engine) { e.defaults = b }
}

// New creates an engine over a model client and a capability registry.
func New(client llm.Client, registry *capability.Registry, opts ...Option) *Engine {
	e := &Engine{
		client:   client,
		registry: registry,
		builder:  promptctx.NewBuilder(3),
		policy:   VerdictPolicy{},
		defaults: DefaultBudgets,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// session is the per-run state. Created at the top of Run, mutated only
// by loop iterations, discarded when Run returns.
type session struct {
	req         Request
	budgets     Budgets
	steps       []Step
	invocations []capability.Invocation
	stepSeq     int
	intent      string
	draft       string
	forced      bool
}

// recordStep appends a step if the step budget has headroom; IDs stay
// monotonic either way. Steps past the ceiling are dropped rather than
// recorded, so a response never carries more than MaxSteps steps.
func (s *session) recordStep(t StepType, content string, inv *capability.Invocation) {
	if len(s.steps) >= s.budgets.MaxSteps {
		return
	}
	s.stepSeq++
	s.steps = append(s.steps, Step{
		ID:         s.stepSeq,
		Type:       t,
		Content:    content,
		Timestamp:  time.Now(),
		Invocation: inv,
	})
}

// Run executes the full loop for one request. It never panics and
// never returns a false success: anything that escapes a phase becomes
// a terminal failure carrying the partial trace.
func (e *Engine) Run(ctx context.Context, req Request) (resp Response) {
	s := &session{req: req, budgets: req.Budgets}
	if s.budgets.MaxSteps <= 0 {
		s.budgets.MaxSteps = e.defaults.MaxSteps
	}
	if s.budgets.MaxCalls <= 0 {
		s.budgets.MaxCalls = e.defaults.MaxCalls
	}

	defer func() {
		if r := recover(); r != nil {
			resp = e.terminal(s, fmt.Errorf("internal panic: %v", r))
		}
	}()

	e.notify("analyzing request")
	return e.run(ctx, s)
}

func (e *Engine) run(ctx context.Context, s *session) Response {
	log := logging.Get(logging.CategoryEngine)
	catalog := catalogPrompt(e.registry.List(ctx))

	nudge := ""
	for len(s.steps) < s.budgets.MaxSteps {
		if nudge == "" {
			nudge = e.forcedNudge(ctx, s)
		}

		completion, err := e.complete(ctx, analyzeSystemPrompt, e.analyzePrompt(s, catalog, nudge))
		if err != nil {
			return e.terminal(s, fmt.Errorf("analysis call failed: %w", err))
		}
		nudge = ""

		sig := parser.Parse(completion)
		s.recordStep(StepAnalysis, analysisContent(sig, s.req.DevelopmentMode), nil)

		switch sig.Kind {
		case parser.KindClassify:
			s.intent = sig.Intent
			log.Debugw("request classified", "intent", sig.Intent)

		case parser.KindNone:
			log.Debugw("no actionable signal, nudging")
			nudge = nudgeNoSignal

		case parser.KindExecute:
			if sig.Intent != "" && s.intent == "" {
				s.intent = sig.Intent
			}
			if len(s.invocations) >= s.budgets.MaxCalls || len(s.steps) >= s.budgets.MaxSteps {
				log.Infow("budget exhausted, forcing synthesis",
					"calls", len(s.invocations), "steps", len(s.steps))
				return e.finalize(ctx, s)
			}
			e.invoke(ctx, s, sig.Name, sig.Params)

		case parser.KindStop:
			log.Debugw("invocation phase stopped", "reason", sig.Reason)
			return e.finalize(ctx, s)

		case parser.KindAnswer:
			s.draft = sig.Answer
			return e.finalize(ctx, s)
		}
	}

	log.Infow("step budget exhausted, forcing synthesis", "steps", len(s.steps))
	return e.finalize(ctx, s)
}

// invoke runs one capability through the registry and records both the
// invocation and its step. Failures come back as failed results, never
// as errors, so the loop always continues.
func (e *Engine) invoke(ctx context.Context, s *session, name string, params map[string]any) {
	e.notify(fmt.Sprintf("invoking %s", name))

	started := time.Now()
	res := e.registry.Invoke(ctx, name, params)
	completed := time.Now()

	inv := capability.Invocation{
		ID:          uuid.NewString(),
		Name:        name,
		Params:      params,
		Result:      res,
		StartedAt:   started,
		CompletedAt: completed,
		Duration:    completed.Sub(started),
	}
	s.invocations = append(s.invocations, inv)
	s.recordStep(StepInvocation, promptctx.SummaryLine(inv), &inv)
	e.notify(promptctx.SummaryLine(inv))
}

// forcedNudge fires at most once per run: when budgets near exhaustion,
// nothing has been invoked, and the request strongly implies a category
// the registry can actually serve, it injects a directive forcing one
// more invocation attempt. Safety net against the model describing
// instead of doing.
func (e *Engine) forcedNudge(ctx context.Context, s *session) string {
	if s.forced || len(s.invocations) > 0 {
		return ""
	}
	if s.budgets.MaxSteps-len(s.steps) > 2 || s.budgets.MaxCalls < 1 {
		return ""
	}
	cat := impliedCategory(s.req.UserMessage)
	if cat == "" || len(e.registry.ByCategory(ctx, cat)) == 0 {
		return ""
	}
	s.forced = true
	logging.Get(logging.CategoryEngine).Infow("forcing capability attempt", "category", cat)
	return forcedCapabilityNudge(cat)
}

// finalize runs the validate and synthesize phases: produce a draft if
// the loop didn't leave one, review it once, re-synthesize at most once
// on a failing verdict, and apply the no-action guard.
func (e *Engine) finalize(ctx context.Context, s *session) Response {
	draft := s.draft
	if draft == "" {
		e.notify("composing answer")
		d, err := e.complete(ctx, synthesizeSystemPrompt, e.synthesisPrompt(s, ""))
		if err != nil {
			return e.terminal(s, fmt.Errorf("synthesis call failed: %w", err))
		}
		draft = strings.TrimSpace(d)
	}

	if e.policy != nil {
		e.notify("reviewing draft answer")
		pass, feedback, err := e.policy.Review(ctx, retryClient{inner: e.client}, draft, evidenceBlock(s.invocations))
		if err != nil {
			return e.terminal(s, fmt.Errorf("validation call failed: %w", err))
		}
		if pass {
			s.recordStep(StepValidation, "draft accepted", nil)
		} else {
			s.recordStep(StepValidation, "draft rejected: "+feedback, nil)
			prompt := e.synthesisPrompt(s, draft) +
				"\nREVIEW FEEDBACK: " + feedback +
				"\nRewrite the answer addressing the feedback. This is the final attempt."
			d, err := e.complete(ctx, synthesizeSystemPrompt, prompt)
			if err != nil {
				return e.terminal(s, fmt.Errorf("re-synthesis call failed: %w", err))
			}
			draft = strings.TrimSpace(d)
		}
	}

	final := e.guardAnswer(s, draft)
	s.recordStep(StepSynthesis, final, nil)
	e.notify("done")

	return Response{
		FinalAnswer: final,
		Steps:       s.steps,
		Invocations: s.invocations,
		Success:     true,
	}
}

// guardAnswer enforces the honesty floor on the final text: an
// action-implying request with no successful invocation must say so
// explicitly, whatever the model produced.
func (e *Engine) guardAnswer(s *session, draft string) string {
	if draft == "" {
		draft = "I wasn't able to make progress on this request."
	}
	if actionImplied(s.req.UserMessage) && !hasSuccessfulInvocation(s.invocations) && !admitsNoAction(draft) {
		draft += "\n\nNo action was performed on your behalf."
	}
	return draft
}

func hasSuccessfulInvocation(invs []capability.Invocation) bool {
	for _, inv := range invs {
		if inv.Result != nil && inv.Result.Success {
			return true
		}
	}
	return false
}

// admitsNoAction reports whether the draft already states that nothing
// was done, so the guard doesn't stutter.
func admitsNoAction(draft string) bool {
	lower := strings.ToLower(draft)
	for _, phrase := range []string{
		"no action", "was not performed", "wasn't performed",
		"could not", "couldn't", "unable to", "not able to",
	} {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// analyzePrompt assembles the per-iteration prompt: catalog first, then
// the built context, then any classified intent and directive.
func (e *Engine) analyzePrompt(s *session, catalog, nudge string) string {
	var sb strings.Builder
	sb.WriteString(catalog)
	sb.WriteString("\n")
	sb.WriteString(e.builder.Build(s.req.UserMessage, s.req.ChatHistory, s.invocations))
	if s.intent != "" {
		sb.WriteString(fmt.Sprintf("\nCLASSIFIED INTENT: %s\n", s.intent))
	}
	if nudge != "" {
		sb.WriteString("\nDIRECTIVE: ")
		sb.WriteString(nudge)
		sb.WriteString("\n")
	}
	return sb.String()
}

// synthesisPrompt renders the context for a synthesis call. A non-empty
// draft rides along as the synthesis pseudo-entry so the rewrite sees
// its own previous attempt in full.
func (e *Engine) synthesisPrompt(s *session, draft string) string {
	invs := s.invocations
	if draft != "" {
		invs = append(slices.Clone(invs), capability.Invocation{
			Name:   promptctx.SynthesisEntry,
			Result: &capability.Result{Success: true, Data: map[string]any{"draft": draft}},
		})
	}
	return e.builder.Build(s.req.UserMessage, s.req.ChatHistory, invs)
}

// evidenceBlock is the compact invocation record handed to validation.
func evidenceBlock(invs []capability.Invocation) string {
	if len(invs) == 0 {
		return "(no capabilities were invoked)\n"
	}
	var sb strings.Builder
	for _, inv := range invs {
		sb.WriteString(promptctx.SummaryLine(inv))
		sb.WriteString("\n")
	}
	return sb.String()
}

// analysisContent is what an analysis step records: the typed reading
// normally, the raw completion in development mode.
func analysisContent(sig parser.Signal, dev bool) string {
	if dev {
		return strings.TrimSpace(sig.Raw)
	}
	switch sig.Kind {
	case parser.KindExecute:
		return fmt.Sprintf("signal: execute %s", sig.Name)
	case parser.KindStop:
		return fmt.Sprintf("signal: stop (%s)", sig.Reason)
	case parser.KindClassify:
		return fmt.Sprintf("signal: classify %s", sig.Intent)
	case parser.KindAnswer:
		return "signal: implicit answer"
	default:
		return "signal: none"
	}
}

// retryClient wraps the model client with the loop's retry policy:
// exactly one retry per call. Anything beyond that is the inner
// client's own concern (rate-limit backoff lives there); a second
// failure is an infrastructure fault and escalates to terminal. Every
// model call in a run goes through this wrapper, the validation review
// included.
type retryClient struct {
	inner llm.Client
}

func (r retryClient) Complete(ctx context.Context, prompt string) (string, error) {
	return r.CompleteWithSystem(ctx, "", prompt)
}

func (r retryClient) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	resp, err := r.inner.CompleteWithSystem(ctx, system, prompt)
	if err == nil {
		return resp, nil
	}
	logging.Get(logging.CategoryEngine).Warnw("completion failed, retrying once", "error", err)
	return r.inner.CompleteWithSystem(ctx, system, prompt)
}

func (e *Engine) complete(ctx context.Context, system, prompt string) (string, error) {
	return retryClient{inner: e.client}.CompleteWithSystem(ctx, system, prompt)
}

// notify delivers one progress event. Sink panics are contained here
// and never reach the loop.
func (e *Engine) notify(message string) {
	if e.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryEngine).Warnw("progress sink panicked", "panic", r)
		}
	}()
	e.sink.OnProgress(message)
}

// terminal converts an infrastructure fault into the fixed failure
// response, preserving the partial trace for observability.
func (e *Engine) terminal(s *session, err error) Response {
	logging.Get(logging.CategoryEngine).Errorw("run failed", "error", err)
	e.notify("request failed")

	answer := apologyMessage
	if s.req.DevelopmentMode {
		answer = fmt.Sprintf("%s (%v)", apologyMessage, err)
	}
	return Response{
		FinalAnswer: answer,
		Steps:       s.steps,
		Invocations: s.invocations,
		Success:     false,
		Error:       err.Error(),
	}
}
