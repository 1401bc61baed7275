package flow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipflow/internal/buffer"
	"clipflow/internal/classify"
	"clipflow/internal/flight"
	"clipflow/internal/logging"
	"clipflow/internal/recovery"
	"clipflow/internal/strategy"
	"clipflow/internal/telemetry"
	"clipflow/sink"
)

// SideEffect is the external action fired after a successful write-back,
// e.g. a simulated paste keystroke.
type SideEffect interface {
	PermissionGranted() bool
	Perform() error
}

// Notifier delivers one user-facing notification per failing flow.
type Notifier interface {
	Notify(ctx context.Context, title, message string, category Category, action Action)
}

// Resolver maps a trigger source to the strategy that should run.
type Resolver func(Source) (strategy.Strategy, error)

// Options are the tunable flow timings.
type Options struct {
	Timeout     time.Duration // strategy call bound
	SettleDelay time.Duration // wait between write-back and side-effect
}

const (
	DefaultTimeout     = 30 * time.Second
	DefaultSettleDelay = 50 * time.Millisecond
)

func (o *Options) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
}

// Deps are the orchestrator's collaborators. Buffer, Resolve, Recovery and
// Effect are required; Notifier, History and Metrics may be nil.
type Deps struct {
	Buffer   buffer.Buffer
	Resolve  Resolver
	Recovery *recovery.Manager
	Effect   SideEffect
	Notifier Notifier
	History  sink.Adapter
	Metrics  *telemetry.Metrics
}

// Orchestrator serializes triggers into at most one running flow and drives
// it through the fixed step pipeline. All state transitions happen here and
// nowhere else.
type Orchestrator struct {
	deps Deps
	opts Options
	log  *slog.Logger

	queue *flight.Queue[*Request]

	mu          sync.Mutex
	state       State
	lastErr     *Error
	lastOutcome *Outcome
}

func New(deps Deps, opts Options) *Orchestrator {
	opts.applyDefaults()
	return &Orchestrator{
		deps:  deps,
		opts:  opts,
		log:   logging.With("flow"),
		queue: flight.NewQueue[*Request](),
		state: State{Phase: PhaseIdle},
	}
}

// HandleTrigger is the single entry point a hotkey/menu action calls. It
// returns whether the flow was accepted, not whether it succeeded. A trigger
// arriving while a flow is in flight is dropped, not queued.
func (o *Orchestrator) HandleTrigger(ctx context.Context, src Source) bool {
	req := &Request{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		Timeout:   o.opts.Timeout,
		Source:    src,
	}

	// The flow outlives the trigger call (an HTTP request, typically), so it
	// runs on a detached context cancelled only through the queue.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	_, err := o.queue.Begin(req, cancel)
	if err != nil {
		cancel()
		o.setLastErr(&Error{Kind: KindAlreadyProcessing})
		if m := o.deps.Metrics; m != nil {
			m.RejectedTriggers.Inc()
		}
		o.log.Debug("trigger rejected, flow in flight", "request", req.ID)
		return false
	}

	o.transition(State{Phase: PhaseProcessing, Request: req})
	o.log.Info("flow accepted", "request", req.ID, "source", string(src.Kind), "transformation", src.TransformationID)

	go o.run(runCtx, req)
	return true
}

// Cancel cancels the running flow, if any, and waits for it to unwind.
// Idempotent; a no-op when idle.
func (o *Orchestrator) Cancel() {
	done := o.queue.Done()
	o.queue.Cancel()
	if done != nil {
		<-done
	}
}

// Wait blocks until the current flow, if any, reaches idle.
func (o *Orchestrator) Wait() {
	if done := o.queue.Done(); done != nil {
		<-done
	}
}

// Reset clears error state and forces idle. It does not cancel a running
// flow; callers cancel first.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.state = State{Phase: PhaseIdle}
	o.lastErr = nil
	o.lastOutcome = nil
	o.mu.Unlock()
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) IsProcessing() bool {
	return o.State().Phase == PhaseProcessing
}

func (o *Orchestrator) LastError() *Error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

func (o *Orchestrator) LastOutcome() *Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastOutcome
}

/*──────── flow execution ───────*/

// run drives one accepted request to a terminal state and back to idle.
func (o *Orchestrator) run(ctx context.Context, req *Request) {
	started := time.Now()
	out, ferr := o.execute(ctx, req)

	switch {
	case out != nil:
		o.deps.Recovery.Clear()
		o.transition(State{Phase: PhaseCompleted, Request: req, Outcome: out})
		o.setLastOutcome(out)
		if m := o.deps.Metrics; m != nil {
			m.FlowsTotal.WithLabelValues("completed").Inc()
			m.TransformDuration.Observe(time.Since(started).Seconds())
		}
		o.log.Info("flow completed", "request", req.ID, "took", time.Since(started))
		o.record(req, out, nil)

	case ferr != nil:
		if ferr.RequiresRestore() {
			if o.deps.Recovery.Restore() {
				if m := o.deps.Metrics; m != nil {
					m.Restores.Inc()
				}
			}
		} else {
			o.deps.Recovery.Clear()
		}
		o.setLastErr(ferr)
		o.transition(State{Phase: PhaseFailed, Request: req, Err: ferr})
		if m := o.deps.Metrics; m != nil {
			m.FlowsTotal.WithLabelValues("failed").Inc()
		}
		if ferr.Silent() {
			o.log.Debug("flow ended silently", "request", req.ID, "kind", string(ferr.Kind))
		} else {
			o.log.Warn("flow failed", "request", req.ID, "kind", string(ferr.Kind), "err", ferr)
			o.notify(ferr)
			o.record(req, nil, ferr)
		}

	default: // cancelled
		o.deps.Recovery.Clear()
		o.transition(State{Phase: PhaseCancelled, Request: req})
		if m := o.deps.Metrics; m != nil {
			m.FlowsTotal.WithLabelValues("cancelled").Inc()
		}
		o.log.Info("flow cancelled", "request", req.ID)
		o.record(req, nil, nil)
	}

	o.transition(State{Phase: PhaseIdle})
	o.queue.Finish()
}

// execute walks the step pipeline. It returns the outcome on success, the
// flow error on failure, and (nil, nil) when cancelled at a checkpoint.
func (o *Orchestrator) execute(ctx context.Context, req *Request) (*Outcome, *Error) {
	// 1. preconditions
	if !o.deps.Effect.PermissionGranted() {
		return nil, &Error{Kind: KindPermissionDenied}
	}
	snap, err := o.deps.Buffer.Read()
	if err != nil {
		return nil, &Error{Kind: KindNoTextContent, Cause: err}
	}
	if snap.Marked {
		return nil, &Error{Kind: KindSelfWrite}
	}

	// 2. capture before anything else can fail, so rollback stays possible
	if text, ok := snap.Text(); ok {
		o.deps.Recovery.Capture(text)
	}

	// 3. classify
	content := classify.Classify(snap)
	switch content.Kind {
	case classify.KindEmpty:
		return nil, &Error{Kind: KindBufferEmpty}
	case classify.KindBinary:
		return nil, &Error{Kind: KindBinaryContent, MIMEType: content.MIMEType}
	case classify.KindUnknown:
		return nil, &Error{Kind: KindNoTextContent}
	}
	input := content.Text

	// 4. cancellation checkpoint
	if ctx.Err() != nil {
		return nil, nil
	}

	strat, err := o.deps.Resolve(req.Source)
	if err != nil {
		return nil, &Error{Kind: KindTransformFailed, Cause: err}
	}

	// 5. strategy under timeout: the call races the deadline so even a
	// strategy that never returns cannot hang the flow.
	output, ferr := o.transform(ctx, req, strat, input)
	if ferr != nil {
		return nil, ferr
	}

	// 6. cancellation checkpoint
	if ctx.Err() != nil {
		return nil, nil
	}

	// 7. write back, text and marker as one unit
	if err := o.deps.Buffer.Write(output, true); err != nil {
		return nil, &Error{Kind: KindWriteBackFailed, Cause: err}
	}

	// 8. settle delay so the external consumer sees the new content
	select {
	case <-time.After(o.opts.SettleDelay):
	case <-ctx.Done():
		return nil, nil
	}

	// 9. cancellation checkpoint
	if ctx.Err() != nil {
		return nil, nil
	}

	// 10. side-effect; no rollback here, the transformation itself succeeded
	if err := o.deps.Effect.Perform(); err != nil {
		return nil, &Error{Kind: KindSideEffectFailed, Cause: err}
	}

	return &Outcome{
		Request:     req,
		Original:    input,
		Output:      output,
		CompletedAt: time.Now(),
	}, nil
}

type transformResult struct {
	out string
	err error
}

func (o *Orchestrator) transform(ctx context.Context, req *Request, strat strategy.Strategy, input string) (string, *Error) {
	tctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	ch := make(chan transformResult, 1)
	go func() {
		out, err := strat.Transform(tctx, input)
		ch <- transformResult{out: out, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			if ctx.Err() != nil {
				return "", nil // cancelled, reported by the caller's checkpoint
			}
			return "", &Error{Kind: KindTransformFailed, Cause: r.err}
		}
		return r.out, nil
	case <-tctx.Done():
		if ctx.Err() != nil {
			return "", nil
		}
		return "", &Error{Kind: KindTransformFailed, Cause: context.DeadlineExceeded}
	}
}

/*──────── terminal-state plumbing ───────*/

func (o *Orchestrator) transition(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) setLastErr(e *Error) {
	o.mu.Lock()
	o.lastErr = e
	o.mu.Unlock()
}

func (o *Orchestrator) setLastOutcome(out *Outcome) {
	o.mu.Lock()
	o.lastOutcome = out
	o.mu.Unlock()
}

func (o *Orchestrator) notify(ferr *Error) {
	if o.deps.Notifier == nil {
		return
	}
	category, action := Categorize(ferr)
	nctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o.deps.Notifier.Notify(nctx, "Transformation failed", Message(ferr), category, action)
}

// record hands the outcome to the history sink, fire-and-forget.
func (o *Orchestrator) record(req *Request, out *Outcome, ferr *Error) {
	if o.deps.History == nil {
		return
	}
	entry := sink.Entry{
		RequestID:   req.ID.String(),
		Source:      string(req.Source.Kind),
		Strategy:    req.Source.TransformationID,
		TriggeredAt: req.CreatedAt,
		CompletedAt: time.Now(),
	}
	switch {
	case out != nil:
		entry.Outcome = "completed"
		entry.Original = out.Original
		entry.Output = out.Output
		entry.CompletedAt = out.CompletedAt
	case ferr != nil:
		entry.Outcome = "failed"
		entry.Error = ferr.Error()
		category, _ := Categorize(ferr)
		entry.Category = string(category)
	default:
		entry.Outcome = "cancelled"
	}

	go func() {
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.deps.History.Record(rctx, entry); err != nil {
			o.log.Error("history record failed", "request", entry.RequestID, "err", err)
		}
	}()
}
