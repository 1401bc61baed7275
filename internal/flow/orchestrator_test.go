package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"clipflow/internal/buffer"
	"clipflow/internal/recovery"
	"clipflow/internal/strategy"
	"clipflow/sink"
)

type fakeEffect struct {
	granted    bool
	performErr error
	performs   int32
}

func (f *fakeEffect) PermissionGranted() bool { return f.granted }
func (f *fakeEffect) Perform() error {
	atomic.AddInt32(&f.performs, 1)
	return f.performErr
}

type note struct {
	title    string
	message  string
	category Category
	action   Action
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (f *fakeNotifier) Notify(_ context.Context, title, message string, category Category, action Action) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, note{title, message, category, action})
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notes)
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []sink.Entry
}

func (f *fakeHistory) Configure(any) error { return nil }
func (f *fakeHistory) Record(_ context.Context, e sink.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}
func (f *fakeHistory) Close() error { return nil }

type countingStrategy struct {
	calls int32
	fn    func(context.Context, string) (string, error)
}

func (s *countingStrategy) ID() string   { return "test" }
func (s *countingStrategy) Name() string { return "Test" }
func (s *countingStrategy) Transform(ctx context.Context, in string) (string, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.fn(ctx, in)
}

func uppercaseFn(_ context.Context, in string) (string, error) {
	return strings.ToUpper(in), nil
}

type harness struct {
	buf      *buffer.Memory
	strat    *countingStrategy
	effect   *fakeEffect
	notifier *fakeNotifier
	history  *fakeHistory
	orch     *Orchestrator
}

func newHarness(t *testing.T, fn func(context.Context, string) (string, error), opts Options) *harness {
	t.Helper()
	h := &harness{
		buf:      buffer.NewMemory(),
		strat:    &countingStrategy{fn: fn},
		effect:   &fakeEffect{granted: true},
		notifier: &fakeNotifier{},
		history:  &fakeHistory{},
	}
	h.orch = New(Deps{
		Buffer: h.buf,
		Resolve: func(Source) (strategy.Strategy, error) {
			return h.strat, nil
		},
		Recovery: recovery.NewManager(h.buf),
		Effect:   h.effect,
		Notifier: h.notifier,
		History:  h.history,
	}, opts)
	return h
}

func fastOpts() Options {
	return Options{Timeout: 2 * time.Second, SettleDelay: time.Millisecond}
}

func bufferText(t *testing.T, buf *buffer.Memory) (string, bool) {
	t.Helper()
	snap, err := buf.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	text, _ := snap.Text()
	return text, snap.Marked
}

func TestFlow_CompletesAndWritesBackWithMarker(t *testing.T) {
	h := newHarness(t, uppercaseFn, fastOpts())
	h.buf.SetText("hello world")

	if !h.orch.HandleTrigger(context.Background(), SingleSource("test")) {
		t.Fatal("trigger not accepted")
	}
	h.orch.Wait()

	text, marked := bufferText(t, h.buf)
	if text != "HELLO WORLD" {
		t.Fatalf("buffer = %q, want HELLO WORLD", text)
	}
	if !marked {
		t.Fatal("self-write marker missing after write-back")
	}
	out := h.orch.LastOutcome()
	if out == nil {
		t.Fatal("no outcome recorded")
	}
	if out.Original != "hello world" || out.Output != "HELLO WORLD" {
		t.Fatalf("outcome = %q -> %q", out.Original, out.Output)
	}
	if got := h.orch.State().Phase; got != PhaseIdle {
		t.Fatalf("phase = %s, want idle", got)
	}
	if n := atomic.LoadInt32(&h.effect.performs); n != 1 {
		t.Fatalf("side-effect performed %d times, want 1", n)
	}
}

func TestFlow_SelfWriteIsSilentNoOp(t *testing.T) {
	h := newHarness(t, uppercaseFn, fastOpts())
	if err := h.buf.Write("PREVIOUS", true); err != nil {
		t.Fatalf("seed buffer: %v", err)
	}

	if !h.orch.HandleTrigger(context.Background(), SingleSource("test")) {
		t.Fatal("trigger not accepted")
	}
	h.orch.Wait()

	lastErr := h.orch.LastError()
	if lastErr == nil || lastErr.Kind != KindSelfWrite {
		t.Fatalf("lastError = %v, want self_write_detected", lastErr)
	}
	if text, _ := bufferText(t, h.buf); text != "PREVIOUS" {
		t.Fatalf("buffer changed to %q", text)
	}
	if atomic.LoadInt32(&h.strat.calls) != 0 {
		t.Fatal("strategy was invoked on marked content")
	}
	if h.notifier.count() != 0 {
		t.Fatal("silent error was notified")
	}
}

func TestFlow_BinaryContentRejected(t *testing.T) {
	h := newHarness(t, uppercaseFn, fastOpts())
	// image with a text preview: binary must win
	h.buf.SetSlots(map[string][]byte{
		"image/png":     {0x89, 0x50, 0x4e, 0x47},
		buffer.TypeText: []byte("preview"),
	})
	before, _ := h.buf.Version()

	h.orch.HandleTrigger(context.Background(), SingleSource("test"))
	h.orch.Wait()

	lastErr := h.orch.LastError()
	if lastErr == nil || lastErr.Kind != KindBinaryContent {
		t.Fatalf("lastError = %v, want binary_content", lastErr)
	}
	if lastErr.MIMEType != "image/png" {
		t.Fatalf("mime = %q, want image/png", lastErr.MIMEType)
	}
	if h.notifier.count() != 1 {
		t.Fatalf("notifications = %d, want 1", h.notifier.count())
	}
	// the rejection must not write anything: every representation survives
	// untouched and the version cannot move (a bump would wake the detector)
	snap, err := h.buf.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got, ok := snap.Slots["image/png"]; !ok || len(got) != 4 {
		t.Fatalf("image slot after rejection = %v, want intact", snap.Slots)
	}
	if text, _ := snap.Text(); text != "preview" {
		t.Fatalf("buffer text slot changed to %q", text)
	}
	if after, _ := h.buf.Version(); after != before {
		t.Fatal("rejection wrote to the buffer, version moved")
	}
	if atomic.LoadInt32(&h.strat.calls) != 0 {
		t.Fatal("strategy invoked on binary content")
	}
}

func TestFlow_TimeoutAbortsAndRestores(t *testing.T) {
	// non-cooperative strategy: ignores ctx entirely
	h := newHarness(t, func(_ context.Context, in string) (string, error) {
		time.Sleep(2 * time.Second)
		return in, nil
	}, Options{Timeout: 100 * time.Millisecond, SettleDelay: time.Millisecond})
	h.buf.SetText("original")

	start := time.Now()
	h.orch.HandleTrigger(context.Background(), SingleSource("test"))
	h.orch.Wait()
	elapsed := time.Since(start)

	if elapsed > time.Second {
		t.Fatalf("flow took %s, timeout not enforced", elapsed)
	}
	lastErr := h.orch.LastError()
	if lastErr == nil || lastErr.Kind != KindTransformFailed {
		t.Fatalf("lastError = %v, want transform_failed", lastErr)
	}
	if !errors.Is(lastErr.Cause, context.DeadlineExceeded) {
		t.Fatalf("cause = %v, want deadline exceeded", lastErr.Cause)
	}
	if text, _ := bufferText(t, h.buf); text != "original" {
		t.Fatalf("buffer = %q, original not restored", text)
	}
}

func TestFlow_SingleFlightRejectsSecondTrigger(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, func(ctx context.Context, in string) (string, error) {
		select {
		case <-release:
			return strings.ToUpper(in), nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}, fastOpts())
	h.buf.SetText("busy")

	first := h.orch.HandleTrigger(context.Background(), SingleSource("test"))
	second := h.orch.HandleTrigger(context.Background(), SingleSource("test"))
	if !first {
		t.Fatal("first trigger rejected")
	}
	if second {
		t.Fatal("second trigger accepted while in flight")
	}
	if lastErr := h.orch.LastError(); lastErr == nil || lastErr.Kind != KindAlreadyProcessing {
		t.Fatalf("lastError = %v, want already_processing", lastErr)
	}
	if got := h.orch.State().Phase; got != PhaseProcessing {
		t.Fatalf("rejection changed phase to %s", got)
	}

	close(release)
	h.orch.Wait()
	if atomic.LoadInt32(&h.strat.calls) != 1 {
		t.Fatalf("strategy calls = %d, want 1", h.strat.calls)
	}
}

func TestFlow_EmptyBufferIsSilent(t *testing.T) {
	h := newHarness(t, uppercaseFn, fastOpts())

	h.orch.HandleTrigger(context.Background(), SingleSource("test"))
	h.orch.Wait()

	lastErr := h.orch.LastError()
	if lastErr == nil || lastErr.Kind != KindBufferEmpty {
		t.Fatalf("lastError = %v, want buffer_empty", lastErr)
	}
	if h.notifier.count() != 0 {
		t.Fatal("silent error was notified")
	}
	if got := h.orch.State().Phase; got != PhaseIdle {
		t.Fatalf("phase = %s, want idle", got)
	}
}

func TestFlow_StrategyFailureRestoresOriginal(t *testing.T) {
	h := newHarness(t, func(context.Context, string) (string, error) {
		return "", fmt.Errorf("model exploded")
	}, fastOpts())
	h.buf.SetText("keep me")

	h.orch.HandleTrigger(context.Background(), SingleSource("test"))
	h.orch.Wait()

	if lastErr := h.orch.LastError(); lastErr == nil || lastErr.Kind != KindTransformFailed {
		t.Fatalf("lastError = %v, want transform_failed", h.orch.LastError())
	}
	if text, _ := bufferText(t, h.buf); text != "keep me" {
		t.Fatalf("buffer = %q, want original restored", text)
	}
	if h.notifier.count() != 1 {
		t.Fatalf("notifications = %d, want 1", h.notifier.count())
	}
}

// failingWriteBuffer rejects a fixed number of writes, then behaves
// normally, so the restore write after a failed write-back still lands.
type failingWriteBuffer struct {
	*buffer.Memory
	failures int32
}

func (b *failingWriteBuffer) Write(text string, marked bool) error {
	if atomic.AddInt32(&b.failures, -1) >= 0 {
		return fmt.Errorf("buffer held by another client")
	}
	return b.Memory.Write(text, marked)
}

func TestFlow_WriteBackFailureRestoresOriginal(t *testing.T) {
	mem := buffer.NewMemory()
	mem.SetText("original")
	buf := &failingWriteBuffer{Memory: mem, failures: 1}
	strat := &countingStrategy{fn: uppercaseFn}
	notifier := &fakeNotifier{}
	orch := New(Deps{
		Buffer: buf,
		Resolve: func(Source) (strategy.Strategy, error) {
			return strat, nil
		},
		Recovery: recovery.NewManager(buf),
		Effect:   &fakeEffect{granted: true},
		Notifier: notifier,
	}, fastOpts())

	orch.HandleTrigger(context.Background(), SingleSource("test"))
	orch.Wait()

	lastErr := orch.LastError()
	if lastErr == nil || lastErr.Kind != KindWriteBackFailed {
		t.Fatalf("lastError = %v, want write_back_failed", lastErr)
	}
	snap, err := mem.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if text, _ := snap.Text(); text != "original" {
		t.Fatalf("buffer = %q, want original restored", text)
	}
	if snap.Marked {
		t.Fatal("restored content must not carry the self-write marker")
	}
	if notifier.count() != 1 {
		t.Fatalf("notifications = %d, want 1", notifier.count())
	}
}

func TestFlow_SideEffectFailureKeepsTransformedContent(t *testing.T) {
	h := newHarness(t, uppercaseFn, fastOpts())
	h.effect.performErr = fmt.Errorf("paste rejected")
	h.buf.SetText("hello")

	h.orch.HandleTrigger(context.Background(), SingleSource("test"))
	h.orch.Wait()

	if lastErr := h.orch.LastError(); lastErr == nil || lastErr.Kind != KindSideEffectFailed {
		t.Fatalf("lastError = %v, want side_effect_failed", h.orch.LastError())
	}
	// transformation itself succeeded; no rollback
	if text, _ := bufferText(t, h.buf); text != "HELLO" {
		t.Fatalf("buffer = %q, want HELLO kept", text)
	}
	if h.notifier.count() != 1 {
		t.Fatalf("notifications = %d, want 1", h.notifier.count())
	}
}

func TestFlow_PermissionDenied(t *testing.T) {
	h := newHarness(t, uppercaseFn, fastOpts())
	h.effect.granted = false
	h.buf.SetText("hello")

	h.orch.HandleTrigger(context.Background(), SingleSource("test"))
	h.orch.Wait()

	if lastErr := h.orch.LastError(); lastErr == nil || lastErr.Kind != KindPermissionDenied {
		t.Fatalf("lastError = %v, want permission_denied", h.orch.LastError())
	}
	h.notifier.mu.Lock()
	defer h.notifier.mu.Unlock()
	if len(h.notifier.notes) != 1 || h.notifier.notes[0].category != CategoryPermission {
		t.Fatalf("notes = %+v, want one permission notification", h.notifier.notes)
	}
}

func TestFlow_CancelIsIdempotent(t *testing.T) {
	h := newHarness(t, uppercaseFn, fastOpts())

	// cancel when idle is a no-op
	h.orch.Cancel()
	h.orch.Cancel()

	release := make(chan struct{})
	h.strat.fn = func(ctx context.Context, in string) (string, error) {
		select {
		case <-release:
			return in, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	h.buf.SetText("pending")
	h.orch.HandleTrigger(context.Background(), SingleSource("test"))

	h.orch.Cancel()
	h.orch.Cancel()

	if got := h.orch.State().Phase; got != PhaseIdle {
		t.Fatalf("phase = %s, want idle after cancel", got)
	}
	// cancellation is not a failure and does not restore
	if text, _ := bufferText(t, h.buf); text != "pending" {
		t.Fatalf("buffer = %q after cancel", text)
	}
	if h.notifier.count() != 0 {
		t.Fatal("cancellation was notified as an error")
	}
	close(release)
}

func TestFlow_NoFeedbackLoop(t *testing.T) {
	h := newHarness(t, uppercaseFn, fastOpts())
	h.buf.SetText("once")

	h.orch.HandleTrigger(context.Background(), SingleSource("test"))
	h.orch.Wait()
	if atomic.LoadInt32(&h.strat.calls) != 1 {
		t.Fatalf("strategy calls = %d, want 1", h.strat.calls)
	}

	// output is still in the buffer, marked; a second trigger must resolve
	// as self-write and never reach the strategy
	h.orch.HandleTrigger(context.Background(), SingleSource("test"))
	h.orch.Wait()
	if lastErr := h.orch.LastError(); lastErr == nil || lastErr.Kind != KindSelfWrite {
		t.Fatalf("lastError = %v, want self_write_detected", h.orch.LastError())
	}
	if atomic.LoadInt32(&h.strat.calls) != 1 {
		t.Fatalf("strategy calls = %d after re-trigger, want 1", h.strat.calls)
	}
	if text, _ := bufferText(t, h.buf); text != "ONCE" {
		t.Fatalf("buffer = %q, want ONCE untouched", text)
	}
}

func TestFlow_HistoryRecordsOutcome(t *testing.T) {
	h := newHarness(t, uppercaseFn, fastOpts())
	h.buf.SetText("log me")

	h.orch.HandleTrigger(context.Background(), SingleSource("test"))
	h.orch.Wait()

	deadline := time.Now().Add(time.Second)
	for {
		h.history.mu.Lock()
		n := len(h.history.entries)
		h.history.mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	h.history.mu.Lock()
	defer h.history.mu.Unlock()
	if len(h.history.entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(h.history.entries))
	}
	e := h.history.entries[0]
	if e.Outcome != "completed" || e.Original != "log me" || e.Output != "LOG ME" {
		t.Fatalf("entry = %+v", e)
	}
}

func TestFlow_ResetClearsErrorState(t *testing.T) {
	h := newHarness(t, uppercaseFn, fastOpts())
	h.orch.HandleTrigger(context.Background(), SingleSource("test")) // empty buffer fails
	h.orch.Wait()
	if h.orch.LastError() == nil {
		t.Fatal("expected an error before reset")
	}
	h.orch.Reset()
	if h.orch.LastError() != nil {
		t.Fatal("reset did not clear lastError")
	}
	if got := h.orch.State().Phase; got != PhaseIdle {
		t.Fatalf("phase = %s, want idle", got)
	}
}
