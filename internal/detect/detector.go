// Package detect notices external buffer changes by polling a monotonic
// version token. No change notification exists on the platforms this runs
// on; the timer-driven poll with a coalescing slack and a settle grace is a
// deliberate trade-off, not a workaround.
package detect

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"clipflow/internal/buffer"
	"clipflow/internal/classify"
	"clipflow/internal/logging"
	"clipflow/internal/telemetry"
)

// Listener receives the classified content of a changed buffer.
type Listener func(classify.Content)

// Options are the poll timings.
type Options struct {
	Interval time.Duration // poll cadence
	Slack    time.Duration // extra scheduling leeway per tick, lets ticks coalesce
	Grace    time.Duration // wait before reading a detected change, absorbs staged publishes
}

const (
	DefaultInterval = 150 * time.Millisecond
	DefaultSlack    = 50 * time.Millisecond
	DefaultGrace    = 80 * time.Millisecond
)

func (o *Options) applyDefaults() {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Slack < 0 {
		o.Slack = DefaultSlack
	}
	if o.Grace <= 0 {
		o.Grace = DefaultGrace
	}
}

// Detector polls the buffer and delivers changed content to its listener.
type Detector struct {
	buf      buffer.Buffer
	opts     Options
	listener Listener
	metrics  *telemetry.Metrics
	log      *slog.Logger

	mu        sync.Mutex
	running   bool
	suspended bool
	last      buffer.Version
	cancel    context.CancelFunc
	stopped   chan struct{}
}

func New(buf buffer.Buffer, listener Listener, opts Options, metrics *telemetry.Metrics) *Detector {
	opts.applyDefaults()
	return &Detector{
		buf:      buf,
		opts:     opts,
		listener: listener,
		metrics:  metrics,
		log:      logging.With("detect"),
	}
}

// Start begins polling. Idempotent if already running. The current version
// becomes the baseline, so pre-existing content never fires.
func (d *Detector) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	if v, err := d.buf.Version(); err == nil {
		d.last = v
	}
	pctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.stopped = make(chan struct{})
	d.running = true
	go d.poll(pctx, d.stopped)
	d.log.Info("detector started", "interval", d.opts.Interval, "grace", d.opts.Grace)
}

// Stop cancels polling. Idempotent.
func (d *Detector) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	cancel, stopped := d.cancel, d.stopped
	d.mu.Unlock()
	cancel()
	<-stopped
	d.log.Info("detector stopped")
}

// Suspend pauses change delivery without losing the baseline.
func (d *Detector) Suspend() {
	d.mu.Lock()
	d.suspended = true
	d.mu.Unlock()
}

// Resume resyncs the baseline to the current version before unpausing, so
// changes made during suspension do not fire spuriously.
func (d *Detector) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if v, err := d.buf.Version(); err == nil {
		d.last = v
	}
	d.suspended = false
}

func (d *Detector) poll(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(d.opts.Interval + d.opts.Slack)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// tick compares versions and, on change, records the new version first (so
// the same change never re-fires), waits out the grace delay, then reads
// whatever is current. A second change during the grace window is absorbed:
// last write wins.
func (d *Detector) tick(ctx context.Context) {
	d.mu.Lock()
	if d.suspended {
		d.mu.Unlock()
		return
	}
	baseline := d.last
	d.mu.Unlock()

	v, err := d.buf.Version()
	if err != nil {
		d.log.Debug("version read failed", "err", err)
		return
	}
	if v == baseline {
		return
	}

	d.mu.Lock()
	d.last = v
	d.mu.Unlock()

	select {
	case <-time.After(d.opts.Grace):
	case <-ctx.Done():
		return
	}

	snap, err := d.buf.Read()
	if err != nil {
		d.log.Debug("read after grace failed", "err", err)
		return
	}
	if cur, err := d.buf.Version(); err == nil {
		d.mu.Lock()
		d.last = cur
		d.mu.Unlock()
	}
	if m := d.metrics; m != nil {
		m.BufferChanges.Inc()
	}
	if d.listener != nil {
		d.listener(classify.Classify(snap))
	}
}
