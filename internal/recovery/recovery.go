// Package recovery holds the captured pre-flow buffer text and restores it
// when a flow fails. A failed flow must never leave the user with empty,
// corrupted, or stale-transformed content.
package recovery

import (
	"log/slog"
	"sync"

	"clipflow/internal/buffer"
	"clipflow/internal/logging"
)

// Manager owns a single optional captured-original slot. The single-flight
// queue guarantees the slot is never overwritten mid-flight by a second flow.
type Manager struct {
	buf buffer.Buffer
	log *slog.Logger

	mu       sync.Mutex
	captured *string
}

func NewManager(buf buffer.Buffer) *Manager {
	return &Manager{buf: buf, log: logging.With("recovery")}
}

// Capture snapshots the given text as the rollback value for the flow that
// is about to run.
func (m *Manager) Capture(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := text
	m.captured = &t
}

// Restore writes the captured text back and clears the slot. The write is
// unmarked: restored content is the user's own prior content and stays
// eligible for a re-trigger. Returns whether a restoration was performed
// and succeeded.
func (m *Manager) Restore() bool {
	m.mu.Lock()
	captured := m.captured
	m.captured = nil
	m.mu.Unlock()
	if captured == nil {
		return false
	}
	if err := m.buf.Write(*captured, false); err != nil {
		m.log.Error("restore failed", "err", err)
		return false
	}
	m.log.Info("restored original buffer content", "bytes", len(*captured))
	return true
}

// Clear discards the slot without writing. Success path only.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.captured = nil
	m.mu.Unlock()
}

// Captured reports whether a rollback value is currently held.
func (m *Manager) Captured() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captured != nil
}
