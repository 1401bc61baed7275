package buffer

import (
	"strconv"
	"sync"
)

// Memory is an in-process buffer driver. It backs tests and CI runs, and
// models the same hazards as a real clipboard: multiple simultaneous
// representations, external writers, and a marker slot.
type Memory struct {
	mu      sync.Mutex
	slots   map[string][]byte
	marked  bool
	version uint64
}

func NewMemory() *Memory {
	return &Memory{slots: map[string][]byte{}}
}

func (m *Memory) Read() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte, len(m.slots))
	for k, v := range m.slots {
		out[k] = append([]byte(nil), v...)
	}
	return Snapshot{Slots: out, Marked: m.marked}, nil
}

// Write replaces all representations with a single text slot. Slots and
// marker change under one lock, so no reader observes text without marker.
func (m *Memory) Write(text string, marked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots = map[string][]byte{TypeText: []byte(text)}
	m.marked = marked
	m.version++
	return nil
}

func (m *Memory) Version() (Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Version(strconv.FormatUint(m.version, 10)), nil
}

// SetText simulates an external producer writing plain text (no marker).
func (m *Memory) SetText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots = map[string][]byte{TypeText: []byte(text)}
	m.marked = false
	m.version++
}

// SetSlots simulates an external producer publishing an arbitrary
// representation set, e.g. an image with a text preview.
func (m *Memory) SetSlots(slots map[string][]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots = make(map[string][]byte, len(slots))
	for k, v := range slots {
		m.slots[k] = append([]byte(nil), v...)
	}
	m.marked = false
	m.version++
}

// Clear empties the buffer entirely.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots = map[string][]byte{}
	m.marked = false
	m.version++
}
