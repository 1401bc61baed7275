// Package buffer abstracts the shared external buffer the daemon reads and
// writes. Drivers expose raw representation snapshots; interpretation is left
// to the classifier.
package buffer

// Version is an opaque change token. Versions must only be compared for
// inequality, never ordered.
type Version string

// TypeText is the canonical text representation slot.
const TypeText = "text/plain"

// Snapshot is the representation set held by the buffer at read time, plus
// whether the self-write marker was present alongside it.
type Snapshot struct {
	Slots  map[string][]byte
	Marked bool
}

// Text returns the text representation, if one exists.
func (s Snapshot) Text() (string, bool) {
	raw, ok := s.Slots[TypeText]
	if !ok {
		return "", false
	}
	return string(raw), true
}

// Empty reports whether the buffer held no representations at all.
func (s Snapshot) Empty() bool { return len(s.Slots) == 0 }

// Buffer is the access interface every driver implements. Write must apply
// text and marker as a single observable unit: no reader may ever see the
// text without the marker.
type Buffer interface {
	Read() (Snapshot, error)
	Write(text string, marked bool) error
	Version() (Version, error)
}
