package buffer

import (
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/atotto/clipboard"
)

// System drives the OS clipboard. The platform exposes neither a change
// counter nor auxiliary slots, so the version is derived from content and
// the marker is remembered in-process: a marked read is an unchanged echo of
// our own last write.
type System struct {
	mu        sync.Mutex
	lastWrite string
	marked    bool
}

func NewSystem() *System { return &System{} }

func (s *System) Read() (Snapshot, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return Snapshot{}, err
	}
	if text == "" {
		return Snapshot{Slots: map[string][]byte{}}, nil
	}
	s.mu.Lock()
	marked := s.marked && text == s.lastWrite
	s.mu.Unlock()
	return Snapshot{
		Slots:  map[string][]byte{TypeText: []byte(text)},
		Marked: marked,
	}, nil
}

func (s *System) Write(text string, marked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := clipboard.WriteAll(text); err != nil {
		return err
	}
	s.lastWrite = text
	s.marked = marked
	return nil
}

// Version hashes current content. A write-and-revert inside one poll window
// is invisible, which the poll cadence already accepts.
func (s *System) Version() (Version, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", err
	}
	h := fnv.New64a()
	h.Write([]byte(text))
	return Version(strconv.FormatUint(h.Sum64(), 16)), nil
}
