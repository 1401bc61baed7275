// Package sink defines the history sink every flow outcome is recorded to.
package sink

import (
	"context"
	"fmt"
	"time"
)

// Entry is one recorded flow outcome, success or failure.
type Entry struct {
	RequestID   string    `json:"request_id"`
	Source      string    `json:"source"`
	Strategy    string    `json:"strategy,omitempty"`
	Original    string    `json:"original,omitempty"`
	Output      string    `json:"output,omitempty"`
	Outcome     string    `json:"outcome"` // completed | failed | cancelled
	Error       string    `json:"error,omitempty"`
	Category    string    `json:"category,omitempty"`
	TriggeredAt time.Time `json:"triggered_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Adapter is the common behaviour every history sink exposes. Record is
// fire-and-forget from the orchestrator's perspective: failures are logged,
// never block a flow.
type Adapter interface {
	Configure(any) error // driver-specific config block ⇒ struct
	Record(context.Context, Entry) error
	Close() error // idempotent
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown history sink %q", name)
}
