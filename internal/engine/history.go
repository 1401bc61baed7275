package engine

import (
	"context"

	"clipflow/internal/logging"
	"clipflow/sink"
)

// fanout records each entry to every configured history sink. A failing
// sink never blocks the others.
type fanout struct {
	sinks []sink.Adapter
}

func (f *fanout) Configure(any) error { return nil }

func (f *fanout) Record(ctx context.Context, e sink.Entry) error {
	for _, s := range f.sinks {
		if err := s.Record(ctx, e); err != nil {
			logging.With("history").Error("sink record failed", "err", err)
		}
	}
	return nil
}

func (f *fanout) Close() error {
	var first error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
