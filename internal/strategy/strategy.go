// Package strategy defines the transformation unit of work: text in, text
// out, or failure. Strategies must be safe to call from a background
// goroutine and honor context cancellation promptly.
package strategy

import (
	"context"
	"fmt"
)

type Strategy interface {
	// ID is the stable identifier triggers refer to.
	ID() string
	// Name is the human-readable display name.
	Name() string
	Transform(ctx context.Context, input string) (string, error)
}

// Factory builds a Strategy from its options block.
type Factory func(opts map[string]string) (Strategy, error)

var registry = map[string]Factory{}

// Register is called from each strategy's init() or from main.
func Register(kind string, f Factory) {
	registry[kind] = f
}

// New builds a strategy by kind ("uppercase", "template", …).
func New(kind string, opts map[string]string) (Strategy, error) {
	if f, ok := registry[kind]; ok {
		return f(opts)
	}
	return nil, fmt.Errorf("strategy: unsupported kind %q", kind)
}

// Func adapts a plain function into a Strategy.
type Func struct {
	id   string
	name string
	fn   func(context.Context, string) (string, error)
}

func NewFunc(id, name string, fn func(context.Context, string) (string, error)) *Func {
	return &Func{id: id, name: name, fn: fn}
}

func (f *Func) ID() string   { return f.id }
func (f *Func) Name() string { return f.name }
func (f *Func) Transform(ctx context.Context, input string) (string, error) {
	return f.fn(ctx, input)
}
