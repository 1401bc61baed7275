package strategy

import (
	"context"
	"fmt"
	"strings"
)

// Chain applies strategies in order, feeding each output into the next.
// It backs pipeline triggers.
type Chain struct {
	stages []Strategy
}

func NewChain(stages ...Strategy) (*Chain, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("chain: no stages")
	}
	return &Chain{stages: stages}, nil
}

func (c *Chain) ID() string { return "pipeline" }

func (c *Chain) Name() string {
	names := make([]string, len(c.stages))
	for i, s := range c.stages {
		names[i] = s.Name()
	}
	return "Pipeline (" + strings.Join(names, " → ") + ")"
}

func (c *Chain) Transform(ctx context.Context, input string) (string, error) {
	out := input
	for _, s := range c.stages {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		var err error
		out, err = s.Transform(ctx, out)
		if err != nil {
			return "", fmt.Errorf("stage %s: %w", s.ID(), err)
		}
	}
	return out, nil
}
