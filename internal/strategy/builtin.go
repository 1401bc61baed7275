package strategy

import (
	"context"
	"fmt"
	"strings"
)

// Builtins are deterministic local strategies. Remote-model strategies are
// external plug-ins registered by the host the same way.

func init() {
	Register("uppercase", func(map[string]string) (Strategy, error) {
		return NewFunc("uppercase", "Uppercase", func(_ context.Context, in string) (string, error) {
			return strings.ToUpper(in), nil
		}), nil
	})
	Register("lowercase", func(map[string]string) (Strategy, error) {
		return NewFunc("lowercase", "Lowercase", func(_ context.Context, in string) (string, error) {
			return strings.ToLower(in), nil
		}), nil
	})
	Register("trim", func(map[string]string) (Strategy, error) {
		return NewFunc("trim", "Trim Whitespace", func(_ context.Context, in string) (string, error) {
			lines := strings.Split(in, "\n")
			for i, l := range lines {
				lines[i] = strings.TrimRight(l, " \t")
			}
			return strings.TrimSpace(strings.Join(lines, "\n")), nil
		}), nil
	})
	Register("reverse", func(map[string]string) (Strategy, error) {
		return NewFunc("reverse", "Reverse", func(_ context.Context, in string) (string, error) {
			r := []rune(in)
			for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
				r[i], r[j] = r[j], r[i]
			}
			return string(r), nil
		}), nil
	})
	Register("template", newTemplate)
}

// newTemplate wraps input between a configured prefix and suffix.
func newTemplate(opts map[string]string) (Strategy, error) {
	prefix, suffix := opts["prefix"], opts["suffix"]
	if prefix == "" && suffix == "" {
		return nil, fmt.Errorf("template: need prefix and/or suffix")
	}
	name := opts["name"]
	if name == "" {
		name = "Template"
	}
	return NewFunc("template", name, func(_ context.Context, in string) (string, error) {
		return prefix + in + suffix, nil
	}), nil
}
