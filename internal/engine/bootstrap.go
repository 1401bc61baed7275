package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"clipflow/internal/buffer"
	"clipflow/internal/config"
	"clipflow/internal/detect"
	"clipflow/internal/effect"
	"clipflow/internal/flow"
	"clipflow/internal/logging"
	"clipflow/internal/notify"
	"clipflow/internal/recovery"
	"clipflow/internal/spec"
	"clipflow/internal/strategy"
	"clipflow/internal/telemetry"
	"clipflow/internal/transport"
	"clipflow/sink"
)

func Bootstrap(ctx context.Context, cfg config.Config) (*Engine, error) {
	log := logging.With("engine")

	// 1. buffer driver
	var buf buffer.Buffer
	switch cfg.Buffer.Driver {
	case "memory":
		buf = buffer.NewMemory()
	case "system":
		buf = buffer.NewSystem()
	default:
		return nil, fmt.Errorf("buffer: unsupported driver %q", cfg.Buffer.Driver)
	}

	// 2. transformation set
	tf, err := config.LoadTransformSpec(cfg.Transformations)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("no transformation file, registering builtins by kind", "path", cfg.Transformations)
		tf = defaultTransformations()
	} else if err != nil {
		return nil, fmt.Errorf("transformations: %w", err)
	}
	resolve, err := buildResolver(tf)
	if err != nil {
		return nil, err
	}

	// 3. history sinks
	var sinks []sink.Adapter
	for _, name := range cfg.History.Sinks {
		drv, err := sink.NewAdapter(name)
		if err != nil {
			return nil, err
		}
		switch name {
		case "stdout":
			err = drv.Configure(cfg.History.Stdout)
		case "kafka":
			err = drv.Configure(cfg.History.Kafka)
		default:
			err = fmt.Errorf("no config block for history sink %q", name)
		}
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, drv)
	}
	history := &fanout{sinks: sinks}

	// 4. side-effect
	var se flow.SideEffect
	if cfg.Effect.Command != "" {
		se = effect.NewCommand(cfg.Effect.Command, cfg.Effect.Args)
	} else {
		se = effect.NewNoop()
	}

	// 5. metrics
	metrics := telemetry.New()
	telemetry.Expose(metrics, cfg.MetricsPort)

	// 6. orchestrator
	orch := flow.New(flow.Deps{
		Buffer:   buf,
		Resolve:  resolve,
		Recovery: recovery.NewManager(buf),
		Effect:   se,
		Notifier: notify.NewLog(),
		History:  history,
		Metrics:  metrics,
	}, flow.Options{
		Timeout:     cfg.Flow.Timeout,
		SettleDelay: cfg.Flow.Settle,
	})

	// 7. change detector
	detector := detect.New(buf, changeListener(ctx, cfg, orch, log), detect.Options{
		Interval: cfg.Detector.Interval,
		Slack:    cfg.Detector.Slack,
		Grace:    cfg.Detector.Grace,
	}, metrics)
	detector.Start(ctx)

	// 8. control api
	srv := transport.NewServer(orch, detector, cfg.ControlPort)

	return &Engine{
		transport: srv,
		detector:  detector,
		orch:      orch,
		history:   history,
	}, nil
}

// buildResolver instantiates every declared transformation and the pipeline
// chain, and maps trigger sources onto them.
func buildResolver(tf spec.File) (flow.Resolver, error) {
	byName := make(map[string]strategy.Strategy, len(tf.Transformations))
	for _, t := range tf.Transformations {
		s, err := strategy.New(t.Kind, t.Options)
		if err != nil {
			return nil, fmt.Errorf("transformation %s: %w", t.Name, err)
		}
		byName[t.Name] = s
	}

	var chain strategy.Strategy
	if len(tf.Pipeline) > 0 {
		stages := make([]strategy.Strategy, len(tf.Pipeline))
		for i, name := range tf.Pipeline {
			stages[i] = byName[name]
		}
		c, err := strategy.NewChain(stages...)
		if err != nil {
			return nil, err
		}
		chain = c
	}

	return func(src flow.Source) (strategy.Strategy, error) {
		switch src.Kind {
		case flow.SourceSingle:
			s, ok := byName[src.TransformationID]
			if !ok {
				return nil, fmt.Errorf("unknown transformation %q", src.TransformationID)
			}
			return s, nil
		case flow.SourcePipeline:
			if chain == nil {
				return nil, errors.New("no pipeline configured")
			}
			return chain, nil
		}
		return nil, fmt.Errorf("unknown trigger source %q", src.Kind)
	}, nil
}

// defaultTransformations registers each builtin under its own kind name.
func defaultTransformations() spec.File {
	kinds := []string{"uppercase", "lowercase", "trim", "reverse"}
	f := spec.File{SchemaVersion: config.SupportedSchema}
	for _, k := range kinds {
		f.Transformations = append(f.Transformations, spec.TransformationSpec{Name: k, Kind: k})
	}
	f.Pipeline = []string{"trim"}
	return f
}
