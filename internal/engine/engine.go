package engine

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"clipflow/internal/classify"
	"clipflow/internal/config"
	"clipflow/internal/detect"
	"clipflow/internal/flow"
	"clipflow/internal/transport"
	"clipflow/sink"
)

type Engine struct {
	transport *transport.Server
	detector  *detect.Detector
	orch      *flow.Orchestrator
	history   sink.Adapter
}

func (e *Engine) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		e.detector.Stop()
		e.orch.Cancel()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.transport.Shutdown(sctx)
		_ = e.history.Close()
	}()

	err := e.transport.Start()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Orchestrator exposes the flow orchestrator, used by front-ends embedding
// the engine in-process.
func (e *Engine) Orchestrator() *flow.Orchestrator { return e.orch }

// changeListener reacts to external buffer changes. With auto_trigger on,
// every external text change runs the configured pipeline; the self-write
// marker keeps the loop from feeding on its own output.
func changeListener(ctx context.Context, cfg config.Config, orch *flow.Orchestrator, log *slog.Logger) detect.Listener {
	return func(content classify.Content) {
		if content.Marked {
			return
		}
		log.Debug("buffer changed externally", "kind", string(content.Kind))
		if !cfg.Detector.AutoTrigger || content.Kind != classify.KindText {
			return
		}
		if !orch.HandleTrigger(ctx, flow.PipelineSource()) {
			log.Debug("auto-trigger dropped, flow in flight")
		}
	}
}
