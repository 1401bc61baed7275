// Package flow contains the transformation flow orchestrator: the state
// machine that turns user triggers into serialized, cancellable,
// timeout-bounded transformation runs over the shared buffer.
package flow

import (
	"time"

	"github.com/google/uuid"
)

// SourceKind tags where a trigger came from.
type SourceKind string

const (
	// SourceSingle runs one named transformation.
	SourceSingle SourceKind = "single"
	// SourcePipeline runs the configured transformation chain.
	SourcePipeline SourceKind = "pipeline"
)

// Source identifies the transformation a trigger asks for. Immutable.
type Source struct {
	Kind             SourceKind
	TransformationID string // set for SourceSingle
}

func SingleSource(transformationID string) Source {
	return Source{Kind: SourceSingle, TransformationID: transformationID}
}

func PipelineSource() Source {
	return Source{Kind: SourcePipeline}
}

// Request identifies one trigger. Created when the trigger fires, consumed
// by the queue and the flow, never mutated.
type Request struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Timeout   time.Duration
	Source    Source
}

// Outcome is the result of a completed request. Created only on success.
type Outcome struct {
	Request     *Request
	Original    string
	Output      string
	CompletedAt time.Time
}

// Phase is the orchestrator lifecycle state. Exactly one holds at any time;
// transitions are driven only by the orchestrator itself.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseProcessing Phase = "processing"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
	PhaseCancelled  Phase = "cancelled"
)

// State is the observable orchestrator state.
type State struct {
	Phase   Phase
	Request *Request // processing, failed, cancelled
	Outcome *Outcome // completed
	Err     *Error   // failed
}
