package flow

import (
	"context"
	"errors"
	"time"

	"clipflow/internal/strategy"
)

// Category is the coarse error classification that drives user messaging.
type Category string

const (
	CategoryNetwork    Category = "network"
	CategoryAuth       Category = "authentication"
	CategoryRateLimit  Category = "rate_limit"
	CategoryTimeout    Category = "timeout"
	CategoryPermission Category = "permission_required"
	CategoryContent    Category = "content_issue"
	CategoryProcessing Category = "processing_error"
)

// ActionKind is the recovery hint attached to a notification.
type ActionKind string

const (
	ActionOpenSettings      ActionKind = "open_settings"
	ActionRetry             ActionKind = "retry"
	ActionWaitAndRetry      ActionKind = "wait_and_retry"
	ActionRequestPermission ActionKind = "request_permission"
	ActionInformOnly        ActionKind = "inform_only"
)

// Action pairs a recovery hint with its wait, when one applies.
type Action struct {
	Kind ActionKind
	Wait time.Duration
}

// Categorize maps a flow error to its category and recovery action. It is a
// pure function over the tagged union.
func Categorize(e *Error) (Category, Action) {
	switch e.Kind {
	case KindPermissionDenied:
		return CategoryPermission, Action{Kind: ActionRequestPermission}
	case KindBufferEmpty, KindBinaryContent, KindSelfWrite, KindNoTextContent:
		return CategoryContent, Action{Kind: ActionInformOnly}
	case KindTransformFailed:
		return categorizeCause(e.Cause)
	case KindWriteBackFailed, KindSideEffectFailed:
		return CategoryProcessing, Action{Kind: ActionRetry}
	case KindAlreadyProcessing:
		return CategoryProcessing, Action{Kind: ActionInformOnly}
	}
	return CategoryProcessing, Action{Kind: ActionInformOnly}
}

func categorizeCause(cause error) (Category, Action) {
	if cause == nil {
		return CategoryProcessing, Action{Kind: ActionRetry}
	}
	var rl *strategy.RateLimitError
	if errors.As(cause, &rl) {
		return CategoryRateLimit, Action{Kind: ActionWaitAndRetry, Wait: rl.RetryAfter}
	}
	var auth *strategy.AuthError
	if errors.As(cause, &auth) {
		return CategoryAuth, Action{Kind: ActionOpenSettings}
	}
	var net *strategy.NetworkError
	if errors.As(cause, &net) {
		return CategoryNetwork, Action{Kind: ActionRetry}
	}
	if errors.Is(cause, context.DeadlineExceeded) {
		return CategoryTimeout, Action{Kind: ActionRetry}
	}
	return CategoryProcessing, Action{Kind: ActionRetry}
}
