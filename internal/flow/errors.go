package flow

import "fmt"

// ErrKind is the closed set of everything that can abort a flow.
type ErrKind string

const (
	KindPermissionDenied  ErrKind = "permission_denied"
	KindBufferEmpty       ErrKind = "buffer_empty"
	KindBinaryContent     ErrKind = "binary_content"
	KindSelfWrite         ErrKind = "self_write_detected"
	KindNoTextContent     ErrKind = "no_text_content"
	KindTransformFailed   ErrKind = "transform_failed"
	KindWriteBackFailed   ErrKind = "write_back_failed"
	KindSideEffectFailed  ErrKind = "side_effect_failed"
	KindAlreadyProcessing ErrKind = "already_processing"
)

// Error is the kind-tagged flow failure. MIMEType is set for binary content
// rejections; Cause carries the underlying error where one exists.
type Error struct {
	Kind     ErrKind
	MIMEType string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	if e.MIMEType != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.MIMEType)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// Silent errors drive the state machine and lastError but are never
// surfaced to the user.
func (e *Error) Silent() bool {
	switch e.Kind {
	case KindSelfWrite, KindBufferEmpty, KindAlreadyProcessing:
		return true
	}
	return false
}

// RequiresRestore reports whether the recovery manager must put the
// captured original back. Only the kinds that can have mutated the buffer
// after capture qualify: precondition failures touched nothing (restoring
// there would flatten a multi-representation buffer to its text slot), and
// a failed side-effect legitimately leaves the transformed content in place.
func (e *Error) RequiresRestore() bool {
	switch e.Kind {
	case KindTransformFailed, KindWriteBackFailed:
		return true
	}
	return false
}

// Message renders the user-facing description for an error. Kept separate
// from classification so both stay trivially testable.
func Message(e *Error) string {
	switch e.Kind {
	case KindPermissionDenied:
		return "Accessibility permission is required to paste the result."
	case KindBufferEmpty:
		return "The buffer is empty."
	case KindBinaryContent:
		return fmt.Sprintf("The buffer holds non-text content (%s).", e.MIMEType)
	case KindSelfWrite:
		return "The buffer already holds a transformed result."
	case KindNoTextContent:
		return "The buffer content could not be read as text."
	case KindTransformFailed:
		return fmt.Sprintf("The transformation failed: %v.", e.Cause)
	case KindWriteBackFailed:
		return fmt.Sprintf("Writing the result back failed: %v.", e.Cause)
	case KindSideEffectFailed:
		return fmt.Sprintf("The result was produced but pasting it failed: %v.", e.Cause)
	case KindAlreadyProcessing:
		return "A transformation is already running."
	}
	return string(e.Kind)
}
