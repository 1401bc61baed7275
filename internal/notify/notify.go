// Package notify renders flow failures for the user. The daemon's default
// notifier writes structured log lines; a desktop front-end replaces it with
// a real notification center.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"clipflow/internal/flow"
	"clipflow/internal/logging"
)

// Log is a flow.Notifier backed by the process logger.
type Log struct {
	log *slog.Logger
}

func NewLog() *Log {
	return &Log{log: logging.With("notify")}
}

func (n *Log) Notify(_ context.Context, title, message string, category flow.Category, action flow.Action) {
	n.log.Warn(title,
		"message", message,
		"category", string(category),
		"hint", Hint(action),
	)
}

// Hint renders the actionable recovery hint for an action.
func Hint(a flow.Action) string {
	switch a.Kind {
	case flow.ActionOpenSettings:
		return "Check the provider credentials in settings."
	case flow.ActionRetry:
		return "Try again."
	case flow.ActionWaitAndRetry:
		return fmt.Sprintf("Wait %s, then try again.", a.Wait)
	case flow.ActionRequestPermission:
		return "Grant the paste permission in system settings."
	case flow.ActionInformOnly:
		return ""
	}
	return ""
}
