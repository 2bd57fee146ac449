package notify

import (
	"go.uber.org/zap"

	"gitpulse/internal/logger"
)

type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeveritySuccess Severity = "SUCCESS"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// Notifier delivers terminal sync outcomes and lifecycle events to the
// user. Delivery is external; the default implementation surfaces them
// through the structured log for the launcher to pick up.
type Notifier interface {
	Notify(title, message string, severity Severity)
}

func New(silent bool) Notifier {
	if silent {
		return NopNotifier{}
	}
	return LogNotifier{}
}

type LogNotifier struct{}

func (LogNotifier) Notify(title, message string, severity Severity) {
	fields := []zap.Field{
		zap.String("notification", title),
		zap.String("severity", string(severity)),
	}

	switch severity {
	case SeverityWarning:
		logger.Log.Warn(message, fields...)
	case SeverityError:
		logger.Log.Error(message, fields...)
	default:
		logger.Log.Info(message, fields...)
	}
}

type NopNotifier struct{}

func (NopNotifier) Notify(string, string, Severity) {}
