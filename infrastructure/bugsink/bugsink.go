package bugsink

import (
	"fmt"
	"sync/atomic"
	"time"

	"brandhub/infrastructure/logger"

	"github.com/getsentry/sentry-go"
)

var enabled atomic.Bool

// Init configures sentry error reporting. An empty DSN disables reporting.
func Init(dsn, environment string) error {
	if dsn == "" {
		logger.GetLogger().Info("Sentry DSN not provided, error reporting disabled")
		enabled.Store(false)
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if event.Tags == nil {
				event.Tags = make(map[string]string)
			}
			event.Tags["service"] = "brandhub"
			event.Tags["component"] = "publisher"
			return event
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}
	enabled.Store(true)
	logger.GetLogger().WithField("environment", environment).Info("Sentry error reporting initialized")
	return nil
}

// IsEnabled reports whether events are sent.
func IsEnabled() bool {
	return enabled.Load()
}

// CaptureError reports err with tags such as content_id and platform.
func CaptureError(err error, tags map[string]string) {
	if !IsEnabled() || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		scope.SetLevel(sentry.LevelError)
		sentry.CaptureException(err)
	})
}

// CapturePanic reports a value obtained from recover.
func CapturePanic(recovered interface{}, tags map[string]string) {
	if !IsEnabled() || recovered == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		scope.SetLevel(sentry.LevelFatal)
		scope.SetContext("panic", map[string]interface{}{
			"recovered_value": fmt.Sprintf("%v", recovered),
		})
		sentry.CaptureException(fmt.Errorf("panic recovered: %v", recovered))
	})
}

// Flush waits for pending events up to timeout.
func Flush(timeout time.Duration) bool {
	if !IsEnabled() {
		return true
	}
	return sentry.Flush(timeout)
}
