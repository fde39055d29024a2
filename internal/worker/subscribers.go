package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/realtime"
	"github.com/spec-kit/support-desk/internal/service"
)

// Subscribers groups the in-process event consumers.
type Subscribers struct {
	Notifications *service.NotificationService
	Audit         *service.AuditRecorder
	Relay         *realtime.Relay
	Logger        *zap.Logger
}

// StartSubscribers registers event handlers and, when configured, starts the
// realtime relay. The returned channel closes once the relay has stopped.
func StartSubscribers(ctx context.Context, subs Subscribers) <-chan struct{} {
	if subs.Notifications != nil {
		subs.Notifications.RegisterHandlers()
	}
	if subs.Audit != nil {
		subs.Audit.RegisterHandlers()
	}

	done := make(chan struct{})
	if subs.Relay == nil {
		close(done)
		return done
	}
	logger := subs.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	go func() {
		defer close(done)
		if err := subs.Relay.Run(ctx); err != nil {
			logger.Error("realtime relay stopped", zap.Error(err))
		}
	}()
	return done
}
