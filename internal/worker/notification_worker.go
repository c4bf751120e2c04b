package worker

import (
	"github.com/spec-kit/storm-dispatch/internal/service"
)

// StartNotificationWorker subscribes the notification service to the
// dispatch event stream. Must run before the HTTP server starts accepting
// requests so no event is published without a listener.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
