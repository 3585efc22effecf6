package dispatch

import (
	"github.com/gofiber/fiber/v2/log"
)

// Dispatcher hands reconciler side effects to the queue. It satisfies the
// billing SideEffects contract; enqueue errors are logged and swallowed
// because the payment itself already committed.
type Dispatcher struct {
	queue *Queue
}

// NewDispatcher creates a dispatcher bound to a queue.
func NewDispatcher(queue *Queue) *Dispatcher {
	return &Dispatcher{queue: queue}
}

// Notify enqueues a user notification.
func (d *Dispatcher) Notify(userID, eventKind, referenceID, content string) {
	payload := NotificationJobPayload{
		UserID:      userID,
		Kind:        eventKind,
		Content:     content,
		ReferenceID: referenceID,
	}
	if _, err := d.queue.EnqueueOnce(JobTypeNotification, payload.DedupKey(), payload.ToMap()); err != nil {
		log.Errorf("[Dispatch] Failed to enqueue notification for user %s: %v", userID, err)
	}
}

// GrantEntitlements enqueues an access tool refresh for a user's plan.
func (d *Dispatcher) GrantEntitlements(userID string, planID int, referenceID string) {
	payload := EntitlementRefreshJobPayload{
		UserID:       userID,
		PlanID:       planID,
		MembershipID: referenceID,
	}
	if _, err := d.queue.EnqueueOnce(JobTypeEntitlementRefresh, payload.DedupKey(), payload.ToMap()); err != nil {
		log.Errorf("[Dispatch] Failed to enqueue entitlement refresh for user %s: %v", userID, err)
	}
}
