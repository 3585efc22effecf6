package dispatch

import (
	"fmt"
	"time"

	"github.com/mapforge-io/mapforge/app/models"
	"github.com/mapforge-io/mapforge/internal/pkg/database"
	"github.com/mapforge-io/mapforge/internal/pkg/entitlements"
)

// processNotificationJob stores a user notification. At-least-once safe: the
// enqueue-side dedup key keeps replays from stacking duplicates.
func (q *Queue) processNotificationJob(job *Job) error {
	payload, err := NotificationJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid notification payload: %w", err)
	}
	if payload.UserID == "" || payload.Kind == "" {
		return fmt.Errorf("notification payload missing user or kind")
	}

	db := database.GetDB()
	return models.CreateNotification(db, payload.UserID, payload.Kind, payload.Content, payload.ReferenceID)
}

// processEntitlementRefreshJob re-applies the access tool grants for a plan.
// The grants were already written inside the fulfillment transaction; this
// job repairs drift after manual plan fixes or partial replays.
func (q *Queue) processEntitlementRefreshJob(job *Job) error {
	payload, err := EntitlementRefreshJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid entitlement payload: %w", err)
	}
	if payload.UserID == "" || payload.PlanID == 0 {
		return fmt.Errorf("entitlement payload missing user or plan")
	}

	db := database.GetDB()

	var plan models.Plan
	if err := db.Where("id = ?", payload.PlanID).First(&plan).Error; err != nil {
		return fmt.Errorf("plan %d not found: %w", payload.PlanID, err)
	}

	var expiresAt *time.Time
	if payload.MembershipID != "" {
		var membership models.Membership
		if err := db.Where("id = ?", payload.MembershipID).First(&membership).Error; err == nil {
			expiresAt = &membership.BillingCycleEndDate
		}
	}

	return entitlements.GrantForPlan(db, payload.UserID, &plan, expiresAt)
}
