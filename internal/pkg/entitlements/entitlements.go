package entitlements

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/mapforge-io/mapforge/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Access tools granted for paid plans when the plan does not pin its own set.
var defaultPaidTools = []string{"map_editor", "layer_import", "export_center"}

// planFeatures is the subset of the plan feature JSON the engine reads.
type planFeatures struct {
	AccessTools []string `json:"access_tools"`
}

// ToolsForPlan returns the access tool keys a plan entitles its members to.
// A plan may pin an explicit list in its feature JSON; otherwise paid plans
// get the default tool set and free plans get none.
func ToolsForPlan(plan *models.Plan) []string {
	if plan == nil {
		return nil
	}

	if raw := strings.TrimSpace(plan.FeaturesJSON); raw != "" {
		var features planFeatures
		if err := json.Unmarshal([]byte(raw), &features); err == nil && len(features.AccessTools) > 0 {
			return features.AccessTools
		}
	}

	if plan.PriceMonthly.IsPositive() {
		return append([]string(nil), defaultPaidTools...)
	}
	return nil
}

// GrantForPlan upserts access tool grants for a user according to the plan.
// Safe to call repeatedly for the same membership: the (user, tool) unique
// index turns replays into updates.
func GrantForPlan(db *gorm.DB, userID string, plan *models.Plan, expiresAt *time.Time) error {
	tools := ToolsForPlan(plan)
	for _, toolKey := range tools {
		grant := &models.AccessToolGrant{
			UserID:    userID,
			ToolKey:   toolKey,
			PlanID:    plan.ID,
			ExpiresAt: expiresAt,
		}
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "tool_key"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"plan_id", "expires_at", "updated_at"}),
		}).Create(grant).Error
		if err != nil {
			return err
		}
	}

	// Revoke grants from previous plans that the new plan no longer covers.
	if len(tools) > 0 {
		return db.Where("user_id = ? AND tool_key NOT IN ?", userID, tools).
			Delete(&models.AccessToolGrant{}).Error
	}
	return db.Where("user_id = ?", userID).Delete(&models.AccessToolGrant{}).Error
}
