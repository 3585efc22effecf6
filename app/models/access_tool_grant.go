package models

import "time"

// AccessToolGrant records an access tool granted to a user for the lifetime
// of a paid membership. The (user_id, tool_key) unique index makes grants
// idempotent under reconciler replays.
type AccessToolGrant struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    string     `gorm:"type:char(36);not null;index:ux_access_tool_grants_user_tool,unique,priority:1" json:"user_id"`
	ToolKey   string     `gorm:"type:varchar(100);not null;index:ux_access_tool_grants_user_tool,unique,priority:2" json:"tool_key"`
	PlanID    int        `gorm:"not null" json:"plan_id"`
	ExpiresAt *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
