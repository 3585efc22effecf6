package models

import "time"

// Resource keys tracked per billing cycle.
const (
	ResourceMaps         = "maps"
	ResourceExports      = "exports"
	ResourceUsers        = "users"
	ResourceCustomLayers = "custom_layers"
	ResourceTokens       = "tokens"
)

// MembershipUsage holds the named resource counters for one
// (membership, organization) pair within the current billing cycle.
// Counters are monotonically non-decreasing within a cycle and are reset
// to zero only by an explicit cycle rollover.
type MembershipUsage struct {
	ID                      string    `gorm:"type:char(36);primaryKey" json:"id"`
	MembershipID            string    `gorm:"type:char(36);not null;index:ux_membership_usages_membership_org,unique,priority:1" json:"membership_id"`
	OrgID                   string    `gorm:"type:char(36);not null;index:ux_membership_usages_membership_org,unique,priority:2" json:"org_id"`
	MapsCreatedThisCycle    int       `gorm:"not null;default:0" json:"maps_created_this_cycle"`
	ExportsThisCycle        int       `gorm:"not null;default:0" json:"exports_this_cycle"`
	ActiveUsersInOrg        int       `gorm:"not null;default:0" json:"active_users_in_org"`
	CustomLayersThisCycle   int       `gorm:"not null;default:0" json:"custom_layers_this_cycle"`
	TokensConsumedThisCycle int       `gorm:"not null;default:0" json:"tokens_consumed_this_cycle"`
	CycleStartDate          time.Time `gorm:"type:timestamp;not null" json:"cycle_start_date"`
	CycleEndDate            time.Time `gorm:"type:timestamp;not null;index" json:"cycle_end_date"`
	CreatedAt               time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CounterColumn maps a resource key to its usage counter column.
// The whitelist keeps resource keys out of raw SQL.
func CounterColumn(resourceKey string) (string, bool) {
	switch resourceKey {
	case ResourceMaps:
		return "maps_created_this_cycle", true
	case ResourceExports:
		return "exports_this_cycle", true
	case ResourceUsers:
		return "active_users_in_org", true
	case ResourceCustomLayers:
		return "custom_layers_this_cycle", true
	case ResourceTokens:
		return "tokens_consumed_this_cycle", true
	default:
		return "", false
	}
}

// CounterValue returns the current counter for a resource key.
func (u *MembershipUsage) CounterValue(resourceKey string) int {
	switch resourceKey {
	case ResourceMaps:
		return u.MapsCreatedThisCycle
	case ResourceExports:
		return u.ExportsThisCycle
	case ResourceUsers:
		return u.ActiveUsersInOrg
	case ResourceCustomLayers:
		return u.CustomLayersThisCycle
	case ResourceTokens:
		return u.TokensConsumedThisCycle
	default:
		return 0
	}
}
