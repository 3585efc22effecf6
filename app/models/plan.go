package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnlimitedQuota marks a plan limit as unbounded. Consumption is always
// allowed but counters still increment for reporting.
const UnlimitedQuota = -1

// Plan is an immutable catalog entry. The payment engine reads plans but
// never writes them.
type Plan struct {
	ID              int             `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"type:varchar(100);not null;index" json:"name"`
	Description     string          `gorm:"type:text" json:"description"`
	PriceMonthly    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price_monthly"`
	DurationMonths  int             `gorm:"not null;default:1" json:"duration_months"`
	MapQuota        int             `gorm:"not null;default:0" json:"map_quota"`
	ExportQuota     int             `gorm:"not null;default:0" json:"export_quota"`
	MaxUsersPerOrg  int             `gorm:"not null;default:1" json:"max_users_per_org"`
	MaxCustomLayers int             `gorm:"not null;default:0" json:"max_custom_layers"`
	MonthlyTokens   int             `gorm:"not null;default:10000" json:"monthly_tokens"`
	FeaturesJSON    string          `gorm:"type:text" json:"features_json"`
	IsActive        bool            `gorm:"default:true;index" json:"is_active"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// QuotaLimit returns the plan limit for a resource key.
func (p *Plan) QuotaLimit(resourceKey string) int {
	switch resourceKey {
	case ResourceMaps:
		return p.MapQuota
	case ResourceExports:
		return p.ExportQuota
	case ResourceUsers:
		return p.MaxUsersPerOrg
	case ResourceCustomLayers:
		return p.MaxCustomLayers
	case ResourceTokens:
		return p.MonthlyTokens
	default:
		return 0
	}
}
