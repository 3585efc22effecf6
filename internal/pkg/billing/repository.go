package billing

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mapforge-io/mapforge/app/models"
	"github.com/mapforge-io/mapforge/internal/pkg/entitlements"
)

// Repository is the storage boundary of the payment engine. The gorm
// implementation is the production path; tests substitute an in-memory fake.
type Repository interface {
	// InTx runs fn against a repository bound to a storage transaction.
	// All writes inside fn commit or roll back together.
	InTx(fn func(Repository) error) error

	CreateTransaction(tx *models.Transaction) error
	GetTransactionByID(id string) (*models.Transaction, error)
	GetTransactionByReference(gateway, reference string) (*models.Transaction, error)
	UpdateTransactionGatewayInfo(id, reference, paymentURL string) error
	// FinalizeTransaction moves a transaction from Pending to a terminal
	// status. Returns false when the row was not pending anymore, which is
	// the cross-process guard behind the in-process transaction lock.
	FinalizeTransaction(id, toStatus, cancellationReason string, membershipID *string) (bool, error)
	ListStalePendingTransactions(olderThan time.Time, limit int) ([]models.Transaction, error)
	CreateAuditEntry(entry *models.TransactionAudit) error

	// CreateWebhookEventIfNotExists inserts the event unless the
	// (gateway, provider_event_id) pair is already recorded. Returns false
	// on a duplicate.
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, error)
	MarkWebhookProcessed(id uint, processingError string) error

	GetPlanByID(id int) (*models.Plan, error)

	GetMembershipByID(id string) (*models.Membership, error)
	GetMembershipByUserOrg(userID, orgID string) (*models.Membership, error)
	SaveMembership(m *models.Membership) error
	CreateAddon(a *models.MembershipAddon) error
	GrantAccessTools(userID string, plan *models.Plan, expiresAt *time.Time) error

	GetUsage(membershipID, orgID string) (*models.MembershipUsage, error)
	CreateUsage(u *models.MembershipUsage) error
	// ConsumeIfWithinLimit atomically increments a usage counter iff the
	// incremented value stays within limit. Returns false when the quota
	// would be exceeded.
	ConsumeIfWithinLimit(membershipID, orgID, resourceKey string, amount, limit int) (bool, error)
	// IncrementCounter increments without a limit check (unlimited quotas).
	IncrementCounter(membershipID, orgID, resourceKey string, amount int) error
	ResetUsage(membershipID string, cycleStart, cycleEnd time.Time) error
	ListUsageDueForReset(now time.Time, limit int) ([]models.MembershipUsage, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates the gorm-backed repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) InTx(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) CreateTransaction(tx *models.Transaction) error {
	return r.db.Create(tx).Error
}

func (r *gormRepository) GetTransactionByID(id string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.Where("id = ?", id).First(&tx).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *gormRepository) GetTransactionByReference(gateway, reference string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.Where("gateway = ? AND reference = ?", gateway, reference).First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *gormRepository) UpdateTransactionGatewayInfo(id, reference, paymentURL string) error {
	now := time.Now()
	return r.db.Model(&models.Transaction{}).Where("id = ?", id).Updates(map[string]interface{}{
		"reference":              reference,
		"payment_url":            paymentURL,
		"payment_url_created_at": &now,
	}).Error
}

func (r *gormRepository) FinalizeTransaction(id, toStatus, cancellationReason string, membershipID *string) (bool, error) {
	updates := map[string]interface{}{
		"status": toStatus,
	}
	if cancellationReason != "" {
		updates["cancellation_reason"] = cancellationReason
	}
	if membershipID != nil {
		updates["membership_id"] = membershipID
	}
	res := r.db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TransactionStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) ListStalePendingTransactions(olderThan time.Time, limit int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := r.db.Where("status = ? AND created_at < ?", models.TransactionStatusPending, olderThan).
		Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *gormRepository) CreateAuditEntry(entry *models.TransactionAudit) error {
	return r.db.Create(entry).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "gateway"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}).Error
}

func (r *gormRepository) GetPlanByID(id int) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.Where("id = ?", id).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *gormRepository) GetMembershipByID(id string) (*models.Membership, error) {
	var m models.Membership
	if err := r.db.Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *gormRepository) GetMembershipByUserOrg(userID, orgID string) (*models.Membership, error) {
	var m models.Membership
	err := r.db.Where("user_id = ? AND org_id = ?", userID, orgID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *gormRepository) SaveMembership(m *models.Membership) error {
	return r.db.Save(m).Error
}

func (r *gormRepository) CreateAddon(a *models.MembershipAddon) error {
	return r.db.Create(a).Error
}

func (r *gormRepository) GrantAccessTools(userID string, plan *models.Plan, expiresAt *time.Time) error {
	return entitlements.GrantForPlan(r.db, userID, plan, expiresAt)
}

func (r *gormRepository) GetUsage(membershipID, orgID string) (*models.MembershipUsage, error) {
	var u models.MembershipUsage
	err := r.db.Where("membership_id = ? AND org_id = ?", membershipID, orgID).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *gormRepository) CreateUsage(u *models.MembershipUsage) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "membership_id"},
			{Name: "org_id"},
		},
		DoNothing: true,
	}).Create(u).Error
}

func (r *gormRepository) ConsumeIfWithinLimit(membershipID, orgID, resourceKey string, amount, limit int) (bool, error) {
	column, ok := models.CounterColumn(resourceKey)
	if !ok {
		return false, fmt.Errorf("unknown resource key: %s", resourceKey)
	}
	// Conditional increment in one statement: the database is the arbiter
	// under concurrency, RowsAffected is the verdict.
	res := r.db.Model(&models.MembershipUsage{}).
		Where("membership_id = ? AND org_id = ?", membershipID, orgID).
		Where(fmt.Sprintf("%s + ? <= ?", column), amount, limit).
		Update(column, gorm.Expr(fmt.Sprintf("%s + ?", column), amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) IncrementCounter(membershipID, orgID, resourceKey string, amount int) error {
	column, ok := models.CounterColumn(resourceKey)
	if !ok {
		return fmt.Errorf("unknown resource key: %s", resourceKey)
	}
	return r.db.Model(&models.MembershipUsage{}).
		Where("membership_id = ? AND org_id = ?", membershipID, orgID).
		Update(column, gorm.Expr(fmt.Sprintf("%s + ?", column), amount)).Error
}

func (r *gormRepository) ResetUsage(membershipID string, cycleStart, cycleEnd time.Time) error {
	return r.db.Model(&models.MembershipUsage{}).
		Where("membership_id = ?", membershipID).
		Updates(map[string]interface{}{
			"maps_created_this_cycle":    0,
			"exports_this_cycle":         0,
			"custom_layers_this_cycle":   0,
			"tokens_consumed_this_cycle": 0,
			"cycle_start_date":           cycleStart,
			"cycle_end_date":             cycleEnd,
		}).Error
}

func (r *gormRepository) ListUsageDueForReset(now time.Time, limit int) ([]models.MembershipUsage, error) {
	var rows []models.MembershipUsage
	err := r.db.Where("cycle_end_date <= ?", now).Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// IsNotFound reports whether err is the storage layer's missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
