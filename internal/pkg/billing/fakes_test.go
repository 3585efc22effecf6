package billing

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/mapforge-io/mapforge/app/models"
	"github.com/mapforge-io/mapforge/internal/pkg/payment"
)

// fakeRepo is an in-memory Repository for service and quota tests.
type fakeRepo struct {
	mu sync.Mutex

	transactions map[string]*models.Transaction
	plans        map[int]*models.Plan
	memberships  map[string]*models.Membership
	usages       map[string]*models.MembershipUsage
	addons       []*models.MembershipAddon
	audits       []*models.TransactionAudit
	webhooks     []*models.WebhookEvent
	grants       []grantCall

	nextWebhookID uint
}

type grantCall struct {
	userID string
	planID int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		transactions: make(map[string]*models.Transaction),
		plans:        make(map[int]*models.Plan),
		memberships:  make(map[string]*models.Membership),
		usages:       make(map[string]*models.MembershipUsage),
	}
}

func usageKey(membershipID, orgID string) string {
	return membershipID + "|" + orgID
}

func (f *fakeRepo) InTx(fn func(Repository) error) error {
	// No rollback simulation; tests assert on the error path directly.
	return fn(f)
}

func (f *fakeRepo) CreateTransaction(tx *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *tx
	f.transactions[tx.ID] = &cp
	return nil
}

func (f *fakeRepo) GetTransactionByID(id string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.transactions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *tx
	return &cp, nil
}

func (f *fakeRepo) GetTransactionByReference(gateway, reference string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tx := range f.transactions {
		if tx.Gateway == gateway && tx.Reference == reference {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) UpdateTransactionGatewayInfo(id, reference, paymentURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.transactions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	tx.Reference = reference
	tx.PaymentURL = paymentURL
	tx.PaymentURLCreatedAt = &now
	return nil
}

func (f *fakeRepo) FinalizeTransaction(id, toStatus, cancellationReason string, membershipID *string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.transactions[id]
	if !ok || tx.Status != models.TransactionStatusPending {
		return false, nil
	}
	tx.Status = toStatus
	if cancellationReason != "" {
		tx.CancellationReason = cancellationReason
	}
	if membershipID != nil {
		tx.MembershipID = membershipID
	}
	return true, nil
}

func (f *fakeRepo) ListStalePendingTransactions(olderThan time.Time, limit int) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, tx := range f.transactions {
		if tx.Status == models.TransactionStatusPending && tx.CreatedAt.Before(olderThan) {
			out = append(out, *tx)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateAuditEntry(entry *models.TransactionAudit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *entry
	f.audits = append(f.audits, &cp)
	return nil
}

func (f *fakeRepo) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.webhooks {
		if w.Gateway == event.Gateway && w.ProviderEventID == event.ProviderEventID {
			return false, nil
		}
	}
	f.nextWebhookID++
	event.ID = f.nextWebhookID
	cp := *event
	f.webhooks = append(f.webhooks, &cp)
	return true, nil
}

func (f *fakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.webhooks {
		if w.ID == id {
			now := time.Now()
			w.ProcessedAt = &now
			w.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetPlanByID(id int) (*models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	plan, ok := f.plans[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *plan
	return &cp, nil
}

func (f *fakeRepo) GetMembershipByID(id string) (*models.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.memberships[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeRepo) GetMembershipByUserOrg(userID, orgID string) (*models.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.memberships {
		if m.UserID == userID && m.OrgID == orgID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) SaveMembership(m *models.Membership) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *m
	f.memberships[m.ID] = &cp
	return nil
}

func (f *fakeRepo) CreateAddon(a *models.MembershipAddon) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.addons = append(f.addons, &cp)
	return nil
}

func (f *fakeRepo) GrantAccessTools(userID string, plan *models.Plan, expiresAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants = append(f.grants, grantCall{userID: userID, planID: plan.ID})
	return nil
}

func (f *fakeRepo) GetUsage(membershipID, orgID string) (*models.MembershipUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.usages[usageKey(membershipID, orgID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) CreateUsage(u *models.MembershipUsage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := usageKey(u.MembershipID, u.OrgID)
	if _, exists := f.usages[key]; exists {
		return nil
	}
	cp := *u
	f.usages[key] = &cp
	return nil
}

func (f *fakeRepo) ConsumeIfWithinLimit(membershipID, orgID, resourceKey string, amount, limit int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.usages[usageKey(membershipID, orgID)]
	if !ok {
		return false, nil
	}
	if u.CounterValue(resourceKey)+amount > limit {
		return false, nil
	}
	addCounter(u, resourceKey, amount)
	return true, nil
}

func (f *fakeRepo) IncrementCounter(membershipID, orgID, resourceKey string, amount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.usages[usageKey(membershipID, orgID)]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	addCounter(u, resourceKey, amount)
	return nil
}

func (f *fakeRepo) ResetUsage(membershipID string, cycleStart, cycleEnd time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.usages {
		if u.MembershipID != membershipID {
			continue
		}
		u.MapsCreatedThisCycle = 0
		u.ExportsThisCycle = 0
		u.CustomLayersThisCycle = 0
		u.TokensConsumedThisCycle = 0
		u.CycleStartDate = cycleStart
		u.CycleEndDate = cycleEnd
	}
	return nil
}

func (f *fakeRepo) ListUsageDueForReset(now time.Time, limit int) ([]models.MembershipUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.MembershipUsage
	for _, u := range f.usages {
		if !u.CycleEndDate.After(now) {
			out = append(out, *u)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func addCounter(u *models.MembershipUsage, resourceKey string, amount int) {
	switch resourceKey {
	case models.ResourceMaps:
		u.MapsCreatedThisCycle += amount
	case models.ResourceExports:
		u.ExportsThisCycle += amount
	case models.ResourceUsers:
		u.ActiveUsersInOrg += amount
	case models.ResourceCustomLayers:
		u.CustomLayersThisCycle += amount
	case models.ResourceTokens:
		u.TokensConsumedThisCycle += amount
	}
}

// fakeAdapter is a scripted gateway adapter.
type fakeAdapter struct {
	gateway   string
	approval  *payment.ApprovalResult
	createErr error
	event     *payment.NormalizedPaymentEvent
	verifyErr error

	mu        sync.Mutex
	cancelled []payment.CancelRequest
}

func (a *fakeAdapter) Gateway() string { return a.gateway }

func (a *fakeAdapter) CreateApprovalLink(_ context.Context, _ payment.CheckoutRequest) (*payment.ApprovalResult, error) {
	if a.createErr != nil {
		return nil, a.createErr
	}
	return a.approval, nil
}

func (a *fakeAdapter) VerifyAndNormalize(_ context.Context, _ []byte, _ map[string]string) (*payment.NormalizedPaymentEvent, error) {
	if a.verifyErr != nil {
		return nil, a.verifyErr
	}
	cp := *a.event
	return &cp, nil
}

func (a *fakeAdapter) CancelPayment(_ context.Context, req payment.CancelRequest) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelled = append(a.cancelled, req)
	return nil
}

// fakeEffects records dispatched side effects.
type fakeEffects struct {
	mu            sync.Mutex
	notifications []notifyCall
	entitlements  []grantCall
}

type notifyCall struct {
	userID    string
	eventKind string
	reference string
}

func (e *fakeEffects) Notify(userID, eventKind, referenceID, _ string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifications = append(e.notifications, notifyCall{userID: userID, eventKind: eventKind, reference: referenceID})
}

func (e *fakeEffects) GrantEntitlements(userID string, planID int, _ string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entitlements = append(e.entitlements, grantCall{userID: userID, planID: planID})
}

func (e *fakeEffects) kinds() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.notifications))
	for _, n := range e.notifications {
		out = append(out, n.eventKind)
	}
	return out
}
