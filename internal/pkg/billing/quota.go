package billing

import (
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/mapforge-io/mapforge/app/models"
)

// quotaResources are the keys reported in usage snapshots, in display order.
var quotaResources = []string{
	models.ResourceMaps,
	models.ResourceExports,
	models.ResourceUsers,
	models.ResourceCustomLayers,
	models.ResourceTokens,
}

// QuotaService enforces per-cycle resource quotas. The allow/deny decision
// is a single conditional UPDATE so that concurrent consumers can never
// push a counter past its limit.
type QuotaService struct {
	repo  Repository
	locks *keyLock
}

func NewQuotaService(repo Repository) *QuotaService {
	return &QuotaService{repo: repo, locks: newKeyLock()}
}

// TryConsume attempts to consume amount units of a resource for a membership.
// Denial is a decision, not an error: the returned QuotaDecision reports the
// verdict either way.
func (s *QuotaService) TryConsume(userID, orgID, resourceKey string, amount int) (*QuotaDecision, *Error) {
	if _, ok := models.CounterColumn(resourceKey); !ok {
		return nil, ValidationError("Usage.UnknownResource", "unknown resource key: "+resourceKey)
	}
	if amount <= 0 {
		return nil, ValidationError("Usage.InvalidAmount", "amount must be positive")
	}

	membership, plan, bErr := s.activeMembershipWithPlan(userID, orgID)
	if bErr != nil {
		return nil, bErr
	}

	// Cycle resets take the same lock, so a reset cannot interleave
	// between the rollover check and the increment.
	unlock := s.locks.Lock(membership.ID)
	defer unlock()

	usage, bErr := s.ensureUsage(membership, orgID)
	if bErr != nil {
		return nil, bErr
	}

	limit := plan.QuotaLimit(resourceKey)
	if limit == models.UnlimitedQuota {
		if err := s.repo.IncrementCounter(membership.ID, orgID, resourceKey, amount); err != nil {
			return nil, PersistenceError("Usage.ConsumeFailed", err)
		}
		return &QuotaDecision{
			Allowed:      true,
			ResourceKey:  resourceKey,
			CurrentUsage: usage.CounterValue(resourceKey) + amount,
			Limit:        models.UnlimitedQuota,
			Remaining:    models.UnlimitedQuota,
			Unlimited:    true,
		}, nil
	}

	allowed, err := s.repo.ConsumeIfWithinLimit(membership.ID, orgID, resourceKey, amount, limit)
	if err != nil {
		return nil, PersistenceError("Usage.ConsumeFailed", err)
	}

	current := usage.CounterValue(resourceKey)
	if allowed {
		current += amount
	}
	remaining := limit - current
	if remaining < 0 {
		remaining = 0
	}
	return &QuotaDecision{
		Allowed:      allowed,
		ResourceKey:  resourceKey,
		CurrentUsage: current,
		Limit:        limit,
		Remaining:    remaining,
	}, nil
}

// GetUsage returns the usage snapshot for a member's current billing cycle.
func (s *QuotaService) GetUsage(userID, orgID string) (*UsageReport, *Error) {
	membership, plan, bErr := s.activeMembershipWithPlan(userID, orgID)
	if bErr != nil {
		return nil, bErr
	}

	usage, bErr := s.ensureUsage(membership, orgID)
	if bErr != nil {
		return nil, bErr
	}

	report := &UsageReport{
		MembershipID: membership.ID,
		OrgID:        orgID,
		PlanName:     plan.Name,
		CycleStart:   usage.CycleStartDate,
		CycleEnd:     usage.CycleEndDate,
	}
	for _, key := range quotaResources {
		limit := plan.QuotaLimit(key)
		current := usage.CounterValue(key)
		quota := UsageQuota{
			ResourceKey:  key,
			CurrentUsage: current,
			Limit:        limit,
		}
		if limit == models.UnlimitedQuota {
			quota.Unlimited = true
			quota.Remaining = models.UnlimitedQuota
		} else {
			quota.Remaining = limit - current
			if quota.Remaining < 0 {
				quota.Remaining = 0
			}
			quota.Exceeded = current >= limit
		}
		report.Quotas = append(report.Quotas, quota)
	}
	return report, nil
}

// ResetCycle zeroes the per-cycle counters of a membership and opens a new
// cycle window. Serialized against TryConsume via the membership lock.
func (s *QuotaService) ResetCycle(membership *models.Membership, now time.Time) *Error {
	unlock := s.locks.Lock(membership.ID)
	defer unlock()

	cycleEnd := now.AddDate(0, 1, 0)
	if err := s.repo.ResetUsage(membership.ID, now, cycleEnd); err != nil {
		return PersistenceError("Usage.ResetFailed", err)
	}

	membership.LastResetDate = now
	if err := s.repo.SaveMembership(membership); err != nil {
		return PersistenceError("Usage.ResetFailed", err)
	}
	return nil
}

// RolloverDueCycles resets every usage row whose cycle window has lapsed.
// Called periodically by the background scheduler.
func (s *QuotaService) RolloverDueCycles(now time.Time) int {
	due, err := s.repo.ListUsageDueForReset(now, 200)
	if err != nil {
		log.Errorf("usage rollover query failed: %v", err)
		return 0
	}

	reset := 0
	for i := range due {
		membership, err := s.repo.GetMembershipByID(due[i].MembershipID)
		if err != nil {
			log.Errorf("usage rollover: membership %s lookup failed: %v", due[i].MembershipID, err)
			continue
		}
		if membership.Status != models.MembershipStatusActive {
			continue
		}
		if bErr := s.ResetCycle(membership, now); bErr != nil {
			log.Errorf("usage rollover: reset for membership %s failed: %v", membership.ID, bErr)
			continue
		}
		reset++
	}
	if reset > 0 {
		log.Infof("usage rollover: reset %d membership cycle(s)", reset)
	}
	return reset
}

func (s *QuotaService) activeMembershipWithPlan(userID, orgID string) (*models.Membership, *models.Plan, *Error) {
	membership, err := s.repo.GetMembershipByUserOrg(userID, orgID)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil, ErrMembershipNotFound
		}
		return nil, nil, PersistenceError("Membership.LookupFailed", err)
	}
	if membership.Status != models.MembershipStatusActive {
		return nil, nil, NewError("Membership.NotActive", "membership is not active", ErrorTypeForbidden)
	}

	plan, err := s.repo.GetPlanByID(membership.PlanID)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil, ErrPlanNotFound
		}
		return nil, nil, PersistenceError("Membership.PlanLookupFailed", err)
	}
	return membership, plan, nil
}

// ensureUsage returns the usage row for the membership, creating a zeroed
// row aligned to the membership's billing cycle on first touch.
func (s *QuotaService) ensureUsage(membership *models.Membership, orgID string) (*models.MembershipUsage, *Error) {
	usage, err := s.repo.GetUsage(membership.ID, orgID)
	if err == nil {
		return usage, nil
	}
	if !IsNotFound(err) {
		return nil, PersistenceError("Usage.LookupFailed", err)
	}

	fresh := &models.MembershipUsage{
		ID:             uuid.NewString(),
		MembershipID:   membership.ID,
		OrgID:          orgID,
		CycleStartDate: membership.BillingCycleStartDate,
		CycleEndDate:   membership.BillingCycleEndDate,
	}
	if err := s.repo.CreateUsage(fresh); err != nil {
		return nil, PersistenceError("Usage.CreateFailed", err)
	}
	// Re-read: a concurrent creator may have won the upsert.
	usage, err = s.repo.GetUsage(membership.ID, orgID)
	if err != nil {
		return nil, PersistenceError("Usage.LookupFailed", err)
	}
	return usage, nil
}
