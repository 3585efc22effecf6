package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/mapforge-io/mapforge/app/models"
	"github.com/mapforge-io/mapforge/internal/pkg/payment"
)

// SideEffects receives post-commit work: notifications and entitlement
// refreshes. Implementations must be at-least-once safe; the reconciler may
// replay them after a crash between commit and dispatch.
type SideEffects interface {
	Notify(userID, eventKind, referenceID, content string)
	GrantEntitlements(userID string, planID int, referenceID string)
}

// NopSideEffects discards all side effects. Used when no dispatcher is wired.
type NopSideEffects struct{}

func (NopSideEffects) Notify(string, string, string, string) {}
func (NopSideEffects) GrantEntitlements(string, int, string) {}

// Service is the payment reconciler. Client confirmations and gateway
// webhooks both funnel into reconcile, so a race between the two resolves to
// exactly one finalization regardless of arrival order.
type Service struct {
	repo     Repository
	registry *payment.Registry
	effects  SideEffects
	locks    *keyLock
	now      func() time.Time
}

func NewService(repo Repository, registry *payment.Registry, effects SideEffects) *Service {
	if effects == nil {
		effects = NopSideEffects{}
	}
	return &Service{
		repo:     repo,
		registry: registry,
		effects:  effects,
		locks:    newKeyLock(),
		now:      time.Now,
	}
}

// ProcessPayment creates a pending transaction and an approval link at the
// selected gateway. The transaction row exists before the gateway is called,
// so a crash mid-call leaves an auditable pending row, never a paid-but-
// unrecorded state.
func (s *Service) ProcessPayment(ctx context.Context, input ProcessPaymentInput) (*ProcessPaymentResult, *Error) {
	adapter, err := s.registry.Resolve(input.Gateway)
	if err != nil {
		return nil, ValidationError("Payment.UnsupportedGateway", err.Error())
	}
	if bErr := s.validateProcessInput(&input); bErr != nil {
		return nil, bErr
	}

	contextJSON, err := json.Marshal(input.Context)
	if err != nil {
		return nil, ValidationError("Payment.InvalidContext", "payment context is not serializable")
	}

	txID := uuid.NewString()
	tx := &models.Transaction{
		ID:       txID,
		Gateway:  adapter.Gateway(),
		Amount:   input.Amount,
		Currency: input.Currency,
		Purpose:  input.Purpose,
		// Reference starts as the local id; overwritten with the gateway
		// session id once the checkout is created.
		Reference:   txID,
		ContextJSON: string(contextJSON),
		Status:      models.TransactionStatusPending,
	}
	if err := s.repo.CreateTransaction(tx); err != nil {
		return nil, PersistenceError("Payment.CreateFailed", err)
	}

	approval, err := adapter.CreateApprovalLink(ctx, payment.CheckoutRequest{
		TransactionID: txID,
		Amount:        input.Amount,
		Currency:      input.Currency,
		Description:   input.Description,
	})
	if err != nil {
		s.failPendingTransaction(txID, "gateway checkout failed: "+err.Error())
		if errors.Is(err, payment.ErrGatewayUnavailable) {
			return nil, NewError("Payment.GatewayUnavailable", err.Error(), ErrorTypeGatewayUnavailable)
		}
		return nil, NewError("Payment.GatewayRejected", err.Error(), ErrorTypeFailure)
	}

	reference := approval.SessionID
	if reference == "" {
		reference = txID
	}
	if err := s.repo.UpdateTransactionGatewayInfo(txID, reference, approval.ApprovalURL); err != nil {
		return nil, PersistenceError("Payment.UpdateFailed", err)
	}

	log.Infof("payment initiated: tx=%s gateway=%s amount=%s %s", txID, adapter.Gateway(), input.Amount.StringFixed(2), input.Currency)
	return &ProcessPaymentResult{
		TransactionID: txID,
		ApprovalURL:   approval.ApprovalURL,
		SessionID:     reference,
	}, nil
}

// ConfirmPayment reconciles a client-reported payment outcome. The payload is
// verified and normalized by the gateway adapter exactly like a webhook; a
// client can therefore never assert an outcome the gateway did not sign off.
func (s *Service) ConfirmPayment(ctx context.Context, gateway string, payload []byte, headers map[string]string) (*FinalizeResult, *Error) {
	adapter, err := s.registry.Resolve(gateway)
	if err != nil {
		return nil, ValidationError("Payment.UnsupportedGateway", err.Error())
	}

	event, bErr := s.normalizeEvent(ctx, adapter, payload, headers)
	if bErr != nil {
		return nil, bErr
	}
	return s.reconcile(event)
}

// HandleWebhook ingests a raw gateway webhook: store-first with dedup, then
// reconcile. Returns the result the gateway should see; a duplicate delivery
// gets the recorded outcome, not an error.
func (s *Service) HandleWebhook(ctx context.Context, gateway string, payload []byte, headers map[string]string) (*FinalizeResult, *Error) {
	adapter, err := s.registry.Resolve(gateway)
	if err != nil {
		return nil, ValidationError("Payment.UnsupportedGateway", err.Error())
	}

	event, bErr := s.normalizeEvent(ctx, adapter, payload, headers)
	if bErr != nil {
		return nil, bErr
	}

	eventID := event.EventID
	if eventID == "" {
		eventID = payment.FallbackEventID(payload)
	}
	record := &models.WebhookEvent{
		Gateway:         adapter.Gateway(),
		ProviderEventID: eventID,
		EventType:       event.EventType,
		PayloadJSON:     string(payload),
		SignatureValid:  event.SignatureValid,
	}
	created, err := s.repo.CreateWebhookEventIfNotExists(record)
	if err != nil {
		return nil, PersistenceError("Webhook.StoreFailed", err)
	}
	if !created {
		log.Infof("webhook duplicate ignored: gateway=%s event=%s", adapter.Gateway(), eventID)
		return s.recordedOutcome(adapter.Gateway(), event.Reference)
	}

	if !event.SignatureValid {
		s.markWebhook(record.ID, "signature verification failed")
		return nil, NewError("Webhook.InvalidSignature", "webhook signature verification failed", ErrorTypeUnauthorized)
	}

	result, bErr := s.reconcile(event)
	if bErr != nil {
		s.markWebhook(record.ID, bErr.Error())
		return nil, bErr
	}
	s.markWebhook(record.ID, "")
	return result, nil
}

// CancelPayment cancels a pending transaction on user request. The gateway
// side is best effort; the local terminal state is authoritative.
func (s *Service) CancelPayment(ctx context.Context, input CancelPaymentInput) (*CancelPaymentResult, *Error) {
	tx, bErr := s.GetTransaction(input.TransactionID)
	if bErr != nil {
		return nil, bErr
	}

	unlock := s.locks.Lock(tx.ID)
	defer unlock()

	tx, bErr = s.GetTransaction(input.TransactionID)
	if bErr != nil {
		return nil, bErr
	}
	if tx.IsTerminal() {
		if tx.Status == models.TransactionStatusCancelled {
			return &CancelPaymentResult{TransactionID: tx.ID, Status: tx.Status, Gateway: tx.Gateway}, nil
		}
		return nil, ErrStateConflict
	}

	adapter, err := s.registry.Resolve(tx.Gateway)
	if err != nil {
		return nil, ValidationError("Payment.UnsupportedGateway", err.Error())
	}
	if err := adapter.CancelPayment(ctx, payment.CancelRequest{Reference: tx.Reference, Reason: input.Reason}); err != nil {
		// Not fatal: an unapproved checkout expires on its own.
		log.Warnf("gateway cancel failed for tx=%s: %v", tx.ID, err)
	}

	reason := input.Reason
	if reason == "" {
		reason = "cancelled by user"
	}
	applied, err := s.repo.FinalizeTransaction(tx.ID, models.TransactionStatusCancelled, reason, nil)
	if err != nil {
		return nil, PersistenceError("Payment.CancelFailed", err)
	}
	if !applied {
		return nil, ErrStateConflict
	}

	ctxData := s.parseContext(tx)
	if ctxData.UserID != "" {
		s.effects.Notify(ctxData.UserID, models.NotificationPaymentCancelled, tx.ID, "Your payment was cancelled.")
	}
	return &CancelPaymentResult{TransactionID: tx.ID, Status: models.TransactionStatusCancelled, Gateway: tx.Gateway}, nil
}

// GetTransaction returns a transaction by id.
func (s *Service) GetTransaction(id string) (*models.Transaction, *Error) {
	tx, err := s.repo.GetTransactionByID(id)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrTransactionNotFound
		}
		return nil, PersistenceError("Transaction.LookupFailed", err)
	}
	return tx, nil
}

// QuoteUpgrade prices a mid-cycle plan change for an active membership.
// Downgrades are rejected: members ride out the cycle on the bigger plan.
func (s *Service) QuoteUpgrade(userID, orgID string, newPlanID int) (*ProrationResult, *Error) {
	membership, err := s.repo.GetMembershipByUserOrg(userID, orgID)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrMembershipNotFound
		}
		return nil, PersistenceError("Membership.LookupFailed", err)
	}
	if membership.Status != models.MembershipStatusActive {
		return nil, NewError("Membership.NotActive", "membership is not active", ErrorTypeForbidden)
	}

	currentPlan, err := s.repo.GetPlanByID(membership.PlanID)
	if err != nil {
		return nil, ErrPlanNotFound
	}
	newPlan, err := s.repo.GetPlanByID(newPlanID)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrPlanNotFound
		}
		return nil, PersistenceError("Membership.PlanLookupFailed", err)
	}
	if newPlan.ID == currentPlan.ID {
		return nil, ValidationError("Membership.SamePlan", "already on the requested plan")
	}
	if newPlan.PriceMonthly.LessThanOrEqual(currentPlan.PriceMonthly) {
		return nil, ValidationError("Membership.DowngradeNotAllowed", "downgrades take effect at the next billing cycle")
	}

	result := CalculateUpgradeProration(
		currentPlan.PriceMonthly, newPlan.PriceMonthly,
		membership.BillingCycleStartDate, membership.BillingCycleEndDate,
		s.now(),
	)
	return &result, nil
}

// ExpireStalePayments fails pending transactions whose approval link was
// never completed. Gateways expire unapproved checkouts on their own; this
// sweep keeps the local ledger in line. Returns the number expired.
func (s *Service) ExpireStalePayments(now time.Time, maxAge time.Duration) int {
	stale, err := s.repo.ListStalePendingTransactions(now.Add(-maxAge), 200)
	if err != nil {
		log.Errorf("stale payment query failed: %v", err)
		return 0
	}

	expired := 0
	for i := range stale {
		tx := &stale[i]
		unlock := s.locks.Lock(tx.ID)
		applied, err := s.repo.FinalizeTransaction(tx.ID, models.TransactionStatusFailed, "payment window expired", nil)
		unlock()
		if err != nil {
			log.Errorf("could not expire transaction %s: %v", tx.ID, err)
			continue
		}
		if !applied {
			continue
		}
		s.audit(tx.ID, "expired", fmt.Sprintf("pending since %s", tx.CreatedAt.Format(time.RFC3339)))
		if ctxData := s.parseContext(tx); ctxData.UserID != "" {
			s.effects.Notify(ctxData.UserID, models.NotificationPaymentFailed, tx.ID, "Your payment session expired. Please try again.")
		}
		expired++
	}
	if expired > 0 {
		log.Infof("expired %d stale pending payment(s)", expired)
	}
	return expired
}

// normalizeEvent runs the adapter's verification. A gateway outage during
// verification is retryable; anything else is a bad payload.
func (s *Service) normalizeEvent(ctx context.Context, adapter payment.Adapter, payload []byte, headers map[string]string) (*payment.NormalizedPaymentEvent, *Error) {
	event, err := adapter.VerifyAndNormalize(ctx, payload, headers)
	if err != nil {
		if errors.Is(err, payment.ErrGatewayUnavailable) {
			return nil, NewError("Payment.GatewayUnavailable", err.Error(), ErrorTypeGatewayUnavailable)
		}
		return nil, ValidationError("Payment.MalformedPayload", err.Error())
	}
	return event, nil
}

// reconcile is the single finalization path for confirmations and webhooks.
// Only adapter-verified events get past the first check: a fabricated body
// posted to the confirm endpoint dies here, not in the webhook-only path.
func (s *Service) reconcile(event *payment.NormalizedPaymentEvent) (*FinalizeResult, *Error) {
	if !event.SignatureValid {
		return nil, NewError("Payment.UnverifiedEvent", "payment event failed gateway verification", ErrorTypeUnauthorized)
	}
	if event.Reference == "" {
		return nil, ValidationError("Payment.MissingReference", "event carries no transaction reference")
	}

	// Unknown references are rejected outright; finalization never creates
	// transaction rows.
	tx, err := s.repo.GetTransactionByReference(event.Gateway, event.Reference)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrTransactionNotFound
		}
		return nil, PersistenceError("Transaction.LookupFailed", err)
	}

	unlock := s.locks.Lock(tx.ID)
	defer unlock()

	tx, bErr := s.GetTransaction(tx.ID)
	if bErr != nil {
		return nil, bErr
	}

	txEvent, ok := providerStatusToEvent(event.ProviderStatus)
	if !ok {
		// e.g. a "session created" webhook: acknowledged, nothing to do.
		return &FinalizeResult{TransactionID: tx.ID, Status: tx.Status}, nil
	}

	transition, bErr := ApplyEvent(tx.Status, txEvent)
	if bErr != nil {
		if bErr.Type == ErrorTypeStateConflict {
			s.audit(tx.ID, "state_conflict", fmt.Sprintf("event %s contradicts recorded status %s", txEvent, tx.Status))
			// First finalization wins. The late contradicting delivery gets
			// the recorded outcome so the gateway stops redelivering it.
			return s.recordedOutcome(tx.Gateway, tx.Reference)
		}
		return nil, bErr
	}
	if transition.Idempotent {
		return &FinalizeResult{TransactionID: tx.ID, Status: tx.Status, MembershipID: deref(tx.MembershipID), Idempotent: true}, nil
	}

	// A success event must carry the exact recorded amount; an absent amount
	// is treated the same as a wrong one.
	if txEvent == EventConfirmSuccess && !event.Amount.Equal(tx.Amount) {
		s.audit(tx.ID, "amount_mismatch", fmt.Sprintf("event amount %s vs recorded %s", event.Amount.StringFixed(2), tx.Amount.StringFixed(2)))
		return nil, ErrAmountMismatch
	}

	switch txEvent {
	case EventConfirmSuccess:
		return s.finalizeSuccess(tx)
	case EventConfirmFailure:
		return s.finalizeSimple(tx, models.TransactionStatusFailed, "", models.NotificationPaymentFailed, "Your payment failed. No charges were applied.")
	default:
		return s.finalizeSimple(tx, models.TransactionStatusCancelled, "cancelled at gateway", models.NotificationPaymentCancelled, "Your payment was cancelled.")
	}
}

// finalizeSuccess applies the full fulfillment unit: transaction status,
// membership activation or addon creation, and access tool grants commit
// atomically. Notifications go out only after the commit.
func (s *Service) finalizeSuccess(tx *models.Transaction) (*FinalizeResult, *Error) {
	ctxData := s.parseContext(tx)

	result := &FinalizeResult{TransactionID: tx.ID, Status: models.TransactionStatusSuccess}
	err := s.repo.InTx(func(r Repository) error {
		var membershipID *string
		switch tx.Purpose {
		case models.TransactionPurposeMembership:
			m, err := s.activateMembership(r, &ctxData)
			if err != nil {
				return err
			}
			membershipID = &m.ID
			result.MembershipID = m.ID
			result.AccessToolsGranted = true
		case models.TransactionPurposeAddon:
			addon, err := s.createAddon(r, &ctxData)
			if err != nil {
				return err
			}
			membershipID = &addon.MembershipID
			result.MembershipID = addon.MembershipID
			result.AddonID = addon.ID
		default:
			return fmt.Errorf("unknown transaction purpose: %s", tx.Purpose)
		}

		applied, err := r.FinalizeTransaction(tx.ID, models.TransactionStatusSuccess, "", membershipID)
		if err != nil {
			return err
		}
		if !applied {
			return ErrAlreadyFinalized
		}
		return nil
	})
	if err != nil {
		var bErr *Error
		if errors.As(err, &bErr) {
			if bErr == ErrAlreadyFinalized {
				// Another process finalized first; report its outcome.
				return s.recordedOutcome(tx.Gateway, tx.Reference)
			}
			return nil, bErr
		}
		return nil, PersistenceError("Payment.FinalizeFailed", err)
	}

	log.Infof("payment finalized: tx=%s status=success membership=%s", tx.ID, result.MembershipID)
	if ctxData.UserID != "" {
		s.effects.Notify(ctxData.UserID, models.NotificationPaymentSuccess, tx.ID, "Your payment was successful.")
		if tx.Purpose == models.TransactionPurposeMembership {
			s.effects.Notify(ctxData.UserID, models.NotificationMembershipActivated, result.MembershipID, "Your membership is now active.")
			s.effects.GrantEntitlements(ctxData.UserID, ctxData.PlanID, result.MembershipID)
		} else {
			s.effects.Notify(ctxData.UserID, models.NotificationAddonGranted, result.AddonID, "Your addon purchase is now active.")
		}
	}
	return result, nil
}

func (s *Service) finalizeSimple(tx *models.Transaction, toStatus, reason, notifyKind, notifyContent string) (*FinalizeResult, *Error) {
	applied, err := s.repo.FinalizeTransaction(tx.ID, toStatus, reason, nil)
	if err != nil {
		return nil, PersistenceError("Payment.FinalizeFailed", err)
	}
	if !applied {
		return s.recordedOutcome(tx.Gateway, tx.Reference)
	}

	log.Infof("payment finalized: tx=%s status=%s", tx.ID, toStatus)
	ctxData := s.parseContext(tx)
	if ctxData.UserID != "" {
		s.effects.Notify(ctxData.UserID, notifyKind, tx.ID, notifyContent)
	}
	return &FinalizeResult{TransactionID: tx.ID, Status: toStatus}, nil
}

// activateMembership creates or updates the membership a successful payment
// pays for. One membership per (user, org); a renewal extends the cycle, an
// upgrade switches the plan but keeps the cycle dates the proration was
// anchored to.
func (s *Service) activateMembership(r Repository, ctxData *TransactionContext) (*models.Membership, error) {
	plan, err := r.GetPlanByID(ctxData.PlanID)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	now := s.now()
	cycleEnd := now.AddDate(0, plan.DurationMonths, 0)

	existing := true
	membership, err := r.GetMembershipByUserOrg(ctxData.UserID, ctxData.OrgID)
	if err != nil {
		if !IsNotFound(err) {
			return nil, err
		}
		existing = false
		membership = &models.Membership{
			ID:                    uuid.NewString(),
			UserID:                ctxData.UserID,
			OrgID:                 ctxData.OrgID,
			PlanID:                plan.ID,
			Status:                models.MembershipStatusActive,
			StartDate:             now,
			EndDate:               &cycleEnd,
			AutoRenew:             ctxData.AutoRenew,
			BillingCycleStartDate: now,
			BillingCycleEndDate:   cycleEnd,
			LastResetDate:         now,
		}
	} else {
		upgrade := membership.Status == models.MembershipStatusActive && membership.PlanID != plan.ID
		membership.PlanID = plan.ID
		membership.Status = models.MembershipStatusActive
		membership.AutoRenew = ctxData.AutoRenew
		if upgrade {
			// Cycle dates stay put: the prorated charge covered exactly
			// the remainder of the current cycle.
			cycleEnd = membership.BillingCycleEndDate
			membership.EndDate = &cycleEnd
		} else {
			membership.EndDate = &cycleEnd
			membership.BillingCycleStartDate = now
			membership.BillingCycleEndDate = cycleEnd
			membership.LastResetDate = now
		}
	}
	if err := r.SaveMembership(membership); err != nil {
		return nil, err
	}

	usage := &models.MembershipUsage{
		ID:             uuid.NewString(),
		MembershipID:   membership.ID,
		OrgID:          ctxData.OrgID,
		CycleStartDate: membership.BillingCycleStartDate,
		CycleEndDate:   membership.BillingCycleEndDate,
	}
	if err := r.CreateUsage(usage); err != nil {
		return nil, err
	}
	if existing {
		// Renewal opens a fresh window, an upgrade keeps it; either way the
		// counters start over so the paid-for quotas apply immediately.
		if err := r.ResetUsage(membership.ID, membership.BillingCycleStartDate, membership.BillingCycleEndDate); err != nil {
			return nil, err
		}
	}

	if err := r.GrantAccessTools(ctxData.UserID, plan, &cycleEnd); err != nil {
		return nil, err
	}
	return membership, nil
}

func (s *Service) createAddon(r Repository, ctxData *TransactionContext) (*models.MembershipAddon, error) {
	membership, err := r.GetMembershipByID(ctxData.MembershipID)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	if membership.Status != models.MembershipStatusActive {
		return nil, NewError("Membership.NotActive", "addons require an active membership", ErrorTypeForbidden)
	}

	now := s.now()
	quantity := ctxData.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	addon := &models.MembershipAddon{
		ID:             uuid.NewString(),
		MembershipID:   membership.ID,
		OrgID:          membership.OrgID,
		AddonKey:       ctxData.AddonKey,
		Quantity:       quantity,
		EffectiveFrom:  &now,
		EffectiveUntil: &membership.BillingCycleEndDate,
	}
	if err := r.CreateAddon(addon); err != nil {
		return nil, err
	}
	return addon, nil
}

// recordedOutcome re-reads a transaction and reports its terminal status as
// an idempotent result. Used when another actor finalized first.
func (s *Service) recordedOutcome(gateway, reference string) (*FinalizeResult, *Error) {
	tx, err := s.repo.GetTransactionByReference(gateway, reference)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrTransactionNotFound
		}
		return nil, PersistenceError("Transaction.LookupFailed", err)
	}
	return &FinalizeResult{
		TransactionID: tx.ID,
		Status:        tx.Status,
		MembershipID:  deref(tx.MembershipID),
		Idempotent:    true,
	}, nil
}

func (s *Service) validateProcessInput(input *ProcessPaymentInput) *Error {
	if !input.Amount.IsPositive() {
		return ValidationError("Payment.InvalidAmount", "amount must be positive")
	}
	if input.Currency == "" {
		input.Currency = "USD"
	}
	switch input.Purpose {
	case models.TransactionPurposeMembership:
		if input.Context.UserID == "" || input.Context.OrgID == "" || input.Context.PlanID == 0 {
			return ValidationError("Payment.InvalidContext", "membership payments require user, org and plan")
		}
	case models.TransactionPurposeAddon:
		if input.Context.MembershipID == "" || input.Context.AddonKey == "" {
			return ValidationError("Payment.InvalidContext", "addon payments require membership and addon key")
		}
	default:
		return ValidationError("Payment.InvalidPurpose", "purpose must be membership or addon")
	}
	return nil
}

// failPendingTransaction marks a just-created transaction failed after a
// gateway checkout error. Failures here are logged, not surfaced.
func (s *Service) failPendingTransaction(id, reason string) {
	if _, err := s.repo.FinalizeTransaction(id, models.TransactionStatusFailed, reason, nil); err != nil {
		log.Errorf("could not mark transaction %s failed: %v", id, err)
	}
}

func (s *Service) parseContext(tx *models.Transaction) TransactionContext {
	var ctxData TransactionContext
	if tx.ContextJSON != "" {
		if err := json.Unmarshal([]byte(tx.ContextJSON), &ctxData); err != nil {
			log.Warnf("transaction %s carries unparsable context", tx.ID)
		}
	}
	return ctxData
}

func (s *Service) audit(txID, event, detail string) {
	entry := &models.TransactionAudit{TransactionID: txID, Event: event, Detail: detail}
	if err := s.repo.CreateAuditEntry(entry); err != nil {
		log.Errorf("audit write failed for tx=%s: %v", txID, err)
	}
}

func (s *Service) markWebhook(id uint, processingError string) {
	if err := s.repo.MarkWebhookProcessed(id, processingError); err != nil {
		log.Errorf("webhook %d status update failed: %v", id, err)
	}
}

func providerStatusToEvent(providerStatus string) (TransactionEvent, bool) {
	switch providerStatus {
	case payment.ProviderStatusCompleted:
		return EventConfirmSuccess, true
	case payment.ProviderStatusFailed:
		return EventConfirmFailure, true
	case payment.ProviderStatusCancelled:
		return EventCancelRequested, true
	default:
		return "", false
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
