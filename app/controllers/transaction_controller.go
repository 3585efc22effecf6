package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/mapforge-io/mapforge/internal/pkg/billing"
)

// ProcessPaymentRequest starts a checkout at one of the supported gateways.
type ProcessPaymentRequest struct {
	Gateway      string `json:"gateway" validate:"required"`
	Amount       string `json:"amount" validate:"required"`
	Currency     string `json:"currency" validate:"omitempty,len=3"`
	Purpose      string `json:"purpose" validate:"required,oneof=membership addon"`
	Description  string `json:"description"`
	UserID       string `json:"user_id"`
	OrgID        string `json:"org_id"`
	PlanID       int    `json:"plan_id"`
	AutoRenew    bool   `json:"auto_renew"`
	MembershipID string `json:"membership_id"`
	AddonKey     string `json:"addon_key"`
	Quantity     int    `json:"quantity"`
}

// CancelPaymentRequest cancels a pending transaction.
type CancelPaymentRequest struct {
	TransactionID string `json:"transaction_id" validate:"required,uuid4"`
	Reason        string `json:"reason" validate:"max=255"`
}

// HandleProcessPayment creates a pending transaction and returns the
// gateway approval link.
func HandleProcessPayment(c *fiber.Ctx) error {
	var req ProcessPaymentRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return writeProblem(c, fiber.StatusBadRequest, "Payment.InvalidAmount", "amount is not a valid decimal")
	}

	result, bErr := billingService().ProcessPayment(c.UserContext(), billing.ProcessPaymentInput{
		Gateway:     req.Gateway,
		Amount:      amount,
		Currency:    req.Currency,
		Purpose:     req.Purpose,
		Description: req.Description,
		Context: billing.TransactionContext{
			UserID:       req.UserID,
			OrgID:        req.OrgID,
			PlanID:       req.PlanID,
			AutoRenew:    req.AutoRenew,
			MembershipID: req.MembershipID,
			AddonKey:     req.AddonKey,
			Quantity:     req.Quantity,
		},
	})
	if bErr != nil {
		return writeBillingError(c, bErr)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// HandleConfirmPayment reconciles a client-reported gateway outcome. The raw
// gateway payload is the request body; it goes through the same verification
// as a webhook.
func HandleConfirmPayment(c *fiber.Ctx) error {
	gateway := c.Query("gateway")
	if gateway == "" {
		return writeProblem(c, fiber.StatusBadRequest, "Payment.MissingGateway", "gateway query parameter is required")
	}

	payload := append([]byte(nil), c.BodyRaw()...)
	result, bErr := billingService().ConfirmPayment(c.UserContext(), gateway, payload, requestHeaders(c))
	if bErr != nil {
		return writeBillingError(c, bErr)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// HandleCancelPayment cancels a pending transaction on user request.
func HandleCancelPayment(c *fiber.Ctx) error {
	var req CancelPaymentRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}

	result, bErr := billingService().CancelPayment(c.UserContext(), billing.CancelPaymentInput{
		TransactionID: req.TransactionID,
		Reason:        req.Reason,
	})
	if bErr != nil {
		return writeBillingError(c, bErr)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// HandleGetTransaction returns a transaction by id.
func HandleGetTransaction(c *fiber.Ctx) error {
	tx, bErr := billingService().GetTransaction(c.Params("id"))
	if bErr != nil {
		return writeBillingError(c, bErr)
	}
	return c.Status(fiber.StatusOK).JSON(tx)
}

// HandleWebhook ingests a raw gateway webhook. The gateway always gets a
// 2xx for duplicates so it stops retrying; genuine processing errors keep
// their status so the gateway redelivers.
func HandleWebhook(c *fiber.Ctx) error {
	gateway := c.Params("gateway")
	payload := append([]byte(nil), c.BodyRaw()...)

	result, bErr := billingService().HandleWebhook(c.UserContext(), gateway, payload, requestHeaders(c))
	if bErr != nil {
		return writeBillingError(c, bErr)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}
