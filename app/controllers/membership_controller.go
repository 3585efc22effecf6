package controllers

import (
	"github.com/gofiber/fiber/v2"
)

// QuoteUpgradeRequest prices a mid-cycle plan change.
type QuoteUpgradeRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	OrgID     string `json:"org_id" validate:"required"`
	NewPlanID int    `json:"new_plan_id" validate:"required,gt=0"`
}

// HandleQuoteUpgrade returns the prorated cost of switching plans today.
func HandleQuoteUpgrade(c *fiber.Ctx) error {
	var req QuoteUpgradeRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}

	quote, bErr := billingService().QuoteUpgrade(req.UserID, req.OrgID, req.NewPlanID)
	if bErr != nil {
		return writeBillingError(c, bErr)
	}
	return c.Status(fiber.StatusOK).JSON(quote)
}
