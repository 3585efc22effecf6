package controllers

import (
	"github.com/gofiber/fiber/v2"
)

// ConsumeUsageRequest attempts to consume quota units for a resource.
type ConsumeUsageRequest struct {
	UserID      string `json:"user_id" validate:"required"`
	OrgID       string `json:"org_id" validate:"required"`
	ResourceKey string `json:"resource_key" validate:"required"`
	Amount      int    `json:"amount" validate:"required,gt=0"`
}

// HandleConsumeUsage runs a quota consumption attempt. A denial is a 200
// with allowed=false, not an error: the caller asked a question and got
// an answer.
func HandleConsumeUsage(c *fiber.Ctx) error {
	var req ConsumeUsageRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}

	decision, bErr := quotaService().TryConsume(req.UserID, req.OrgID, req.ResourceKey, req.Amount)
	if bErr != nil {
		return writeBillingError(c, bErr)
	}
	return c.Status(fiber.StatusOK).JSON(decision)
}

// HandleGetUsage returns the usage snapshot for a member's current cycle.
func HandleGetUsage(c *fiber.Ctx) error {
	report, bErr := quotaService().GetUsage(c.Params("userId"), c.Params("orgId"))
	if bErr != nil {
		return writeBillingError(c, bErr)
	}
	return c.Status(fiber.StatusOK).JSON(report)
}
