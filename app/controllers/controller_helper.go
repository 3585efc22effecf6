package controllers

import (
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/mapforge-io/mapforge/internal/pkg/billing"
	"github.com/mapforge-io/mapforge/internal/pkg/database"
	"github.com/mapforge-io/mapforge/internal/pkg/dispatch"
	"github.com/mapforge-io/mapforge/internal/pkg/payment"
)

var (
	validate     = validator.New()
	registryOnce sync.Once
	registry     *payment.Registry
)

// gatewayRegistry returns the process-wide gateway adapter registry.
func gatewayRegistry() *payment.Registry {
	registryOnce.Do(func() {
		registry = payment.NewRegistryFromEnv()
	})
	return registry
}

func billingService() *billing.Service {
	dispatcher := dispatch.NewDispatcher(dispatch.GetManager().GetQueue())
	return billing.NewService(billing.NewRepository(database.GetDB()), gatewayRegistry(), dispatcher)
}

func quotaService() *billing.QuotaService {
	return billing.NewQuotaService(billing.NewRepository(database.GetDB()))
}

// parseAndValidate binds the JSON body into dst and runs struct validation.
func parseAndValidate(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return writeProblem(c, fiber.StatusBadRequest, "Request.MalformedBody", "request body is not valid JSON")
	}
	if err := validate.Struct(dst); err != nil {
		return writeProblem(c, fiber.StatusBadRequest, "Request.ValidationFailed", err.Error())
	}
	return nil
}

// writeBillingError maps an engine error onto the HTTP problem shape.
func writeBillingError(c *fiber.Ctx, err *billing.Error) error {
	return writeProblem(c, statusForErrorType(err.Type), err.Code, err.Message)
}

func writeProblem(c *fiber.Ctx, status int, title, detail string) error {
	return c.Status(status).JSON(fiber.Map{
		"title":  title,
		"status": status,
		"detail": detail,
	})
}

func statusForErrorType(t billing.ErrorType) int {
	switch t {
	case billing.ErrorTypeValidation:
		return fiber.StatusBadRequest
	case billing.ErrorTypeNotFound:
		return fiber.StatusNotFound
	case billing.ErrorTypeUnauthorized:
		return fiber.StatusUnauthorized
	case billing.ErrorTypeForbidden:
		return fiber.StatusForbidden
	case billing.ErrorTypeConflict, billing.ErrorTypeStateConflict, billing.ErrorTypeAmountMismatch:
		return fiber.StatusConflict
	case billing.ErrorTypeGatewayUnavailable:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// requestHeaders flattens the request headers for the gateway adapters.
func requestHeaders(c *fiber.Ctx) map[string]string {
	headers := make(map[string]string)
	for key, values := range c.GetReqHeaders() {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}
	return headers
}
