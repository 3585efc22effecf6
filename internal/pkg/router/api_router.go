package router

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/mapforge-io/mapforge/app/controllers"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max: 120,
		// Webhooks must never be throttled away; the gateways retry with
		// backoff and give up eventually.
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), webhookPrefix)
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "mapforge payment api",
		})
	})

	v1 := api.Group("/v1")

	transaction := v1.Group("/transaction")
	transaction.Post("/process-payment", controllers.HandleProcessPayment)
	transaction.Post("/confirm-payment-with-context", controllers.HandleConfirmPayment)
	transaction.Post("/cancel-payment", controllers.HandleCancelPayment)
	transaction.Get("/:id", controllers.HandleGetTransaction)

	v1.Post("/webhook/:gateway", controllers.HandleWebhook)

	usage := v1.Group("/usage")
	usage.Post("/consume", controllers.HandleConsumeUsage)
	usage.Get("/:userId/:orgId", controllers.HandleGetUsage)

	membership := v1.Group("/membership")
	membership.Post("/quote-upgrade", controllers.HandleQuoteUpgrade)
}

const webhookPrefix = "/api/v1/webhook/"

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
