package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/mapforge-io/mapforge/internal/pkg/billing"
	"github.com/mapforge-io/mapforge/internal/pkg/cache"
	"github.com/mapforge-io/mapforge/internal/pkg/database"
	"github.com/mapforge-io/mapforge/internal/pkg/dispatch"
	"github.com/mapforge-io/mapforge/internal/pkg/env"
	"github.com/mapforge-io/mapforge/internal/pkg/payment"
	"github.com/mapforge-io/mapforge/internal/pkg/router"
)

func main() {
	app := NewApplication()

	manager := startBackgroundTasks()
	defer manager.Stop()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	app := fiber.New(fiber.Config{
		ReadTimeout: 30 * time.Second,
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}

// startBackgroundTasks wires the side-effect queue, the hourly usage cycle
// rollover and the stale payment sweeper.
func startBackgroundTasks() *dispatch.Manager {
	repo := billing.NewRepository(database.GetDB())
	quota := billing.NewQuotaService(repo)
	dispatcher := dispatch.NewDispatcher(dispatch.GetManager().GetQueue())
	svc := billing.NewService(repo, payment.NewRegistryFromEnv(), dispatcher)

	manager := dispatch.GetManager()
	manager.Configure(quota.RolloverDueCycles, svc.ExpireStalePayments)
	manager.Start()
	return manager
}
