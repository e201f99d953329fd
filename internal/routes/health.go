package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterHealthRoutes adds the liveness endpoint and the Prometheus scrape
// endpoint.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/healthz", func(c *fiber.Ctx) error {
		deps := fiber.Map{}
		healthy := true

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if d.DB != nil {
			deps["postgres"] = "ok"
			if err := d.DB.Ping(ctx); err != nil {
				deps["postgres"] = err.Error()
				healthy = false
			}
		}
		if d.Cache != nil {
			deps["redis"] = "ok"
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				deps["redis"] = err.Error()
				healthy = false
			}
		}
		if d.NATS != nil {
			deps["nats"] = d.NATS.Status().String()
			if !d.NATS.IsConnected() {
				healthy = false
			}
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    deps,
			"ledger":    d.Cfg.LedgerBackend,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
