package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/motolog/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// 300 requests per minute per IP. Device pushes are exempt: a phone
	// posting every second would otherwise starve the UI.
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/v1/samples" || strings.HasPrefix(c.Path(), "/ws")
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	t := func(h fiber.Handler) fiber.Handler { return timeout.NewWithContext(h, requestTimeout) }

	// Static journey paths are registered before /:id.
	v1.Get("/journeys", t(ListJourneysHandler(deps)))
	v1.Post("/journeys/start", t(StartJourneyHandler(deps)))
	v1.Post("/journeys/stop", t(StopJourneyHandler(deps)))
	v1.Get("/journeys/live", LiveJourneyHandler(deps))
	v1.Get("/journeys/:id", t(GetJourneyHandler(deps)))
	v1.Patch("/journeys/:id", t(UpdateJourneyHandler(deps)))
	v1.Delete("/journeys/:id", t(DeleteJourneyHandler(deps)))
	v1.Get("/journeys/:id/points", t(JourneyPointsHandler(deps)))
	v1.Get("/journeys/:id/bounds", t(JourneyBoundsHandler(deps)))
	v1.Post("/journeys/:id/recompute", t(RecomputeJourneyHandler(deps)))

	v1.Post("/samples", t(PushSamplesHandler(deps)))

	v1.Get("/settings/filter", t(GetFilterSettingsHandler(deps)))
	v1.Put("/settings/filter", t(UpdateFilterSettingsHandler(deps)))

	v1.Get("/transactions", t(ListTransactionsHandler(deps)))
	v1.Post("/transactions", t(CreateTransactionHandler(deps)))
	v1.Get("/transactions/:id", t(GetTransactionHandler(deps)))
	v1.Delete("/transactions/:id", t(DeleteTransactionHandler(deps)))

	v1.Get("/reports/summary", t(SummaryHandler(deps)))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app)

	if deps.NATS != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
	}
}
