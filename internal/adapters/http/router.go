package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/bluebikes/internal/pkg/metrics"
)

// RouteOptions tunes SetupRoutes. Zero values take the defaults.
type RouteOptions struct {
	RequestTimeout time.Duration // default 15s
	RateLimit      int           // requests per minute per IP, default 120; <0 disables
	OpenAPIPath    string
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies, opts RouteOptions) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = 120
	}

	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	if opts.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        opts.RateLimit,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
			},
		}))
	}

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// no timeout on probes
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	withTimeout := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, opts.RequestTimeout)
	}

	v1 := app.Group("/v1")
	v1.Get("/summary", withTimeout(SummaryHandler(deps)))
	v1.Get("/report/weekdays", withTimeout(WeekdaysHandler(deps)))
	v1.Get("/distributions/:metric", withTimeout(DistributionHandler(deps)))
	v1.Get("/trips", withTimeout(TripsHandler(deps)))
	v1.Get("/stations", withTimeout(ListStationsHandler(deps)))
	v1.Get("/stations/:id", withTimeout(GetStationHandler(deps)))
	// reload reads every input again; it gets no request timeout
	v1.Post("/reload", ReloadHandler(deps))

	app.Post("/graphql", withTimeout(GraphQLHandler(deps)))

	SetupDocs(app, opts.OpenAPIPath)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
