package backend

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/countrycache/countrycache/backend/handlers"
	"github.com/countrycache/countrycache/backend/middleware"
	"github.com/countrycache/countrycache/backend/utils"
	"github.com/countrycache/countrycache/countrycache"
	"github.com/countrycache/countrycache/countrycache/config"
)

// NewApp builds the fiber app with the global middleware stack and every route registered.
func NewApp(webApp *handlers.WebApp, cfg countrycache.WebConfig) *fiber.App {
	fcfg := fiber.Config{
		AppName:               "CountryCache API",
		ServerHeader:          "CountryCache",
		ErrorHandler:          middleware.CustomErrorHandler,
		UnescapePath:          true,
		DisableStartupMessage: true,
	}
	if cfg.ProxyHeader != "" && len(cfg.TrustedProxies) > 0 {
		fcfg.ProxyHeader = cfg.ProxyHeader
		fcfg.EnableTrustedProxyCheck = true
		fcfg.TrustedProxies = cfg.TrustedProxies
	}
	app := fiber.New(fcfg)

	app.Use(recover.New())
	app.Use(middleware.SecurityHeaders())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))
	app.Use(middleware.LoggingMiddleware())

	SetupRoutes(app, webApp, cfg)
	return app
}

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, webApp *handlers.WebApp, cfg countrycache.WebConfig) {
	app.Get("/health", handlers.HealthCheck(webApp))
	app.Get("/status", handlers.Status(webApp))

	// literal segments go first so "image" and "refresh" are never read as a country name
	countries := app.Group("/countries")
	countries.Post("/refresh",
		middleware.RateLimit(cfg.RefreshRateLimit, config.RefreshRateWindow),
		handlers.RefreshCountries(webApp))
	countries.Get("/image", handlers.SummaryImage(webApp))
	countries.Get("/", handlers.ListCountries(webApp))
	countries.Get("/:name", handlers.GetCountry(webApp))
	countries.Delete("/:name", handlers.DeleteCountry(webApp))

	app.Use(func(c *fiber.Ctx) error {
		return utils.SendNotFound(c, "Endpoint not found", nil)
	})
}
