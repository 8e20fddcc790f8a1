package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codearena/arena-go-api/internal/config"
	"github.com/codearena/arena-go-api/internal/handler"
	"github.com/codearena/arena-go-api/internal/middleware"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	JudgeHandler   *handler.JudgeHandler
	ProblemHandler *handler.ProblemHandler
	JWTMiddleware  fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.ProblemHandler != nil {
		problems := api.Group("/problems", jwtMiddleware)
		deps.ProblemHandler.Register(problems)
	}

	if deps.JudgeHandler != nil {
		judge := api.Group("/judge", jwtMiddleware)
		deps.JudgeHandler.Register(judge, middleware.RateLimit("judge", 30, time.Minute))
	}
}
