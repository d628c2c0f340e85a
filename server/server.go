// Package server wires handlers and middleware into a fiber app.
package server

import (
	"strings"
	"time"

	"mailquill/config"
	"mailquill/handlers"
	"mailquill/handlers/api"
	"mailquill/handlers/web"
	"mailquill/llm"
	"mailquill/middleware"
	"mailquill/workflow"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
)

// Deps are the long-lived services the routes use.
type Deps struct {
	Config    *config.Config
	Completer llm.Completer
	Registry  *workflow.Registry
	Generator *workflow.Generator
	// Secret signs client identity cookies.
	Secret []byte
	// RequestLog enables the access log middleware.
	RequestLog bool
}

// New builds the application.
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		Views:        web.NewEngine(),
		ViewsLayout:  "layouts/main",
		ErrorHandler: handlers.ErrorHandler,
	})

	// Add global middleware
	app.Use(recover.New())
	if d.RequestLog {
		app.Use(logger.New())
	}
	app.Use(compress.New(compress.Config{
		// Event streams must not be buffered by the compressor
		Next: func(c *fiber.Ctx) bool { return c.Path() == "/api/events" },
	}))
	app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		ReferrerPolicy:        "same-origin",
		ContentSecurityPolicy: "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; connect-src 'self' ws: wss:;",
	}))

	app.Use(middleware.LocaleMiddleware())

	identity := middleware.DefaultIdentityConfig(d.Secret)
	identity.Secure = d.Config.Security.CookieSecure
	app.Use(middleware.ClientIdentity(identity))

	csrf := middleware.DefaultCSRFConfig()
	csrf.Secure = d.Config.Security.CookieSecure
	csrf.Skipper = func(c *fiber.Ctx) bool {
		// The proxy is a plain JSON endpoint guarded by the rate limiter
		return c.Path() == "/api/groq" || strings.HasPrefix(c.Path(), "/ws")
	}
	app.Use(middleware.CSRFProtection(csrf))

	limit := middleware.RateLimiter(d.Config.Security.RateLimit, d.Config.Security.RateWindow())

	proxyHandler := api.NewProxyHandler(d.Completer)
	workflowHandler := api.NewWorkflowHandler(d.Registry, d.Generator)
	eventsHandler := api.NewEventsHandler(d.Registry, d.Generator)
	i18nHandler := &api.I18nHandler{}
	pageHandler := web.NewPageHandler(d.Registry, d.Generator)

	// Pages
	app.Get("/", pageHandler.ShowCompose)
	app.Get("/templates", pageHandler.ShowTemplates)
	app.Get("/history", pageHandler.ShowHistory)

	// Form posts
	app.Post("/compose/generate", limit, pageHandler.HandleGenerate)
	app.Post("/compose/subject", limit, pageHandler.HandleSubject)
	app.Post("/compose/template/clear", pageHandler.HandleClearTemplate)
	app.Post("/compose/variation/:index", pageHandler.HandleSelectVariation)
	app.Post("/compose/thread", pageHandler.HandleThreadUpload)
	app.Post("/templates/:id", pageHandler.HandleSelectTemplate)
	app.Post("/history/clear", pageHandler.HandleClear)
	app.Post("/history/:id/restore", pageHandler.HandleRestore)
	app.Post("/history/:id/delete", pageHandler.HandleDelete)
	app.Post("/preferences/dark-mode", pageHandler.HandleToggleDarkMode)

	// API routes
	apiRoutes := app.Group("/api")
	{
		apiRoutes.Post("/groq", limit, proxyHandler.HandleGenerate)

		apiRoutes.Get("/state", workflowHandler.GetState)
		apiRoutes.Post("/actions", workflowHandler.HandleAction)
		apiRoutes.Post("/generate", limit, workflowHandler.HandleGenerate)
		apiRoutes.Post("/subject", limit, workflowHandler.HandleSubject)
		apiRoutes.Get("/templates", workflowHandler.GetTemplates)

		apiRoutes.Get("/history", workflowHandler.GetHistory)
		apiRoutes.Delete("/history", workflowHandler.ClearHistory)
		apiRoutes.Delete("/history/:id", workflowHandler.DeleteHistory)
		apiRoutes.Post("/history/:id/restore", workflowHandler.RestoreHistory)

		apiRoutes.Get("/preferences", workflowHandler.GetPreferences)
		apiRoutes.Put("/preferences", workflowHandler.UpdatePreferences)

		apiRoutes.Post("/thread", workflowHandler.UploadThread)
		apiRoutes.Get("/copy", workflowHandler.GetCopyText)
		apiRoutes.Get("/events", eventsHandler.HandleSSE)

		apiRoutes.Get("/i18n/:lang", i18nHandler.GetTranslations)
	}

	app.Use("/ws", eventsHandler.Upgrade)
	app.Get("/ws", websocket.New(eventsHandler.HandleWebSocket))

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"time":    time.Now().Format(time.RFC3339),
			"clients": d.Registry.Active(),
		})
	})

	// 404 Handler for undefined routes
	app.Use(handlers.NotFound)

	return app
}
