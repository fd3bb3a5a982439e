package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"service-queue/internal/config"
	"service-queue/internal/http/handler"
	"service-queue/internal/http/middleware"
	"service-queue/internal/queue"
	"service-queue/internal/store"
)

type Deps struct {
	Queue       *queue.Service
	Operators   store.OperatorStore
	Tokens      *config.TokenIssuer
	Logger      *zap.Logger
	CORSOrigins string
}

// New builds the Fiber app with every route of the queue API.
func New(deps Deps) *fiber.App {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := deps.CORSOrigins
	if origins == "" {
		origins = "*"
	}

	app := fiber.New(fiber.Config{
		Prefork:               false,
		CaseSensitive:         true,
		StrictRouting:         true,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE",
	}))
	app.Use(middleware.RequestLogger(logger))

	h := handler.New(deps.Queue, deps.Operators, deps.Tokens, logger)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Service queue API jalan",
		})
	})

	v1 := app.Group("/v1")
	v1.Post("/login", h.Login)

	// Display (public)
	v1.Get("/current-queue", h.CurrentQueue)
	v1.Get("/entry", h.ListEntries)
	v1.Get("/entry/:entryKey", h.GetEntry)

	// Operator (wajib login)
	auth := middleware.JWTAuth(deps.Tokens)
	v1.Post("/logout", auth, h.Logout)
	v1.Post("/entry", auth, middleware.PermissionAuth("SQM_ENTRY", "C"), h.CreateEntry)
	v1.Put("/change-status/:entryKey/:status", auth, middleware.PermissionAuth("SQM_ENTRY", "U"), h.ChangeStatus)

	return app
}
