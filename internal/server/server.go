package server

import (
	"notes-rag-be/internal/bootstrap"
	"notes-rag-be/internal/config"
	"notes-rag-be/internal/pkg/logger"
	"notes-rag-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const module = "Server"

// maxUploadBytes bounds request bodies; scanned note pages are the largest.
const maxUploadBytes = 10 * 1024 * 1024

type Server struct {
	app    *fiber.App
	cfg    *config.Config
	logger logger.ILogger
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		AppName:   "notes-rag-be",
		BodyLimit: maxUploadBytes,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
	}))
	// One server span per request; retrieval and generation nest under it.
	app.Use(otelfiber.Middleware())
	app.Use(serverutils.ErrorHandlerMiddleware())

	app.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(serverutils.SuccessResponse("ok", nil))
	})

	api := app.Group("/api")
	container.NoteController.RegisterRoutes(api)
	container.SubjectController.RegisterRoutes(api)
	container.ChatbotController.RegisterRoutes(api)
	container.IndexController.RegisterRoutes(api)
	container.LiveHandler.RegisterRoutes(api)

	return &Server{
		app:    app,
		cfg:    cfg,
		logger: container.Logger,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	s.logger.Info(module, "Server is running", map[string]interface{}{"port": s.cfg.App.Port})
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
