package devserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/finnri/finnri/internal/config"
	"github.com/finnri/finnri/internal/middleware"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app *fiber.App
	cfg config.Config
}

// New instantiates the dev server. A nil db falls back to the in-memory user
// repository, a nil cache to the in-memory challenge store.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, log *slog.Logger) *Server {
	var repo Repository
	if db != nil {
		repo = NewPostgresRepository(db)
	} else {
		repo = NewMemoryRepository()
	}

	var challenges ChallengeStore
	if cache != nil {
		challenges = NewRedisChallengeStore(cache)
	} else {
		challenges = NewMemoryChallengeStore()
	}

	svc := NewService(repo, challenges, cfg, log)
	app := NewApp(svc, cache, cfg, log)
	return &Server{app: app, cfg: cfg}
}

// NewApp wires middlewares and routes around an already constructed service.
// Split out so tests can assemble the app with their own stores.
func NewApp(svc *Service, cache *redis.Client, cfg config.Config, log *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	h := NewHandler(svc)

	v1 := app.Group("/v1")
	v1.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals(middleware.RequestIDHeader).(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	auth := v1.Group("/auth")
	auth.Post("/guest", h.Guest)
	auth.Post("/identify", h.Identify)
	auth.Post("/otp/send", middleware.OTPSendRateLimit(cache, cfg.OTPSendPerMinute), h.SendOTP)
	auth.Post("/otp/verify", h.VerifyOTP)
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)

	v1.Put("/user", h.BearerAuth, h.UpdateProfile)

	return app
}

// App exposes the underlying Fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
