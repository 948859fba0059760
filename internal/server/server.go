package server

import (
	"context"
	"errors"
	"strings"

	"github.com/braydenmsue/cacheroyale-pomodoro/internal/auth"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/capture"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/config"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/db"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/logger"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/metrics"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/session"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/stream"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/tracker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const serviceName = "focus-pomodoro-api"

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       db.Querier
	Redis    *redis.Client
	Log      *logrus.Logger
	Registry *prometheus.Registry
	Stream   *stream.Hub
	Sessions *session.Service
	Tracker  *tracker.Tracker
}

// NewServer wires the app. A nil db leaves the session routes failing with
// 500s and keeps tracked samples out of the ledger.
func NewServer(cfg config.Config, database db.Querier, redisClient *redis.Client, log *logrus.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}

	app := fiber.New(fiber.Config{ErrorHandler: errorHandler(log)})
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{Output: log.Out}))
	app.Use(cors.New(cors.Config{AllowOrigins: corsOrigins(cfg.CORSOrigins)}))

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	hub := stream.NewHub(redisClient, log.WithField("component", "stream"))
	sessions := session.NewService(database, collector)

	opts := tracker.Options{
		Opener: capture.ReplayOpener{
			Path:      cfg.CaptureSource,
			FrameRate: cfg.CaptureFrameRate,
			Loop:      cfg.CaptureLoop,
		},
		Detector:    capture.MeshDetector{},
		Publisher:   hub,
		Interval:    cfg.SampleInterval,
		ReadTimeout: cfg.CaptureReadTimeout,
		Metrics:     collector,
		Log:         log.WithField("component", "tracker"),
	}
	if cfg.TrackingLogSamples && database != nil {
		opts.Ledger = sessions
	}

	s := &Server{
		App:      app,
		Cfg:      cfg,
		DB:       database,
		Redis:    redisClient,
		Log:      log,
		Registry: registry,
		Stream:   hub,
		Sessions: sessions,
		Tracker:  tracker.New(opts),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	api := s.App.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "service": serviceName})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	session.RegisterRoutes(api, s.Sessions)
	tracker.RegisterRoutes(api, s.Tracker, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
	auth.RegisterRoutes(s.App.Group("/auth"), s.Cfg.JWTSecret)

	s.App.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(s.Registry)))
}

// Close stops the live tracking run and the telemetry hub.
func (s *Server) Close(ctx context.Context) error {
	err := s.Tracker.Close(ctx)
	s.Stream.Close()
	return err
}

func errorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.WithError(err).WithFields(logrus.Fields{
				"method": c.Method(),
				"path":   c.Path(),
				"status": code,
			}).Error("request failed")
		}
		return c.Status(code).JSON(fiber.Map{"error": message})
	}
}

func corsOrigins(origins string) string {
	origins = strings.TrimSpace(origins)
	if origins == "" {
		return "*"
	}
	return origins
}
