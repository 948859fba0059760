package session

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Post("/start_session", func(c *fiber.Ctx) error {
		session, err := svc.Start(c.Context())
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(StartResponse{
			SessionID: session.ID,
			StartTime: session.StartTime,
			Status:    StatusStarted,
		})
	})

	r.Post("/eye_activity", func(c *fiber.Ctx) error {
		var req LogRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		entry, err := svc.LogActivity(c.Context(), req)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(LogResponse{Status: StatusLogged, Timestamp: entry.Timestamp})
	})

	r.Post("/end_session", func(c *fiber.Ctx) error {
		var req EndRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		result, err := svc.End(c.Context(), req.SessionID)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(result)
	})

	r.Get("/recommend_interval/:sessionID", func(c *fiber.Ctx) error {
		rec, err := svc.Recommend(c.Context(), c.Params("sessionID"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(rec)
	})

	r.Get("/stats", func(c *fiber.Ctx) error {
		stats, err := svc.Stats(c.Context())
		if err != nil {
			return err
		}
		return c.JSON(stats)
	})
}

// httpError maps domain errors to statuses. Anything else is returned as is
// and surfaces as a 500 from the app's error handler.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyEnded):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
