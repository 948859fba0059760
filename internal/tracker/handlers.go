package tracker

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type startRequest struct {
	SessionID string `json:"session_id"`
}

type controlResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id,omitempty"`
	RunID     string `json:"run_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

func RegisterRoutes(r fiber.Router, t *Tracker, authMiddleware fiber.Handler) {
	r.Post("/start_tracking", authMiddleware, func(c *fiber.Ctx) error {
		var req startRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}

		run, started, err := t.Start(c.Context(), req.SessionID)
		switch {
		case errors.Is(err, ErrMissingSession):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case errors.Is(err, ErrSensorUnavailable):
			return c.Status(fiber.StatusServiceUnavailable).JSON(controlResponse{
				Status:  "error",
				Message: "could not start camera",
			})
		case err != nil:
			return err
		}

		status := "started"
		if !started {
			status = "already_running"
		}
		return c.JSON(controlResponse{Status: status, SessionID: run.SessionID, RunID: run.ID})
	})

	r.Post("/stop_tracking", authMiddleware, func(c *fiber.Ctx) error {
		run, err := t.Stop(c.Context())
		if err != nil {
			return err
		}
		if run == nil {
			return c.JSON(controlResponse{Status: "idle"})
		}
		return c.JSON(controlResponse{Status: "stopped", SessionID: run.SessionID, RunID: run.ID})
	})

	r.Get("/tracking_status", func(c *fiber.Ctx) error {
		return c.JSON(t.Status())
	})
}
