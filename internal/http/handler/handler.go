package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"service-queue/internal/config"
	"service-queue/internal/queue"
	"service-queue/internal/store"
)

type Handler struct {
	queue     *queue.Service
	operators store.OperatorStore
	tokens    *config.TokenIssuer
	logger    *zap.Logger
}

func New(svc *queue.Service, operators store.OperatorStore, tokens *config.TokenIssuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{queue: svc, operators: operators, tokens: tokens, logger: logger}
}

// statusFor maps queue errors to HTTP codes; anything unknown is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, queue.ErrValidation), errors.Is(err, queue.ErrInvalidStatus):
		return fiber.StatusBadRequest
	case errors.Is(err, queue.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, queue.ErrAlreadyFinalized), errors.Is(err, queue.ErrInvalidTransition):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

func (h *Handler) fail(c *fiber.Ctx, err error, fallback string) error {
	status := statusFor(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		h.logger.Error(fallback, zap.String("path", c.Path()), zap.Error(err))
		message = fallback
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}
