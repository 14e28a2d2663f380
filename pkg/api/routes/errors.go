package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/klmilton/tfl-bus-prediction/pkg/tfl"
)

func sendError(c *fiber.Ctx, status int, message string) error {
	c.Status(status)
	return c.JSON(fiber.Map{
		"error": message,
	})
}

// sendUpstreamError maps a client error onto a response. TfL 404s stay 404s, every other
// exhausted request is a bad gateway.
func sendUpstreamError(c *fiber.Ctx, err error) error {
	if errors.Is(err, tfl.ErrEmptyStopID) {
		return sendError(c, fiber.StatusBadRequest, err.Error())
	}

	var statusError *tfl.StatusError
	if errors.As(err, &statusError) && statusError.StatusCode == http.StatusNotFound {
		return sendError(c, fiber.StatusNotFound, "TfL does not know this identifier")
	}

	if tfl.IsTransportError(err) {
		return sendError(c, fiber.StatusBadGateway, err.Error())
	}

	return sendError(c, fiber.StatusInternalServerError, err.Error())
}
