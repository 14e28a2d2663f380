package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger logs one line per request, warning on client errors and erroring on server errors
func NewLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		startTime := time.Now()
		chainErr := c.Next()

		msg := "HTTP Request"
		if chainErr != nil {
			msg = chainErr.Error()
		}

		code := c.Response().StatusCode()
		var fiberError *fiber.Error
		if chainErr != nil && errors.As(chainErr, &fiberError) {
			code = fiberError.Code
		}

		ipAddress := c.IP()
		if cloudflareConnectingIP := c.Get("CF-Connecting-IP", ""); cloudflareConnectingIP != "" {
			ipAddress = cloudflareConnectingIP
		}

		event := levelFor(code).
			Int("status", code).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("query", string(c.Request().URI().QueryString())).
			Str("ip", ipAddress).
			Dur("latency", time.Since(startTime)).
			Str("user-agent", c.Get(fiber.HeaderUserAgent))
		event.Msg(msg)

		return chainErr
	}
}

func levelFor(code int) *zerolog.Event {
	switch {
	case code >= fiber.StatusInternalServerError:
		return log.Error()
	case code >= fiber.StatusBadRequest:
		return log.Warn()
	default:
		return log.Info()
	}
}
