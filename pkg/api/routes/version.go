package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/klmilton/tfl-bus-prediction/pkg/tfl"
)

const APIVersionNumber = "v0.1"

func APIVersion(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"version":  APIVersionNumber,
		"upstream": tfl.DefaultBaseURL,
	})
}
