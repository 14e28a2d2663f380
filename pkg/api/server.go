package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/klmilton/tfl-bus-prediction/pkg/api/routes"
	"github.com/klmilton/tfl-bus-prediction/pkg/linestatus"
	"github.com/klmilton/tfl-bus-prediction/pkg/tfl"
)

// NewApp wires the read only routes onto a fiber app
func NewApp(client *tfl.Client, board *linestatus.Board) *fiber.App {
	webApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	webApp.Use(NewLogger())

	group := webApp.Group("/core")

	group.Get("version", routes.APIVersion)

	routes.StopsRouter(group.Group("/stops"), client)
	routes.LinesRouter(group.Group("/lines"), board)

	return webApp
}

func SetupServer(listen string, client *tfl.Client, board *linestatus.Board) error {
	return NewApp(client, board).Listen(listen)
}
