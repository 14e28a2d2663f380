package api

import (
	"errors"

	"github.com/klmilton/tfl-bus-prediction/pkg/linestatus"
	"github.com/klmilton/tfl-bus-prediction/pkg/redis_client"
	"github.com/klmilton/tfl-bus-prediction/pkg/tfl"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the read only web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
				},
				Action: func(c *cli.Context) error {
					client, err := tfl.NewClient(tfl.ClientConfig{})
					if err != nil {
						return err
					}

					if err := redis_client.Connect(); err != nil && !errors.Is(err, redis_client.ErrNotConfigured) {
						log.Warn().Err(err).Msg("Redis unavailable, line status will not be cached")
					}

					log.Info().Str("listen", c.String("listen")).Msg("Starting web API")

					return SetupServer(c.String("listen"), client, linestatus.NewBoard(client, redis_client.Client))
				},
			},
		},
	}
}
