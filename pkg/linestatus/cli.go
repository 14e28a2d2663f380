package linestatus

import (
	"errors"
	"fmt"

	"github.com/klmilton/tfl-bus-prediction/pkg/redis_client"
	"github.com/klmilton/tfl-bus-prediction/pkg/tfl"
	"github.com/klmilton/tfl-bus-prediction/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the current line status for one or more modes",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "mode",
				Usage: "modes to report on (tube, dlr, overground, elizabeth-line, tram)",
				Value: cli.NewStringSlice("tube"),
			},
			&cli.BoolFlag{
				Name:  "detail",
				Usage: "ask TfL for the detailed status",
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

			modes := []string{}
			for _, mode := range c.StringSlice("mode") {
				modes = append(modes, util.SplitList(mode)...)
			}

			board := NewBoard(client, redis_client.Client)
			lines, err := board.Statuses(c.Context, modes, c.Bool("detail"))
			if err != nil {
				return err
			}

			for _, line := range lines {
				fmt.Fprintf(c.App.Writer, "- %s: %s\n", line.Name, line.StatusSummary())
			}

			return nil
		},
	}
}
