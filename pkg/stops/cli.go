package stops

import (
	"github.com/klmilton/tfl-bus-prediction/pkg/tfl"
	"github.com/klmilton/tfl-bus-prediction/pkg/util"
	"github.com/urfave/cli/v2"
)

func modesFromContext(c *cli.Context) []string {
	modes := []string{}
	for _, mode := range c.StringSlice("mode") {
		modes = append(modes, util.SplitList(mode)...)
	}
	return modes
}

func RegisterCLI() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "search",
			Usage: "Search stop points by name",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "query",
					Required: true,
				},
				&cli.StringSliceFlag{
					Name:  "mode",
					Usage: "restrict to modes, e.g. bus,tube",
				},
				&cli.IntFlag{
					Name:  "limit",
					Value: tfl.DefaultMaxResults,
				},
			},
			Action: func(c *cli.Context) error {
				client, err := tfl.NewClient(tfl.ClientConfig{})
				if err != nil {
					return err
				}

				_, err = Search(c.Context, c.App.Writer, client, tfl.Query{
					Text:       c.String("query"),
					Modes:      modesFromContext(c),
					MaxResults: c.Int("limit"),
				})
				return err
			},
		},
		{
			Name:      "stop",
			Usage:     "Show a stop point and its child stops",
			ArgsUsage: "<stop point id>",
			Action: func(c *cli.Context) error {
				client, err := tfl.NewClient(tfl.ClientConfig{})
				if err != nil {
					return err
				}

				return Inspect(c.Context, c.App.Writer, client, c.Args().First())
			},
		},
		{
			Name:  "arrivals",
			Usage: "Show the next arrivals at a stop or hub",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "query",
					Usage: "search text, the first match is used",
				},
				&cli.StringFlag{
					Name:  "stop",
					Usage: "stop point or hub id",
				},
				&cli.StringSliceFlag{
					Name: "mode",
				},
				&cli.StringFlag{
					Name:  "filter",
					Usage: `expression over arrival fields, e.g. 'lineName == "73" && timeToStation < 600'`,
				},
				&cli.IntFlag{
					Name:  "limit",
					Value: DefaultArrivalLimit,
				},
			},
			Action: func(c *cli.Context) error {
				client, err := tfl.NewClient(tfl.ClientConfig{})
				if err != nil {
					return err
				}

				filter, err := tfl.CompileArrivalFilter(c.String("filter"))
				if err != nil {
					return err
				}

				_, err = Arrivals(c.Context, c.App.Writer, client, ArrivalsOptions{
					Query:  c.String("query"),
					StopID: c.String("stop"),
					Modes:  modesFromContext(c),
					Filter: filter,
					Limit:  c.Int("limit"),
				})
				return err
			},
		},
	}
}
