package collector

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/klmilton/tfl-bus-prediction/pkg/history"
	"github.com/klmilton/tfl-bus-prediction/pkg/tfl"
	"github.com/klmilton/tfl-bus-prediction/pkg/util"
	"github.com/urfave/cli/v2"
)

func configFromContext(c *cli.Context) (Config, error) {
	if path := c.String("config"); path != "" {
		return LoadConfig(path)
	}

	modes := []string{}
	for _, mode := range c.StringSlice("mode") {
		modes = append(modes, util.SplitList(mode)...)
	}

	config := Config{
		OutputDirectory: c.String("output-directory"),
		Concurrency:     c.Int("concurrency"),
	}
	for _, query := range c.StringSlice("query") {
		config.Watches = append(config.Watches, Watch{
			Query:      query,
			Modes:      modes,
			MaxMatches: c.Int("max-matches"),
		})
	}

	return config, nil
}

func printResults(w io.Writer, results []MatchResult) {
	for _, result := range results {
		switch {
		case result.Failed() && result.StopID == "":
			fmt.Fprintf(w, "%s: %v\n", result.Query, result.Err)
		case result.Failed():
			fmt.Fprintf(w, "%s [%s]: %v\n", result.Name, result.StopID, result.Err)
		default:
			fmt.Fprintf(w, "Saved %d rows to %s\n", result.Rows, result.Path)
		}
	}
}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "collect",
		Usage: "Save the arrivals of every stop matching the watched queries",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "YAML collection config, replaces the query flags",
			},
			&cli.StringSliceFlag{
				Name:  "query",
				Value: cli.NewStringSlice("Green Park Station"),
			},
			&cli.StringSliceFlag{
				Name:  "mode",
				Value: cli.NewStringSlice("bus", "tube"),
			},
			&cli.IntFlag{
				Name:  "max-matches",
				Value: DefaultMaxMatches,
			},
			&cli.StringFlag{
				Name:  "output-directory",
				Value: DefaultOutputDirectory,
			},
			&cli.StringFlag{
				Name:    "database",
				Usage:   "record arrivals into this SQLite history",
				EnvVars: []string{history.PathEnvironmentVariable},
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Value: DefaultConcurrency,
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "repeat the collection on this interval until interrupted",
			},
		},
		Action: func(c *cli.Context) error {
			config, err := configFromContext(c)
			if err != nil {
				return err
			}
			if config.DatabasePath == "" {
				config.DatabasePath = c.String("database")
			}

			client, err := tfl.NewClient(tfl.ClientConfig{})
			if err != nil {
				return err
			}

			var store *history.Store
			if config.DatabasePath != "" {
				store, err = history.Open(config.DatabasePath)
				if err != nil {
					return err
				}
				defer store.Close()
			}

			collector, err := New(client, store, config)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			onRun := func(results []MatchResult) {
				printResults(c.App.Writer, results)
			}

			if interval := c.Duration("interval"); interval > 0 {
				collector.RunEvery(ctx, interval, onRun)
				return nil
			}

			onRun(collector.Run(ctx))
			return nil
		},
	}
}
