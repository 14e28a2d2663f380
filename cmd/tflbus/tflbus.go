package main

import (
	"os"
	"time"

	"github.com/klmilton/tfl-bus-prediction/pkg/api"
	"github.com/klmilton/tfl-bus-prediction/pkg/collector"
	"github.com/klmilton/tfl-bus-prediction/pkg/linestatus"
	"github.com/klmilton/tfl-bus-prediction/pkg/predictor"
	"github.com/klmilton/tfl-bus-prediction/pkg/stops"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	if os.Getenv("TFLBUS_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if os.Getenv("TFLBUS_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	commands := stops.RegisterCLI()
	commands = append(commands,
		linestatus.RegisterCLI(),
		collector.RegisterCLI(),
		predictor.RegisterCLI(),
		api.RegisterCLI(),
	)

	app := &cli.App{
		Name:        "tflbus",
		Description: "Search TfL stop points, collect bus arrivals and train a time to station model",
		Commands:    commands,
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
