package predictor

import (
	"github.com/klmilton/tfl-bus-prediction/pkg/history"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "train",
		Usage: "Train the time to station regressor on the recorded arrival history",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database",
				Usage:   "SQLite arrival history to train on",
				EnvVars: []string{history.PathEnvironmentVariable},
				Value:   history.DefaultPath,
			},
			&cli.IntFlag{
				Name:  "epochs",
				Value: DefaultEpochs,
			},
			&cli.Int64Flag{
				Name:  "seed",
				Usage: "seed for the train/test split and the initial weights",
				Value: DefaultSeed,
			},
			&cli.Float64Flag{
				Name:  "learning-rate",
				Value: DefaultLearningRate,
			},
		},
		Action: func(c *cli.Context) error {
			store, err := history.Open(history.ResolvePath(c.String("database")))
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.Records(c.Context)
			if err != nil {
				return err
			}

			_, report, err := Train(records, Options{
				Epochs:       c.Int("epochs"),
				Seed:         c.Int64("seed"),
				LearningRate: c.Float64("learning-rate"),
			})
			if err != nil {
				return err
			}

			log.Info().
				Int("records", report.Records).
				Int("skipped", report.Skipped).
				Float64("trainingLoss", report.FinalTrainingLoss()).
				Float64("testLoss", report.TestLoss).
				Str("Length", report.TrainingPeriod.String()).
				Msg("Training complete")

			return nil
		},
	}
}
