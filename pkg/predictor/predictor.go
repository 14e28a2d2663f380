package predictor

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/klmilton/tfl-bus-prediction/pkg/history"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultEpochs       = 100
	DefaultLearningRate = 0.001
	DefaultTestFraction = 0.2
	DefaultSeed         = 42
	DefaultLogEvery     = 10

	// minimumSamples keeps at least one record on each side of the split
	minimumSamples = 2
)

var hiddenLayers = []int{64, 32}

var ErrNotEnoughRecords = errors.New("not enough usable records to train on")

type Options struct {
	Epochs       int
	LearningRate float64
	TestFraction float64
	Seed         int64
	LogEvery     int
}

func (o Options) withDefaults() Options {
	if o.Epochs <= 0 {
		o.Epochs = DefaultEpochs
	}
	if o.LearningRate <= 0 {
		o.LearningRate = DefaultLearningRate
	}
	if o.TestFraction <= 0 || o.TestFraction >= 1 {
		o.TestFraction = DefaultTestFraction
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.LogEvery <= 0 {
		o.LogEvery = DefaultLogEvery
	}
	return o
}

type Report struct {
	Records        int
	Skipped        int
	TrainSamples   int
	TestSamples    int
	EpochLosses    []float64
	TestLoss       float64
	TrainingPeriod time.Duration
}

func (r Report) FinalTrainingLoss() float64 {
	if len(r.EpochLosses) == 0 {
		return math.NaN()
	}
	return r.EpochLosses[len(r.EpochLosses)-1]
}

// Model predicts the time to station in seconds of a route at a stop at a given time
type Model struct {
	routes  *LabelEncoder
	stops   *LabelEncoder
	scaler  *StandardScaler
	network *network
}

type sample struct {
	route         string
	stop          string
	hour          float64
	dayOfWeek     float64
	timeToStation float64
}

// Train fits a regressor on route, stop, hour of day and day of week. Records without a time to
// station or with an unreadable timestamp are skipped.
func Train(records []history.Record, options Options) (*Model, Report, error) {
	options = options.withDefaults()
	started := time.Now()

	report := Report{Records: len(records)}

	samples := []sample{}
	for _, record := range records {
		if record.TimeToStation == nil {
			report.Skipped++
			continue
		}

		observedAt, err := record.ObservedAt()
		if err != nil {
			report.Skipped++
			continue
		}

		hour, dayOfWeek := timeFeatures(observedAt)
		samples = append(samples, sample{
			route:         record.Route,
			stop:          record.StopPointID,
			hour:          hour,
			dayOfWeek:     dayOfWeek,
			timeToStation: float64(*record.TimeToStation),
		})
	}

	if len(samples) < minimumSamples {
		return nil, report, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughRecords, len(samples), minimumSamples)
	}

	routes := []string{}
	stops := []string{}
	for _, s := range samples {
		routes = append(routes, s.route)
		stops = append(stops, s.stop)
	}

	model := &Model{
		routes: NewLabelEncoder(routes),
		stops:  NewLabelEncoder(stops),
	}

	random := rand.New(rand.NewSource(options.Seed))
	order := random.Perm(len(samples))

	testCount := int(math.Ceil(float64(len(samples)) * options.TestFraction))
	if testCount >= len(samples) {
		testCount = len(samples) - 1
	}
	testIndexes, trainIndexes := order[:testCount], order[testCount:]

	report.TrainSamples = len(trainIndexes)
	report.TestSamples = len(testIndexes)

	trainFeatures, trainTargets := model.matrices(samples, trainIndexes)
	testFeatures, testTargets := model.matrices(samples, testIndexes)

	model.scaler = FitStandardScaler(trainFeatures)
	trainFeatures = model.scaler.Transform(trainFeatures)
	testFeatures = model.scaler.Transform(testFeatures)

	sizes := append(append([]int{featureCount}, hiddenLayers...), 1)
	model.network = newNetwork(random, sizes...)
	optimiser := newAdam(model.network, options.LearningRate)

	for epoch := 1; epoch <= options.Epochs; epoch++ {
		loss, grads := model.network.gradients(trainFeatures, trainTargets)
		optimiser.update(model.network, grads)
		report.EpochLosses = append(report.EpochLosses, loss)

		if epoch%options.LogEvery == 0 {
			log.Info().
				Int("epoch", epoch).
				Int("epochs", options.Epochs).
				Float64("loss", loss).
				Msgf("Epoch [%d/%d], Loss: %.4f", epoch, options.Epochs, loss)
		}
	}

	report.TestLoss = meanSquaredError(model.network.predict(testFeatures), testTargets)
	report.TrainingPeriod = time.Since(started)

	log.Info().
		Int("train", report.TrainSamples).
		Int("test", report.TestSamples).
		Int("skipped", report.Skipped).
		Float64("loss", report.TestLoss).
		Msgf("Test Loss: %.4f", report.TestLoss)

	return model, report, nil
}

func (m *Model) matrices(samples []sample, indexes []int) (*mat.Dense, *mat.Dense) {
	features := mat.NewDense(len(indexes), featureCount, nil)
	targets := mat.NewDense(len(indexes), 1, nil)

	for row, index := range indexes {
		s := samples[index]

		// labels were fitted on these samples so encoding cannot fail
		route, _ := m.routes.Encode(s.route)
		stop, _ := m.stops.Encode(s.stop)

		features.SetRow(row, []float64{float64(route), float64(stop), s.hour, s.dayOfWeek})
		targets.Set(row, 0, s.timeToStation)
	}

	return features, targets
}

// Predict returns the expected time to station in seconds. Routes and stops the model never saw
// are rejected.
func (m *Model) Predict(route string, stopID string, at time.Time) (float64, error) {
	encodedRoute, err := m.routes.Encode(route)
	if err != nil {
		return 0, fmt.Errorf("route: %w", err)
	}
	encodedStop, err := m.stops.Encode(stopID)
	if err != nil {
		return 0, fmt.Errorf("stop: %w", err)
	}

	hour, dayOfWeek := timeFeatures(at)
	features := mat.NewDense(1, featureCount, []float64{float64(encodedRoute), float64(encodedStop), hour, dayOfWeek})

	return m.network.predict(m.scaler.Transform(features)).At(0, 0), nil
}

func (m *Model) Routes() []string {
	return m.routes.Classes()
}

func (m *Model) Stops() []string {
	return m.stops.Classes()
}

func meanSquaredError(predictions *mat.Dense, targets *mat.Dense) float64 {
	rows, _ := predictions.Dims()
	if rows == 0 {
		return 0
	}

	total := 0.0
	for i := 0; i < rows; i++ {
		difference := predictions.At(i, 0) - targets.At(i, 0)
		total += difference * difference
	}

	return total / float64(rows)
}
