package predictor

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/klmilton/tfl-bus-prediction/pkg/util"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const featureCount = 4

// LabelEncoder maps each distinct label to its index in sorted order
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

func NewLabelEncoder(values []string) *LabelEncoder {
	classes := util.RemoveDuplicates(values, []string{})
	sort.Strings(classes)

	index := map[string]int{}
	for i, class := range classes {
		index[class] = i
	}

	return &LabelEncoder{classes: classes, index: index}
}

func (e *LabelEncoder) Classes() []string {
	return append([]string{}, e.classes...)
}

func (e *LabelEncoder) Encode(value string) (int, error) {
	encoded, ok := e.index[value]
	if !ok {
		return 0, fmt.Errorf("unknown label %q", value)
	}
	return encoded, nil
}

// StandardScaler centres each column on zero with unit population variance. Constant columns
// are only centred.
type StandardScaler struct {
	means  []float64
	scales []float64
}

func FitStandardScaler(x *mat.Dense) *StandardScaler {
	_, columns := x.Dims()
	scaler := &StandardScaler{
		means:  make([]float64, columns),
		scales: make([]float64, columns),
	}

	for j := 0; j < columns; j++ {
		column := mat.Col(nil, j, x)
		mean, variance := stat.PopMeanVariance(column, nil)

		scale := math.Sqrt(variance)
		if scale == 0 {
			scale = 1
		}

		scaler.means[j] = mean
		scaler.scales[j] = scale
	}

	return scaler
}

func (s *StandardScaler) Transform(x *mat.Dense) *mat.Dense {
	rows, columns := x.Dims()
	scaled := mat.NewDense(rows, columns, nil)

	scaled.Apply(func(i, j int, v float64) float64 {
		return (v - s.means[j]) / s.scales[j]
	}, x)

	return scaled
}

// timeFeatures returns the hour of day and the day of week counted from Monday
func timeFeatures(at time.Time) (float64, float64) {
	dayOfWeek := (int(at.Weekday()) + 6) % 7
	return float64(at.Hour()), float64(dayOfWeek)
}
