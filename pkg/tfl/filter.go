package tfl

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/klmilton/tfl-bus-prediction/pkg/util"
)

// ArrivalFilter is a compiled boolean expression over arrival fields, for example
//
//	lineName == "73" && timeToStation < 600
//
// A nil filter matches everything.
type ArrivalFilter struct {
	source  string
	program *vm.Program
}

func CompileArrivalFilter(source string) (*ArrivalFilter, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, nil
	}

	program, err := expr.Compile(source, expr.Env(filterEnvironment(ArrivalPrediction{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling arrival filter %q: %w", source, err)
	}

	return &ArrivalFilter{source: source, program: program}, nil
}

func (f *ArrivalFilter) String() string {
	if f == nil {
		return ""
	}
	return f.source
}

func (f *ArrivalFilter) Match(arrival ArrivalPrediction) (bool, error) {
	if f == nil {
		return true, nil
	}

	output, err := expr.Run(f.program, filterEnvironment(arrival))
	if err != nil {
		return false, fmt.Errorf("running arrival filter %q: %w", f.source, err)
	}

	matched, _ := output.(bool)
	return matched, nil
}

// FilterArrivals keeps the arrivals the filter matches, preserving order. The slice is filtered
// in place.
func FilterArrivals(arrivals []ArrivalPrediction, filter *ArrivalFilter) ([]ArrivalPrediction, error) {
	if filter == nil {
		return arrivals, nil
	}

	var filterErr error
	util.InPlaceFilter(&arrivals, func(arrival ArrivalPrediction) bool {
		if filterErr != nil {
			return false
		}

		matched, err := filter.Match(arrival)
		if err != nil {
			filterErr = err
		}
		return matched
	})

	if filterErr != nil {
		return nil, filterErr
	}

	return arrivals, nil
}

func filterEnvironment(arrival ArrivalPrediction) map[string]any {
	return map[string]any{
		"id":               arrival.ID,
		"operationType":    arrival.OperationType,
		"vehicleId":        arrival.VehicleID,
		"naptanId":         arrival.NaptanID,
		"stationName":      arrival.StationName,
		"lineId":           arrival.LineID,
		"lineName":         arrival.LineName,
		"platformName":     arrival.PlatformName,
		"direction":        arrival.Direction,
		"destinationName":  arrival.DestinationName,
		"towards":          arrival.Towards,
		"currentLocation":  arrival.CurrentLocation,
		"modeName":         arrival.ModeName,
		"expectedArrival":  arrival.ExpectedArrival,
		"timeToStation":    arrival.Seconds(),
		"hasTimeToStation": arrival.HasTimeToStation(),
	}
}
