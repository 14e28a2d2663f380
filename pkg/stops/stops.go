package stops

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/klmilton/tfl-bus-prediction/pkg/tfl"
	"github.com/kr/pretty"
)

const DefaultArrivalLimit = 10

var ErrNoMatches = errors.New("no stop points matched")

// Search prints the matches for a query as a numbered list. No matches prints a notice and
// returns ErrNoMatches.
func Search(ctx context.Context, w io.Writer, client *tfl.Client, query tfl.Query) ([]tfl.StopPointMatch, error) {
	matches, err := client.SearchStopPoints(ctx, query)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		fmt.Fprintf(w, "No matches/StopPoints found for query: %s\n", query.Text)
		return nil, fmt.Errorf("%w %q", ErrNoMatches, query.Text)
	}

	for i, match := range matches {
		fmt.Fprintf(w, "%d. %s [%s] - modes = %v\n", i+1, match.Name, match.ID, match.Modes)
	}

	return matches, nil
}

// Inspect pretty prints the stop point record followed by its child stops
func Inspect(ctx context.Context, w io.Writer, client *tfl.Client, stopID string) error {
	stopPoint, err := client.GetStopPoint(ctx, stopID)
	if err != nil {
		return err
	}

	children := tfl.ValidateChildren(stopID, stopPoint.Children)
	stopPoint.Children = nil

	pretty.Fprintf(w, "%# v\n", stopPoint)

	if !children.IsHub() {
		fmt.Fprintln(w, "No child stops")
	} else {
		fmt.Fprintf(w, "Child stops (%d):\n", len(children.IDs))
		for _, id := range children.IDs {
			fmt.Fprintf(w, "- %s\n", id)
		}
	}

	if diagnostic := children.Diagnostic(); diagnostic != nil {
		fmt.Fprintln(w, diagnostic.Error())
	}

	return nil
}

type ArrivalsOptions struct {
	// Query is resolved to its first match when StopID is empty
	Query  string
	StopID string
	Modes  []string
	Filter *tfl.ArrivalFilter
	Limit  int
}

// Arrivals aggregates the arrivals of a stop or hub and prints the soonest few
func Arrivals(ctx context.Context, w io.Writer, client *tfl.Client, options ArrivalsOptions) (*tfl.Aggregation, error) {
	stopID := options.StopID
	if stopID == "" {
		if strings.TrimSpace(options.Query) == "" {
			return nil, errors.New("either a stop id or a query must be provided")
		}

		matches, err := Search(ctx, w, client, tfl.Query{Text: options.Query, Modes: options.Modes, MaxResults: 5})
		if err != nil {
			return nil, err
		}
		stopID = matches[0].ID
	}

	fmt.Fprintf(w, "\nFetching arrivals for: %s\n", stopID)

	aggregation, err := client.ArrivalsForHubOrStop(ctx, stopID)
	if err != nil {
		return nil, err
	}

	arrivals, err := tfl.FilterArrivals(aggregation.Arrivals, options.Filter)
	if err != nil {
		return nil, err
	}
	aggregation.Arrivals = arrivals

	if len(arrivals) == 0 {
		fmt.Fprintln(w, "No arrivals at the moment.")
		return aggregation, nil
	}

	limit := options.Limit
	if limit <= 0 {
		limit = DefaultArrivalLimit
	}

	for i, arrival := range arrivals {
		if i == limit {
			break
		}
		fmt.Fprintln(w, FormatArrival(arrival))
	}

	for _, outcome := range aggregation.FailedChildren() {
		fmt.Fprintf(w, "Skipped child stop %s: %v\n", outcome.StopID, outcome.Err)
	}

	return aggregation, nil
}

// FormatArrival renders e.g. "73 -> Stoke Newington in 3 min RB"
func FormatArrival(arrival tfl.ArrivalPrediction) string {
	minutes := "?"
	if eta, ok := arrival.ETA(); ok {
		minutes = fmt.Sprintf("%d", int(math.Round(eta.Minutes())))
	}

	formatted := fmt.Sprintf("%s -> %s in %s min %s", arrival.LineName, arrival.DestinationName, minutes, arrival.PlatformName)
	return strings.TrimRight(formatted, " ")
}
