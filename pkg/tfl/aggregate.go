package tfl

import (
	"context"

	"github.com/rs/zerolog/log"
)

type FallbackReason string

const (
	FallbackNone          FallbackReason = ""
	FallbackNoChildren    FallbackReason = "no-children"
	FallbackChildrenEmpty FallbackReason = "children-empty"
)

// ChildOutcome is the result of fetching arrivals for one child stop of a hub
type ChildOutcome struct {
	StopID string
	Count  int
	Err    error
}

func (o ChildOutcome) Failed() bool {
	return o.Err != nil
}

// Aggregation is the merged view of a hub or stop. Outcomes holds one entry per child stop in the
// order they were fetched.
type Aggregation struct {
	StopID   string
	Children ChildStops
	Outcomes []ChildOutcome
	Fallback FallbackReason

	Arrivals []ArrivalPrediction
}

func (a *Aggregation) FailedChildren() []ChildOutcome {
	failed := []ChildOutcome{}
	for _, outcome := range a.Outcomes {
		if outcome.Failed() {
			failed = append(failed, outcome)
		}
	}
	return failed
}

// ArrivalsForHubOrStop fetches arrivals for every child of a hub and merges them, or fetches the
// stop directly when it has no children. A failing child is recorded and skipped. The direct
// fetch is also used when a hub's children produced nothing at all; whether that hides real
// failures still needs checking against the live API.
func (c *Client) ArrivalsForHubOrStop(ctx context.Context, stopOrHubID string) (*Aggregation, error) {
	children, err := c.ChildStopIDs(ctx, stopOrHubID)
	if err != nil {
		return nil, err
	}

	aggregation := &Aggregation{
		StopID:   stopOrHubID,
		Children: children,
		Outcomes: []ChildOutcome{},
		Arrivals: []ArrivalPrediction{},
	}

	for _, childID := range children.IDs {
		childArrivals, err := c.ArrivalsForStop(ctx, childID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			log.Warn().
				Err(err).
				Str("hub", stopOrHubID).
				Str("stop", childID).
				Msg("Failed fetching arrivals for child stop, skipping")

			aggregation.Outcomes = append(aggregation.Outcomes, ChildOutcome{StopID: childID, Err: err})
			continue
		}

		log.Debug().
			Str("hub", stopOrHubID).
			Str("stop", childID).
			Int("arrivals", len(childArrivals)).
			Msg("Fetched child stop arrivals")

		aggregation.Outcomes = append(aggregation.Outcomes, ChildOutcome{StopID: childID, Count: len(childArrivals)})
		aggregation.Arrivals = append(aggregation.Arrivals, childArrivals...)
	}

	if !children.IsHub() {
		aggregation.Fallback = FallbackNoChildren
	} else if len(aggregation.Arrivals) == 0 {
		aggregation.Fallback = FallbackChildrenEmpty

		log.Warn().
			Str("hub", stopOrHubID).
			Int("children", len(children.IDs)).
			Int("failed", len(aggregation.FailedChildren())).
			Msg("Child stops returned no arrivals, falling back to the hub itself")
	}

	if aggregation.Fallback != FallbackNone {
		arrivals, err := c.ArrivalsForStop(ctx, stopOrHubID)
		if err != nil {
			return nil, err
		}
		aggregation.Arrivals = arrivals
	}

	SortArrivals(aggregation.Arrivals)

	log.Debug().
		Str("stop", stopOrHubID).
		Int("children", len(children.IDs)).
		Str("fallback", string(aggregation.Fallback)).
		Int("arrivals", len(aggregation.Arrivals)).
		Msg("Aggregated arrivals")

	return aggregation, nil
}
