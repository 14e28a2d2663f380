package collector

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/klmilton/tfl-bus-prediction/pkg/arrivaltable"
	"github.com/klmilton/tfl-bus-prediction/pkg/history"
	"github.com/klmilton/tfl-bus-prediction/pkg/tfl"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

// MatchResult is what happened to one matched stop point during a run. Err is set when the
// stop could not be collected; the run carries on regardless.
type MatchResult struct {
	Query  string
	StopID string
	Name   string

	Path           string
	Rows           int
	Fallback       tfl.FallbackReason
	FailedChildren int

	Err error

	order int
}

func (r MatchResult) Failed() bool {
	return r.Err != nil
}

type Collector struct {
	client *tfl.Client
	store  *history.Store
	config Config

	Now func() time.Time
}

// New builds a collector. store may be nil to skip recording history.
func New(client *tfl.Client, store *history.Store, config Config) (*Collector, error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Collector{
		client: client,
		store:  store,
		config: config,
		Now:    time.Now,
	}, nil
}

type job struct {
	order int
	query string
	match tfl.StopPointMatch
}

// Run resolves every watch and collects the arrivals of each match once
func (c *Collector) Run(ctx context.Context) []MatchResult {
	results := []MatchResult{}
	jobs := []job{}
	seen := map[string]bool{}

	for _, watch := range c.config.Watches {
		matches, err := c.client.SearchStopPoints(ctx, tfl.Query{
			Text:       watch.Query,
			Modes:      watch.Modes,
			MaxResults: watch.MaxMatches,
		})
		if err != nil {
			log.Error().Err(err).Str("query", watch.Query).Msg("Failed to search stop points")
			results = append(results, MatchResult{Query: watch.Query, Err: err, order: len(results) + len(jobs)})
			continue
		}

		if len(matches) == 0 {
			log.Warn().Str("query", watch.Query).Msg("No stop points matched")
			results = append(results, MatchResult{Query: watch.Query, Err: errors.New("no stop points matched"), order: len(results) + len(jobs)})
			continue
		}

		for _, match := range matches {
			if seen[match.ID] {
				continue
			}
			seen[match.ID] = true

			jobs = append(jobs, job{order: len(results) + len(jobs), query: watch.Query, match: match})
		}
	}

	collectionPool := pool.NewWithResults[MatchResult]().WithMaxGoroutines(c.config.Concurrency)
	for _, j := range jobs {
		j := j
		collectionPool.Go(func() MatchResult {
			return c.collect(ctx, j)
		})
	}
	results = append(results, collectionPool.Wait()...)

	sort.Slice(results, func(i, j int) bool {
		return results[i].order < results[j].order
	})

	failed := 0
	for _, result := range results {
		if result.Failed() {
			failed++
		}
	}
	log.Info().
		Int("watches", len(c.config.Watches)).
		Int("matches", len(jobs)).
		Int("failed", failed).
		Msg("Collection run complete")

	return results
}

func (c *Collector) collect(ctx context.Context, j job) MatchResult {
	result := MatchResult{
		Query:  j.query,
		StopID: j.match.ID,
		Name:   j.match.Name,
		order:  j.order,
	}

	observedAt := c.Now()

	aggregation, err := c.client.ArrivalsForHubOrStop(ctx, j.match.ID)
	if err != nil {
		log.Error().Err(err).Str("stop", j.match.ID).Msg("Failed to fetch arrivals")
		result.Err = err
		return result
	}
	result.Fallback = aggregation.Fallback
	result.FailedChildren = len(aggregation.FailedChildren())

	rows, err := arrivaltable.Flatten(aggregation.Arrivals)
	if err != nil {
		result.Err = err
		return result
	}

	result.Path = arrivaltable.OutputPath(c.config.OutputDirectory, j.match.ID, observedAt)
	if err := arrivaltable.Save(rows, result.Path); err != nil {
		log.Error().Err(err).Str("path", result.Path).Msg("Failed to save arrivals")
		result.Err = err
		return result
	}
	result.Rows = len(rows)

	if c.store != nil {
		if err := c.store.InsertArrivals(ctx, j.match.ID, aggregation.Arrivals, observedAt); err != nil {
			log.Error().Err(err).Str("stop", j.match.ID).Msg("Failed to record arrival history")
			result.Err = err
			return result
		}
	}

	log.Info().
		Str("stop", j.match.ID).
		Str("name", j.match.Name).
		Int("rows", result.Rows).
		Str("path", result.Path).
		Msg("Saved arrivals")

	return result
}

// RunEvery repeats Run on the interval until the context is cancelled
func (c *Collector) RunEvery(ctx context.Context, interval time.Duration, onRun func([]MatchResult)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for ctx.Err() == nil {
		results := c.Run(ctx)
		if onRun != nil {
			onRun(results)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
