package tfl

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/klmilton/tfl-bus-prediction/pkg/util"
	"github.com/rs/zerolog/log"
)

const DefaultMaxResults = 10

type Query struct {
	Text       string
	Modes      []string
	MaxResults int
}

type StopPointMatch struct {
	ID    string   `json:"id"`
	IcsID string   `json:"icsId"`
	Name  string   `json:"name"`
	Modes []string `json:"modes"`
	Zone  string   `json:"zone"`

	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

type stopPointSearchResponse struct {
	Query   string           `json:"query"`
	Total   int              `json:"total"`
	Matches []StopPointMatch `json:"matches"`
}

type StopPoint struct {
	ID         string   `json:"id"`
	NaptanID   string   `json:"naptanId"`
	CommonName string   `json:"commonName"`
	StopType   string   `json:"stopType"`
	Indicator  string   `json:"indicator"`
	Modes      []string `json:"modes"`

	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`

	Lines    []StopPointLine `json:"lines"`
	Children []StopPoint     `json:"children"`
}

type StopPointLine struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Identifier prefers the id field and falls back to the naptan id which the detail endpoint
// returns for the top level record.
func (s *StopPoint) Identifier() string {
	if s.ID != "" {
		return s.ID
	}
	return s.NaptanID
}

// ChildStops is the validated child list of a stop point. An empty IDs list means the stop point
// is a plain stop rather than a hub.
type ChildStops struct {
	ParentID  string
	IDs       []string
	Malformed int
}

func (c ChildStops) IsHub() bool {
	return len(c.IDs) > 0
}

// Diagnostic returns a MalformedEntriesError when entries had to be dropped, nil otherwise
func (c ChildStops) Diagnostic() error {
	if c.Malformed == 0 {
		return nil
	}
	return &MalformedEntriesError{StopID: c.ParentID, Count: c.Malformed}
}

// SearchStopPoints finds stop points from free text, keeping the API relevance order.
// No matches is an empty slice rather than an error.
func (c *Client) SearchStopPoints(ctx context.Context, query Query) ([]StopPointMatch, error) {
	maxResults := query.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	params := url.Values{}
	params.Set("query", query.Text)

	modes := util.RemoveDuplicates(query.Modes, []string{""})
	if len(modes) > 0 {
		params.Set("modes", strings.Join(modes, ","))
	}

	var response stopPointSearchResponse
	if err := c.Get(ctx, "/StopPoint/Search", params, &response); err != nil {
		return nil, err
	}

	matches := response.Matches
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	if matches == nil {
		matches = []StopPointMatch{}
	}

	log.Debug().
		Str("query", query.Text).
		Strs("modes", modes).
		Int("total", response.Total).
		Int("returned", len(matches)).
		Msg("Searched TfL stop points")

	return matches, nil
}

func (c *Client) GetStopPoint(ctx context.Context, stopID string) (*StopPoint, error) {
	if stopID == "" {
		return nil, ErrEmptyStopID
	}

	var stopPoint StopPoint
	if err := c.Get(ctx, fmt.Sprintf("/StopPoint/%s", url.PathEscape(stopID)), nil, &stopPoint); err != nil {
		return nil, err
	}

	return &stopPoint, nil
}

// ChildStopIDs lists the child stops of a hub. Buses report arrivals at the child stop level so
// hubs and stations need expanding before their arrivals can be fetched.
func (c *Client) ChildStopIDs(ctx context.Context, stopOrHubID string) (ChildStops, error) {
	stopPoint, err := c.GetStopPoint(ctx, stopOrHubID)
	if err != nil {
		return ChildStops{ParentID: stopOrHubID}, err
	}

	children := ValidateChildren(stopOrHubID, stopPoint.Children)

	if diagnostic := children.Diagnostic(); diagnostic != nil {
		log.Warn().
			Str("stop", stopOrHubID).
			Int("malformed", children.Malformed).
			Msg(diagnostic.Error())
	}

	return children, nil
}

// ValidateChildren keeps the ids of well formed children in order and counts the rest
func ValidateChildren(parentID string, children []StopPoint) ChildStops {
	childStops := ChildStops{ParentID: parentID, IDs: []string{}}

	for _, child := range children {
		if child.ID == "" {
			childStops.Malformed++
			continue
		}

		childStops.IDs = append(childStops.IDs, child.ID)
	}

	return childStops
}
