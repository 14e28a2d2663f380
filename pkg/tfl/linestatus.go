package tfl

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/klmilton/tfl-bus-prediction/pkg/util"
)

type Line struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	ModeName     string       `json:"modeName"`
	Created      string       `json:"created"`
	Modified     string       `json:"modified"`
	LineStatuses []LineStatus `json:"lineStatuses"`
}

type LineStatus struct {
	StatusSeverity            int    `json:"statusSeverity"`
	StatusSeverityDescription string `json:"statusSeverityDescription"`
	Reason                    string `json:"reason,omitempty"`
}

// StatusSummary joins the distinct severity descriptions, e.g. "Good Service" or
// "Minor Delays,Part Closure"
func (l Line) StatusSummary() string {
	descriptions := []string{}
	for _, status := range l.LineStatuses {
		descriptions = append(descriptions, status.StatusSeverityDescription)
	}

	return strings.Join(util.RemoveDuplicates(descriptions, []string{""}), ",")
}

// GetLineStatusByMode returns the status of every line in the given modes ("tube", "dlr", "overground" ...)
func (c *Client) GetLineStatusByMode(ctx context.Context, modes []string, detail bool) ([]Line, error) {
	modes = util.RemoveDuplicates(modes, []string{""})
	if len(modes) == 0 {
		return nil, errors.New("at least one mode must be provided")
	}

	params := url.Values{}
	params.Set("detail", strconv.FormatBool(detail))

	escapedModes := []string{}
	for _, mode := range modes {
		escapedModes = append(escapedModes, url.PathEscape(mode))
	}
	path := fmt.Sprintf("/Line/Mode/%s/Status", strings.Join(escapedModes, ","))

	var lines []Line
	if err := c.Get(ctx, path, params, &lines); err != nil {
		return nil, err
	}

	if lines == nil {
		lines = []Line{}
	}

	return lines, nil
}
