package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/klmilton/tfl-bus-prediction/pkg/linestatus"
	"github.com/klmilton/tfl-bus-prediction/pkg/tfl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	mux := http.NewServeMux()
	respond := func(path string, status int, body string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			fmt.Fprint(w, body)
		})
	}

	mux.HandleFunc("/StopPoint/Search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") == "Nowhere" {
			fmt.Fprint(w, `{"matches":[]}`)
			return
		}
		fmt.Fprint(w, `{"matches":[
			{"id":"940GZZLUWLO","name":"Waterloo Underground Station","modes":["bus","tube"]},
			{"id":"HUBWAT","name":"Waterloo","modes":["bus"]},
			{"id":"490000254W","name":"Waterloo Station","modes":["bus"]}
		]}`)
	})
	respond("/StopPoint/HUB", http.StatusOK, `{"id":"HUB","commonName":"Oxford Circus","children":[{"id":"C1"},{"id":"C2"},{}]}`)
	respond("/StopPoint/C1/Arrivals", http.StatusOK, `[
		{"id":"a","lineName":"73","destinationName":"Stoke Newington","vehicleId":"LJ17WRV","timeToStation":185},
		{"id":"b","lineName":"390","destinationName":"Archway","vehicleId":"LX11AVB","timeToStation":1200}
	]`)
	respond("/StopPoint/C2/Arrivals", http.StatusInternalServerError, `{}`)
	respond("/StopPoint/MISSING", http.StatusNotFound, `{"message":"not found"}`)
	respond("/StopPoint/DOWN", http.StatusBadGateway, `{}`)
	respond("/Line/Mode/dlr/Status", http.StatusServiceUnavailable, `{}`)
	respond("/Line/Mode/tube/Status", http.StatusOK, `[
		{"id":"victoria","name":"Victoria","modeName":"tube","lineStatuses":[{"statusSeverity":9,"statusSeverityDescription":"Minor Delays","reason":"signal failure"}]}
	]`)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := tfl.NewClient(tfl.ClientConfig{
		AppKey:          "test-key",
		BaseURL:         server.URL,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	})
	require.NoError(t, err)

	return NewApp(client, linestatus.NewBoard(client, nil))
}

func get(t *testing.T, app *fiber.App, target string, out any) int {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if out != nil {
		require.NoError(t, json.Unmarshal(body, out), string(body))
	}

	return resp.StatusCode
}

func TestVersion(t *testing.T) {
	var response map[string]string
	assert.Equal(t, http.StatusOK, get(t, newTestApp(t), "/core/version", &response))
	assert.Equal(t, "v0.1", response["version"])
}

func TestSearchStops(t *testing.T) {
	app := newTestApp(t)

	var matches []tfl.StopPointMatch
	assert.Equal(t, http.StatusOK, get(t, app, "/core/stops/search?query=Waterloo&modes=bus,tube&limit=2", &matches))
	require.Len(t, matches, 2)
	assert.Equal(t, "940GZZLUWLO", matches[0].ID)

	var errorResponse map[string]string
	assert.Equal(t, http.StatusBadRequest, get(t, app, "/core/stops/search", &errorResponse))
	assert.NotEmpty(t, errorResponse["error"])

	assert.Equal(t, http.StatusBadRequest, get(t, app, "/core/stops/search?query=Waterloo&limit=lots", nil))
	assert.Equal(t, http.StatusNotFound, get(t, app, "/core/stops/search?query=Nowhere", nil))
}

func TestGetStop(t *testing.T) {
	app := newTestApp(t)

	var stop map[string]any
	assert.Equal(t, http.StatusOK, get(t, app, "/core/stops/HUB", &stop))
	assert.Equal(t, "HUB", stop["id"])
	assert.Equal(t, "Oxford Circus", stop["commonName"])
	assert.Equal(t, []any{"C1", "C2"}, stop["children"])
	assert.Equal(t, float64(1), stop["malformed"])

	assert.Equal(t, http.StatusNotFound, get(t, app, "/core/stops/MISSING", nil))
	assert.Equal(t, http.StatusBadGateway, get(t, app, "/core/stops/DOWN", nil))
}

type arrivalsResponse struct {
	Stop           string           `json:"stop"`
	Children       []string         `json:"children"`
	FailedChildren []string         `json:"failedChildren"`
	Fallback       string           `json:"fallback"`
	Arrivals       []map[string]any `json:"arrivals"`
}

func TestGetStopArrivals(t *testing.T) {
	app := newTestApp(t)

	var response arrivalsResponse
	assert.Equal(t, http.StatusOK, get(t, app, "/core/stops/HUB/arrivals", &response))

	assert.Equal(t, "HUB", response.Stop)
	assert.Equal(t, []string{"C1", "C2"}, response.Children)
	assert.Equal(t, []string{"C2"}, response.FailedChildren)
	assert.Equal(t, "", response.Fallback)
	require.Len(t, response.Arrivals, 2)
	assert.Equal(t, "73", response.Arrivals[0]["lineName"])
	assert.Equal(t, float64(185), response.Arrivals[0]["timeToStation"])
	assert.NotContains(t, response.Arrivals[0], "vehicleId")
}

func TestGetStopArrivalsDetailedWithin(t *testing.T) {
	app := newTestApp(t)

	var response arrivalsResponse
	assert.Equal(t, http.StatusOK, get(t, app, "/core/stops/HUB/arrivals?within=PT10M&detail=true", &response))

	require.Len(t, response.Arrivals, 1)
	assert.Equal(t, "73", response.Arrivals[0]["lineName"])
	assert.Equal(t, "LJ17WRV", response.Arrivals[0]["vehicleId"])
}

func TestGetStopArrivalsFiltered(t *testing.T) {
	app := newTestApp(t)

	var response arrivalsResponse
	assert.Equal(t, http.StatusOK, get(t, app, `/core/stops/HUB/arrivals?filter=lineName%20%3D%3D%20%22390%22`, &response))

	require.Len(t, response.Arrivals, 1)
	assert.Equal(t, "390", response.Arrivals[0]["lineName"])
}

func TestGetStopArrivalsBadParameters(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, http.StatusBadRequest, get(t, app, "/core/stops/HUB/arrivals?within=ten", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, app, "/core/stops/HUB/arrivals?detail=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, app, "/core/stops/HUB/arrivals?filter=lineName%20%3D%3D", nil))
}

func TestLineStatus(t *testing.T) {
	app := newTestApp(t)

	var lines []map[string]any
	assert.Equal(t, http.StatusOK, get(t, app, "/core/lines/tube/status", &lines))

	require.Len(t, lines, 1)
	assert.Equal(t, "Victoria", lines[0]["name"])
	assert.Equal(t, "Minor Delays", lines[0]["summary"])
	assert.Equal(t, []any{"signal failure"}, lines[0]["reasons"])

	assert.Equal(t, http.StatusBadRequest, get(t, app, "/core/lines/tube/status?detail=maybe", nil))
	assert.Equal(t, http.StatusBadGateway, get(t, app, "/core/lines/dlr/status", nil))
}
