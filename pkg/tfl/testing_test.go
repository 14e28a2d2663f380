package tfl

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeTfL serves canned responses per path and counts the requests it saw
type fakeTfL struct {
	mu        sync.Mutex
	responses map[string][]fakeResponse
	hits      map[string]int
	requests  []*http.Request
}

type fakeResponse struct {
	status int
	body   string
}

func newFakeTfL() *fakeTfL {
	return &fakeTfL{
		responses: map[string][]fakeResponse{},
		hits:      map[string]int{},
	}
}

// respond queues responses for a path, the last one repeats forever
func (f *fakeTfL) respond(path string, responses ...fakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[path] = responses
}

func (f *fakeTfL) ok(path string, body string) {
	f.respond(path, fakeResponse{status: http.StatusOK, body: body})
}

func (f *fakeTfL) fail(path string, status int) {
	f.respond(path, fakeResponse{status: status, body: `{"message":"failure"}`})
}

func (f *fakeTfL) hitsFor(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeTfL) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Clone(r.Context()))
	hit := f.hits[r.URL.Path]
	f.hits[r.URL.Path]++

	responses, ok := f.responses[r.URL.Path]
	if !ok || len(responses) == 0 {
		http.NotFound(w, r)
		return
	}

	response := responses[len(responses)-1]
	if hit < len(responses) {
		response = responses[hit]
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(response.status)
	_, _ = w.Write([]byte(response.body))
}

// recordingTimer fires immediately and remembers every delay it was asked to wait
type recordingTimer struct {
	delays []time.Duration
	c      chan time.Time
}

func (t *recordingTimer) Start(duration time.Duration) {
	t.delays = append(t.delays, duration)
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *recordingTimer) Stop() {}

func (t *recordingTimer) C() <-chan time.Time {
	return t.c
}

func newTestServer(t *testing.T, fake *fakeTfL) string {
	t.Helper()

	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	return server.URL
}

func newTestClient(t *testing.T, fake *fakeTfL) (*Client, *recordingTimer) {
	t.Helper()

	timer := &recordingTimer{}
	client, err := NewClient(ClientConfig{
		AppKey:  "test-key",
		BaseURL: newTestServer(t, fake),
		Timer:   timer,
	})
	require.NoError(t, err)

	return client, timer
}

func seconds(n int) *int {
	return &n
}
