package tfl

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientWithoutCredential(t *testing.T) {
	t.Setenv(AppKeyEnvironmentVariable, "")

	client, err := NewClient(ClientConfig{})

	assert.Nil(t, client)
	var configurationError *ConfigurationError
	require.ErrorAs(t, err, &configurationError)
	assert.Equal(t, AppKeyEnvironmentVariable, configurationError.Setting)
}

func TestNewClientReadsEnvironment(t *testing.T) {
	t.Setenv(AppKeyEnvironmentVariable, "from-env")
	t.Setenv(UserAgentEnvironmentVariable, "")

	client, err := NewClient(ClientConfig{})
	require.NoError(t, err)

	config := client.Config()
	assert.Equal(t, "from-env", config.AppKey)
	assert.Equal(t, DefaultUserAgent, config.UserAgent)
	assert.Equal(t, DefaultBaseURL, config.BaseURL)
	assert.Equal(t, DefaultTimeout, config.Timeout)
	assert.Equal(t, DefaultMaxAttempts, config.MaxAttempts)
	assert.Equal(t, DefaultInitialInterval, config.InitialInterval)
	assert.Equal(t, DefaultMaxInterval, config.MaxInterval)
}

func TestNewClientExplicitKeyWins(t *testing.T) {
	t.Setenv(AppKeyEnvironmentVariable, "from-env")
	t.Setenv(UserAgentEnvironmentVariable, "tflbus-tests/1.0")

	client, err := NewClient(ClientConfig{AppKey: "explicit"})
	require.NoError(t, err)

	assert.Equal(t, "explicit", client.Config().AppKey)
	assert.Equal(t, "tflbus-tests/1.0", client.Config().UserAgent)
}

func TestURL(t *testing.T) {
	client, err := NewClient(ClientConfig{AppKey: "key", BaseURL: "https://example.org/"})
	require.NoError(t, err)

	assert.Equal(t, "https://example.org/Line/Mode/tube/Status", client.URL("/Line/Mode/tube/Status", nil))
	assert.Equal(t, "https://example.org/Line/Mode/tube/Status", client.URL("/Line/Mode/tube/Status", url.Values{}))
	assert.Equal(t,
		"https://example.org/StopPoint/Search?modes=bus%2Ctube&query=Green+Park",
		client.URL("/StopPoint/Search", url.Values{"query": {"Green Park"}, "modes": {"bus,tube"}}),
	)
}

func TestGetSendsIdentityHeaders(t *testing.T) {
	t.Setenv(UserAgentEnvironmentVariable, "")
	fake := newFakeTfL()
	fake.ok("/Line/Mode/tube/Status", `[]`)
	client, _ := newTestClient(t, fake)

	var lines []Line
	require.NoError(t, client.Get(context.Background(), "/Line/Mode/tube/Status", nil, &lines))

	require.Len(t, fake.requests, 1)
	request := fake.requests[0]
	assert.Equal(t, "test-key", request.Header.Get("app_key"))
	assert.Equal(t, DefaultUserAgent, request.Header.Get("User-Agent"))
	assert.Equal(t, "application/json", request.Header.Get("Accept"))
	assert.Empty(t, request.URL.RawQuery)
}

func TestGetRecoversBeforeRetryCap(t *testing.T) {
	for failures := 0; failures < DefaultMaxAttempts; failures++ {
		fake := newFakeTfL()
		responses := []fakeResponse{}
		for i := 0; i < failures; i++ {
			responses = append(responses, fakeResponse{status: http.StatusServiceUnavailable, body: `{}`})
		}
		responses = append(responses, fakeResponse{status: http.StatusOK, body: `[{"id":"victoria","name":"Victoria"}]`})
		fake.respond("/Line/Mode/tube/Status", responses...)

		client, timer := newTestClient(t, fake)

		var lines []Line
		err := client.Get(context.Background(), "/Line/Mode/tube/Status", nil, &lines)

		require.NoError(t, err, "failures=%d", failures)
		require.Len(t, lines, 1)
		assert.Equal(t, "Victoria", lines[0].Name)
		assert.Equal(t, failures+1, fake.hitsFor("/Line/Mode/tube/Status"))
		assert.Len(t, timer.delays, failures)
	}
}

func TestGetExhaustsRetries(t *testing.T) {
	fake := newFakeTfL()
	fake.fail("/StopPoint/490000254W/Arrivals", http.StatusInternalServerError)
	client, timer := newTestClient(t, fake)

	var arrivals []ArrivalPrediction
	err := client.Get(context.Background(), "/StopPoint/490000254W/Arrivals", nil, &arrivals)

	var transportError *TransportError
	require.ErrorAs(t, err, &transportError)
	assert.Equal(t, DefaultMaxAttempts, transportError.Attempts)
	assert.Equal(t, "/StopPoint/490000254W/Arrivals", transportError.Path)

	var statusError *StatusError
	require.ErrorAs(t, err, &statusError)
	assert.Equal(t, http.StatusInternalServerError, statusError.StatusCode)

	assert.Equal(t, DefaultMaxAttempts, fake.hitsFor("/StopPoint/490000254W/Arrivals"))
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}, timer.delays)
}

func TestGetBackoffIsCapped(t *testing.T) {
	fake := newFakeTfL()
	fake.fail("/Line/Mode/dlr/Status", http.StatusBadGateway)

	server := newTestServer(t, fake)
	timer := &recordingTimer{}
	client, err := NewClient(ClientConfig{AppKey: "key", BaseURL: server, MaxAttempts: 8, Timer: timer})
	require.NoError(t, err)

	var lines []Line
	err = client.Get(context.Background(), "/Line/Mode/dlr/Status", nil, &lines)
	require.True(t, IsTransportError(err))

	assert.Equal(t, 8, fake.hitsFor("/Line/Mode/dlr/Status"))
	require.Len(t, timer.delays, 7)
	for i := 1; i < len(timer.delays); i++ {
		assert.GreaterOrEqual(t, timer.delays[i], timer.delays[i-1])
		assert.LessOrEqual(t, timer.delays[i], DefaultMaxInterval)
	}
	assert.Equal(t, DefaultMaxInterval, timer.delays[len(timer.delays)-1])
}

func TestGetEmptyResponseIsNotRetried(t *testing.T) {
	fake := newFakeTfL()
	fake.ok("/StopPoint/490000254W/Arrivals", `[]`)
	client, timer := newTestClient(t, fake)

	arrivals, err := client.ArrivalsForStop(context.Background(), "490000254W")

	require.NoError(t, err)
	assert.Empty(t, arrivals)
	assert.NotNil(t, arrivals)
	assert.Equal(t, 1, fake.hitsFor("/StopPoint/490000254W/Arrivals"))
	assert.Empty(t, timer.delays)
}

func TestGetMalformedBodyIsNotRetried(t *testing.T) {
	fake := newFakeTfL()
	fake.ok("/StopPoint/490000254W/Arrivals", `{not json`)
	client, _ := newTestClient(t, fake)

	_, err := client.ArrivalsForStop(context.Background(), "490000254W")

	require.Error(t, err)
	assert.False(t, IsTransportError(err))
	assert.Equal(t, 1, fake.hitsFor("/StopPoint/490000254W/Arrivals"))
}

func TestGetConnectionFailure(t *testing.T) {
	timer := &recordingTimer{}
	client, err := NewClient(ClientConfig{AppKey: "key", BaseURL: "http://127.0.0.1:1", Timer: timer})
	require.NoError(t, err)

	var lines []Line
	err = client.Get(context.Background(), "/Line/Mode/tube/Status", nil, &lines)

	var transportError *TransportError
	require.ErrorAs(t, err, &transportError)
	assert.Equal(t, DefaultMaxAttempts, transportError.Attempts)
	assert.Len(t, timer.delays, DefaultMaxAttempts-1)
}

func TestGetCancelledContext(t *testing.T) {
	fake := newFakeTfL()
	fake.ok("/Line/Mode/tube/Status", `[]`)
	client, _ := newTestClient(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var lines []Line
	err := client.Get(ctx, "/Line/Mode/tube/Status", nil, &lines)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, IsTransportError(err))
}
