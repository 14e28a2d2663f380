package tfl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/klmilton/tfl-bus-prediction/pkg/util"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL   = "https://api.tfl.gov.uk"
	DefaultUserAgent = "tfl-starter/0.1"

	DefaultTimeout         = 20 * time.Second
	DefaultMaxAttempts     = 4
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 8 * time.Second

	AppKeyEnvironmentVariable    = "TFL_APP_KEY"
	UserAgentEnvironmentVariable = "TFLBUS_USER_AGENT"
)

// ClientConfig is copied into the Client on construction and never changes afterwards.
type ClientConfig struct {
	AppKey    string
	UserAgent string
	BaseURL   string

	Timeout         time.Duration
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration

	HTTPClient *http.Client
	// Timer is only swapped out by tests that need to observe the retry delays
	Timer backoff.Timer
}

type Client struct {
	config     ClientConfig
	httpClient *http.Client
}

// NewClient fills in defaults for any zero valued field. The app key comes from the config or,
// failing that, from TFL_APP_KEY. TFLBUS_USER_AGENT overrides the default user agent.
func NewClient(config ClientConfig) (*Client, error) {
	if config.AppKey == "" {
		config.AppKey = util.GetEnvironmentVariables()[AppKeyEnvironmentVariable]
	}
	if config.AppKey == "" {
		return nil, &ConfigurationError{
			Setting: AppKeyEnvironmentVariable,
			Message: "must be set in environment variables or passed as an argument",
		}
	}

	if config.UserAgent == "" {
		config.UserAgent = util.GetEnvironmentVariable(UserAgentEnvironmentVariable, DefaultUserAgent)
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.InitialInterval <= 0 {
		config.InitialInterval = DefaultInitialInterval
	}
	if config.MaxInterval <= 0 {
		config.MaxInterval = DefaultMaxInterval
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	} else {
		copied := *httpClient
		httpClient = &copied
	}
	httpClient.Timeout = config.Timeout

	return &Client{
		config:     config,
		httpClient: httpClient,
	}, nil
}

// Config returns a copy of the settings the client was built with
func (c *Client) Config() ClientConfig {
	return c.config
}

func (c *Client) URL(path string, params url.Values) string {
	requestURL := c.config.BaseURL + path

	if query := params.Encode(); query != "" {
		requestURL = fmt.Sprintf("%s?%s", requestURL, query)
	}

	return requestURL
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = c.config.InitialInterval
	exponential.Multiplier = 2
	exponential.RandomizationFactor = 0
	exponential.MaxInterval = c.config.MaxInterval
	exponential.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(exponential, uint64(c.config.MaxAttempts-1)), ctx)
}

// Get performs an authenticated GET against the API and decodes the JSON body into dst.
// Transport failures and non 2xx responses are retried, anything else fails straight away.
func (c *Client) Get(ctx context.Context, path string, params url.Values, dst any) error {
	requestURL := c.URL(path, params)
	attempts := 0

	operation := func() error {
		attempts++

		body, err := c.do(ctx, requestURL)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}

		if err := json.Unmarshal(body, dst); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding response from %s: %w", path, err))
		}

		return nil
	}

	notify := func(err error, wait time.Duration) {
		log.Warn().
			Err(err).
			Str("path", path).
			Int("attempt", attempts).
			Dur("backoff", wait).
			Msg("TfL API request failed, retrying")
	}

	var err error
	if c.config.Timer != nil {
		err = backoff.RetryNotifyWithTimer(operation, c.newBackOff(ctx), notify, c.config.Timer)
	} else {
		err = backoff.RetryNotify(operation, c.newBackOff(ctx), notify)
	}

	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var requestFailure *requestError
	if errors.As(err, &requestFailure) {
		return &TransportError{Path: path, Attempts: attempts, Err: requestFailure.err}
	}

	return err
}

// requestError marks failures that are worth another attempt
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func (c *Client) do(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("making new request: %w", err))
	}

	req.Header.Set("app_key", c.config.AppKey)
	// TfL is protected by cloudflare and it gets angry when no user agent is set
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &requestError{err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &requestError{err: fmt.Errorf("reading body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &requestError{err: &StatusError{
			StatusCode: resp.StatusCode,
			URL:        requestURL,
			Body:       util.TrimString(string(body), 256),
		}}
	}

	return body, nil
}
