package tfl

import (
	"errors"
	"fmt"
)

var ErrEmptyStopID = errors.New("stop point id must be provided")

// ConfigurationError is returned by NewClient when a required setting is missing
type ConfigurationError struct {
	Setting string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s %s", e.Setting, e.Message)
}

// TransportError is what a request turns into once every attempt has failed
type TransportError struct {
	Path     string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("GET %s failed after %d attempts: %v", e.Path, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// MalformedEntriesError reports child stop entries that were dropped because they had no id.
// It is a diagnostic and never fails the lookup that produced it.
type MalformedEntriesError struct {
	StopID string
	Count  int
}

func (e *MalformedEntriesError) Error() string {
	return fmt.Sprintf("skipped %d malformed child entries of %s", e.Count, e.StopID)
}

// IsTransportError reports whether err (or anything it wraps) is a TransportError
func IsTransportError(err error) bool {
	var transportError *TransportError
	return errors.As(err, &transportError)
}
