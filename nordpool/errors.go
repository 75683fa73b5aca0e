package nordpool

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrNoContent is the cause of an HTTPError for a 2xx response without a body,
	// Nordpool answers 204 for dates it has not published yet.
	ErrNoContent = errors.New("no content")
	// ErrMissingPrice is the cause of a MalformedEntryError for a null area price.
	ErrMissingPrice = errors.New("missing price")
)

// InvalidConfigurationError is returned by New for an unsupported market or resolution.
type InvalidConfigurationError struct {
	Field string
	Value any
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("%s: unsupported %s %v", ErrInvalidConfiguration, e.Field, e.Value)
}

func (e *InvalidConfigurationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// HTTPError covers transport failures, non-2xx responses, bodiless and undecodable bodies.
// StatusCode is zero when no response was received.
type HTTPError struct {
	StatusCode int
	URL        string
	Err        error
}

func (e *HTTPError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
	}
	if e.Err == nil {
		return fmt.Sprintf("request to %s failed: unexpected status code: %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("request to %s failed with status %d: %v", e.URL, e.StatusCode, e.Err)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// MalformedEntryError points at a multiIndexEntries element with unusable delivery times
// or a null price.
type MalformedEntryError struct {
	Index         int
	DeliveryStart string
	DeliveryEnd   string
	Err           error
}

func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("malformed entry %d (%s - %s): %v", e.Index, e.DeliveryStart, e.DeliveryEnd, e.Err)
}

func (e *MalformedEntryError) Unwrap() error {
	return e.Err
}
