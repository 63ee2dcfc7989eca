// Package providers contains the three upstream fetch adapters and the
// aggregator that warms the event cache from them.
//
// Each adapter is a pure mapping from one provider's JSON shape onto the
// canonical model.Event; registration into the cache, TTL skipping and the
// degrade-gracefully policy live in the aggregator, not in the adapters.
package providers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"eventscout/internal/model"
)

// Env variable names the adapters read their credentials from. Tokens are
// never part of the YAML config.
const (
	EnvBrusselsToken   = "BRUSSELS_API_BEARER_TOKEN"
	EnvTicketmasterKey = "TICKETMASTER_CONSUMER_KEY"
	EnvEventbriteToken = "EVENTBRITE_PRIVATE_TOKEN"
)

// ErrorKind classifies adapter failures so the aggregator can log and count
// them distinctly while applying the same degrade-gracefully policy to all.
type ErrorKind string

const (
	// ErrAuth means credentials are missing or rejected upstream.
	ErrAuth ErrorKind = "auth"
	// ErrNetwork covers transport failures and timeouts.
	ErrNetwork ErrorKind = "network"
	// ErrStatus is a non-2xx HTTP response.
	ErrStatus ErrorKind = "status"
	// ErrDecode is malformed or unexpected response JSON.
	ErrDecode ErrorKind = "decode"
)

// FetchError is the typed failure of one adapter fetch. A category warm
// spanning three providers treats it as a per-source condition, never as a
// process abort.
type FetchError struct {
	Source model.Source
	Kind   ErrorKind
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s fetch failed (%s): %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// newFetchError wraps err for the given source and kind.
func newFetchError(source model.Source, kind ErrorKind, err error) *FetchError {
	return &FetchError{Source: source, Kind: kind, Err: err}
}

// Fetcher is one upstream adapter. Fetch maps the provider's response for a
// category onto canonical events; it must skip malformed records (missing
// name) rather than fail the page, and must return a *FetchError on any
// upstream problem.
type Fetcher interface {
	Source() model.Source
	Fetch(ctx context.Context, category string) ([]model.Event, error)
}

// newHTTPClient returns the shared client configuration for all adapters.
// The explicit timeout makes a hung provider a per-adapter failure instead
// of stalling a whole category warm.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 15 * time.Second,
	}
}

// envToken reads a credential from the environment; empty means the adapter
// reports ErrAuth without issuing a request.
func envToken(name string) string {
	return os.Getenv(name)
}
