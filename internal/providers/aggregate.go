package providers

import (
	"context"
	"strings"
	"sync"
	"time"

	"eventscout/internal/cache"
	appLog "eventscout/internal/log"
	"eventscout/internal/metrics"
	"eventscout/internal/model"
)

// categoryRoute translates one user-facing category into the vocabulary of
// each provider. Eventbrite has no category parameter; its column is kept
// for completeness of the table and ignored by the adapter.
type categoryRoute struct {
	Brussels     string
	Ticketmaster string
}

// categoryRoutes is the cross-provider category table. Unknown categories
// are passed through verbatim to every provider, which each resolve them
// with their own fallbacks.
var categoryRoutes = map[string]categoryRoute{
	"music":    {Brussels: "concert", Ticketmaster: "Music"},
	"sport":    {Brussels: "sport", Ticketmaster: "Sports"},
	"art":      {Brussels: "exhibition", Ticketmaster: "Arts"},
	"culture":  {Brussels: "exhibition", Ticketmaster: "Arts"},
	"theatre":  {Brussels: "theatre", Ticketmaster: "Theatre"},
	"cinema":   {Brussels: "cinema", Ticketmaster: "Film"},
	"family":   {Brussels: "show", Ticketmaster: "Family"},
	"festival": {Brussels: "concert", Ticketmaster: "Music"},
	"party":    {Brussels: "clubbing", Ticketmaster: "Music"},
	"nature":   {Brussels: "show", Ticketmaster: "Family"},
}

// routeCategory returns the per-provider spelling of a category.
func routeCategory(category string, source model.Source) string {
	route, ok := categoryRoutes[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		return category
	}
	switch source {
	case model.SourceBrussels:
		return route.Brussels
	case model.SourceTicketmaster:
		return route.Ticketmaster
	default:
		return category
	}
}

// Aggregator warms the cache from all configured providers for a category.
//
// The providers are independent, so fetches run concurrently and a failure
// in one never blocks the others: a failed source contributes zero events
// and a logged, typed error.
type Aggregator struct {
	store    *cache.Store
	fetchers []Fetcher
	ttl      time.Duration
	metrics  *metrics.Metrics
}

// NewAggregator wires the fetchers to the store. metrics may be nil.
func NewAggregator(store *cache.Store, ttl time.Duration, m *metrics.Metrics, fetchers ...Fetcher) *Aggregator {
	return &Aggregator{
		store:    store,
		fetchers: fetchers,
		ttl:      ttl,
		metrics:  m,
	}
}

// WarmCategory fetches a category from every provider whose cached data is
// stale (or unconditionally when force is set) and registers the results.
// It returns the per-source errors; an empty slice means every reachable
// provider succeeded. An empty cache after a warm is not an error here;
// callers decide what to make of it.
func (a *Aggregator) WarmCategory(ctx context.Context, category string, force bool) []*FetchError {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []*FetchError
	)

	for _, f := range a.fetchers {
		source := f.Source()

		if !force && !a.store.IsStale(source, a.ttl) {
			appLog.Debug("warm: source still fresh, skipping", "source", source, "category", category)
			a.countFetch(source, "skipped")
			continue
		}

		wg.Add(1)
		go func(f Fetcher, source model.Source) {
			defer wg.Done()

			start := time.Now()
			events, err := f.Fetch(ctx, routeCategory(category, source))
			a.observeDuration(time.Since(start))

			if err != nil {
				fe := asFetchError(source, err)
				appLog.Error("warm: source fetch failed", fe, "source", source, "category", category, "kind", fe.Kind)
				a.countFetch(source, string(fe.Kind))

				mu.Lock()
				errs = append(errs, fe)
				mu.Unlock()
				return
			}

			added := 0
			for _, ev := range events {
				if strings.TrimSpace(ev.Name) == "" {
					continue
				}
				a.store.Add(ev, source)
				added++
			}
			a.store.MarkRefreshed(source)
			a.countFetch(source, "ok")
			a.countRefresh(source)

			appLog.Info("warm: source refreshed", "source", source, "category", category, "event_count", added)
		}(f, source)
	}

	wg.Wait()
	a.updateCacheGauges()
	return errs
}

// Store returns the underlying cache, for the view and API layers.
func (a *Aggregator) Store() *cache.Store { return a.store }

// TTL returns the freshness window applied per source.
func (a *Aggregator) TTL() time.Duration { return a.ttl }

func (a *Aggregator) countFetch(source model.Source, outcome string) {
	if a.metrics != nil {
		a.metrics.FetchTotal.WithLabelValues(string(source), outcome).Inc()
	}
}

func (a *Aggregator) countRefresh(source model.Source) {
	if a.metrics != nil {
		a.metrics.RefreshTotal.WithLabelValues(string(source)).Inc()
	}
}

func (a *Aggregator) observeDuration(d time.Duration) {
	if a.metrics != nil {
		a.metrics.FetchDuration.Observe(d.Seconds())
	}
}

func (a *Aggregator) updateCacheGauges() {
	if a.metrics == nil {
		return
	}
	st := a.store.Stats()
	for _, source := range model.KnownSources() {
		a.metrics.CacheEvents.WithLabelValues(string(source)).Set(float64(st.BySource[source]))
	}
}

// asFetchError normalizes any adapter error into a *FetchError.
func asFetchError(source model.Source, err error) *FetchError {
	if fe, ok := err.(*FetchError); ok {
		return fe
	}
	return newFetchError(source, ErrNetwork, err)
}
