package providers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"eventscout/internal/cache"
	"eventscout/internal/model"
)

// stubFetcher is a scripted provider for aggregator tests.
type stubFetcher struct {
	source model.Source
	events []model.Event
	err    error
	calls  atomic.Int32
}

func (s *stubFetcher) Source() model.Source { return s.source }

func (s *stubFetcher) Fetch(_ context.Context, _ string) ([]model.Event, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.events, nil
}

func TestWarmCategoryAggregatesAllSources(t *testing.T) {
	store := cache.NewStore()
	agg := NewAggregator(store, time.Hour, nil,
		&stubFetcher{source: model.SourceBrussels, events: []model.Event{{Name: "Expo"}}},
		&stubFetcher{source: model.SourceTicketmaster, events: []model.Event{{Name: "Concert"}}},
		&stubFetcher{source: model.SourceEventbrite, events: []model.Event{{Name: "Atelier"}}},
	)

	errs := agg.WarmCategory(context.Background(), "art", false)
	require.Empty(t, errs)
	require.Equal(t, 3, store.Len())
	require.Len(t, store.BySource(model.SourceBrussels), 1)
	require.Len(t, store.BySource(model.SourceTicketmaster), 1)
	require.Len(t, store.BySource(model.SourceEventbrite), 1)
}

func TestWarmCategoryDegradesGracefully(t *testing.T) {
	store := cache.NewStore()
	failing := &stubFetcher{
		source: model.SourceTicketmaster,
		err:    newFetchError(model.SourceTicketmaster, ErrNetwork, errors.New("timeout")),
	}
	agg := NewAggregator(store, time.Hour, nil,
		&stubFetcher{source: model.SourceBrussels, events: []model.Event{{Name: "Expo"}}},
		failing,
	)

	errs := agg.WarmCategory(context.Background(), "music", false)

	// One failure, but the healthy source still landed in the cache.
	require.Len(t, errs, 1)
	require.Equal(t, model.SourceTicketmaster, errs[0].Source)
	require.Equal(t, ErrNetwork, errs[0].Kind)
	require.Equal(t, 1, store.Len())

	// The failed source must stay stale so the next warm retries it.
	require.True(t, store.IsStale(model.SourceTicketmaster, time.Hour))
	require.False(t, store.IsStale(model.SourceBrussels, time.Hour))
}

func TestWarmCategorySkipsFreshSources(t *testing.T) {
	store := cache.NewStore()
	f := &stubFetcher{source: model.SourceBrussels, events: []model.Event{{Name: "Expo"}}}
	agg := NewAggregator(store, time.Hour, nil, f)

	agg.WarmCategory(context.Background(), "art", false)
	require.Equal(t, int32(1), f.calls.Load())

	// Inside the TTL window the fetch is skipped entirely.
	agg.WarmCategory(context.Background(), "art", false)
	require.Equal(t, int32(1), f.calls.Load())

	// force bypasses the window.
	agg.WarmCategory(context.Background(), "art", true)
	require.Equal(t, int32(2), f.calls.Load())
}

func TestWarmCategorySkipsNamelessRecords(t *testing.T) {
	store := cache.NewStore()
	agg := NewAggregator(store, time.Hour, nil,
		&stubFetcher{source: model.SourceBrussels, events: []model.Event{
			{Name: "Valide"},
			{Name: "   "},
		}},
	)

	agg.WarmCategory(context.Background(), "art", false)
	require.Equal(t, 1, store.Len())
}

func TestWarmCategoryRefetchReplacesRecord(t *testing.T) {
	store := cache.NewStore()
	f := &stubFetcher{source: model.SourceBrussels, events: []model.Event{
		{Name: "Expo", Description: "ancienne"},
	}}
	agg := NewAggregator(store, time.Hour, nil, f)

	agg.WarmCategory(context.Background(), "art", false)

	f.events = []model.Event{{Name: "Expo", Description: "nouvelle"}}
	agg.WarmCategory(context.Background(), "art", true)

	require.Equal(t, 1, store.Len())
	ev, ok := store.FindByName("Expo", false)
	require.True(t, ok)
	require.Equal(t, "nouvelle", ev.Description)
}

func TestRouteCategory(t *testing.T) {
	require.Equal(t, "concert", routeCategory("music", model.SourceBrussels))
	require.Equal(t, "Music", routeCategory("music", model.SourceTicketmaster))
	require.Equal(t, "music", routeCategory("music", model.SourceEventbrite))
	// Unknown categories pass through for the adapters' own fallbacks.
	require.Equal(t, "astronomie", routeCategory("astronomie", model.SourceBrussels))
}
