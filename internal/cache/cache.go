package cache

import (
	"sort"
	"strings"
	"sync"
	"time"

	"eventscout/internal/model"
)

// Store is the process-lifetime event cache shared by the fetch adapters,
// the minimal/full views and the API layer.
//
// It holds the full enriched record per event but is meant to be read
// through two projections: a token-frugal minimal view for language-model
// selection and the complete record for final rendering. Lookup by ID is
// the normal path; FindByName exists to reconcile free-text model output
// with canonical records.
//
// Adapters run concurrently when warming a category, so all access goes
// through an RWMutex. There is no eviction by count; freshness is tracked
// per source (IsStale) and refresh replaces records wholesale.
type Store struct {
	mu sync.RWMutex

	events      map[string]model.Event
	lastRefresh map[model.Source]time.Time

	// fuzzyPrefixChars is the shared-prefix length used by the lookup
	// fallback for titles truncated upstream.
	fuzzyPrefixChars int

	// now is swappable for staleness tests.
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithFuzzyPrefixChars overrides the prefix length of the name-lookup
// fallback (default 30).
func WithFuzzyPrefixChars(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.fuzzyPrefixChars = n
		}
	}
}

// WithClock replaces the time source. Tests use this to drive staleness.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		events:           make(map[string]model.Event),
		lastRefresh:      make(map[model.Source]time.Time),
		fuzzyPrefixChars: 30,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add inserts an event under its content-derived ID and returns that ID.
//
// The record is stored fully populated: Source, ID and CachedAt are
// injected here so adapters only map provider fields. Inserting the same
// (source, name) twice overwrites in place, so refetches of the same
// logical event replace the cached copy.
func (s *Store) Add(ev model.Event, source model.Source) string {
	id := ComputeID(source, ev.Name)

	ev.ID = id
	ev.Source = source
	ev.CachedAt = s.now()

	s.mu.Lock()
	s.events[id] = ev
	s.mu.Unlock()

	return id
}

// Get returns the full record for an ID. A miss is a normal outcome, not an
// error: callers substitute a placeholder.
func (s *Store) Get(id string) (model.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	return ev, ok
}

// BySource returns all records tagged with the given source, ordered by ID
// so results are stable within a process run.
func (s *Store) BySource(source model.Source) []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Event, 0)
	for _, ev := range s.events {
		if ev.Source == source {
			out = append(out, ev)
		}
	}
	sortByID(out)
	return out
}

// All returns every cached record, ordered by ID.
func (s *Store) All() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev)
	}
	sortByID(out)
	return out
}

// Len returns the number of cached records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// FindByName resolves a free-text title back to a canonical record.
//
// Exact match (case-folded, trimmed) is checked first across all records;
// only then do the fuzzy fallbacks run. This ordering is a correctness
// requirement: an exact candidate must never lose to a fuzzy one.
//
// The fuzzy strategies are shaped to the truncation the minimal view
// performs, not general-purpose matching:
//  1. substring containment in either direction (truncated titles)
//  2. equal prefix over the first fuzzyPrefixChars characters (titles cut
//     at a fixed budget upstream)
//
// No match returns ok=false; callers must treat that as "could not resolve"
// and must not invent a record.
func (s *Store) FindByName(name string, fuzzy bool) (model.Event, bool) {
	query := strings.ToLower(strings.TrimSpace(name))
	if query == "" {
		return model.Event{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Stable candidate order keeps fuzzy results reproducible.
	ids := make([]string, 0, len(s.events))
	for id := range s.events {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		ev := s.events[id]
		if strings.ToLower(strings.TrimSpace(ev.Name)) == query {
			return ev, true
		}
	}

	if !fuzzy {
		return model.Event{}, false
	}

	for _, id := range ids {
		ev := s.events[id]
		candidate := strings.ToLower(ev.Name)
		if strings.Contains(candidate, query) || strings.Contains(query, candidate) {
			return ev, true
		}
		if prefixOf(query, s.fuzzyPrefixChars) == prefixOf(candidate, s.fuzzyPrefixChars) {
			return ev, true
		}
	}

	return model.Event{}, false
}

// Clear removes all records, or only those from one source when source is
// non-empty. Clearing a source also forgets its refresh timestamp so the
// next warm refetches it.
func (s *Store) Clear(source model.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if source == "" {
		s.events = make(map[string]model.Event)
		s.lastRefresh = make(map[model.Source]time.Time)
		return
	}

	for id, ev := range s.events {
		if ev.Source == source {
			delete(s.events, id)
		}
	}
	delete(s.lastRefresh, source)
}

// MarkRefreshed records that a source's data was just (re)fetched.
func (s *Store) MarkRefreshed(source model.Source) {
	s.mu.Lock()
	s.lastRefresh[source] = s.now()
	s.mu.Unlock()
}

// IsStale reports whether a source's data is older than ttl (or was never
// fetched). The aggregator uses this to skip redundant upstream fetches
// inside the TTL window.
func (s *Store) IsStale(source model.Source, ttl time.Duration) bool {
	s.mu.RLock()
	last, ok := s.lastRefresh[source]
	s.mu.RUnlock()

	if !ok {
		return true
	}
	return s.now().Sub(last) >= ttl
}

// Stats describes the cache contents for diagnostics.
type Stats struct {
	TotalEvents      int                  `json:"total_events"`
	BySource         map[model.Source]int `json:"by_source"`
	MemoryEstimateKB float64              `json:"memory_estimate_kb"`
}

// Stats returns cache statistics. The memory figure is a rough estimate of
// the stored string payloads, not an allocation measurement.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		TotalEvents: len(s.events),
		BySource:    make(map[model.Source]int),
	}

	var bytes int
	for _, ev := range s.events {
		st.BySource[ev.Source]++
		bytes += len(ev.ID) + len(ev.Source) + len(ev.Name) + len(ev.Date) +
			len(ev.Venue) + len(ev.Address) + len(ev.Price) + len(ev.URL) +
			len(ev.Description)
	}
	st.MemoryEstimateKB = float64(bytes) / 1024

	return st
}

func sortByID(events []model.Event) {
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
}

// prefixOf returns the first n characters of s, or s itself if shorter.
// Operates on runes so multi-byte titles do not split mid-character.
func prefixOf(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
