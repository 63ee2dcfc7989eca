package model

import "time"

// Source identifies one of the upstream event providers. The set is closed:
// adapters, category maps and per-source TTL bookkeeping all key off these
// exact values.
type Source string

const (
	// SourceBrussels is the municipal agenda API (agenda.brussels).
	SourceBrussels Source = "brussels"
	// SourceTicketmaster is the Ticketmaster Discovery API.
	SourceTicketmaster Source = "ticketmaster"
	// SourceEventbrite is the Eventbrite venue events API.
	SourceEventbrite Source = "eventbrite"
)

// KnownSources returns the closed provider set, in a fixed order.
func KnownSources() []Source {
	return []Source{SourceBrussels, SourceTicketmaster, SourceEventbrite}
}

// ValidSource reports whether s is one of the enumerated providers.
func ValidSource(s Source) bool {
	switch s {
	case SourceBrussels, SourceTicketmaster, SourceEventbrite:
		return true
	}
	return false
}

// Event is the canonical, source-agnostic event record. Adapters map each
// provider's JSON shape into this struct; the cache and both views operate
// only on it.
//
// Optional fields (Venue, Address, Price, URL, Description) may be empty
// here; the full-view formatter substitutes display placeholders so the
// rendering layer always sees every field. Date stays in whatever textual
// form the provider used; there is no cross-provider date normalization.
type Event struct {
	// ID is the stable content-derived identifier, assigned by the cache
	// on insert. Derived from (Source, Name) only.
	ID string

	// Source tags which provider the record came from.
	Source Source

	// Name is the display title. Required; adapters skip records without it.
	Name string

	// Date is the provider-native textual date/time.
	Date string

	Venue       string
	Address     string
	Price       string
	URL         string
	Description string

	// CachedAt is the insertion timestamp, set by the cache.
	CachedAt time.Time
}
