// Package view renders the cache's two projections: the token-frugal
// minimal listing a language model selects from, and the complete display
// blocks the rendering layer consumes.
package view

import (
	"strings"

	"eventscout/internal/cache"
	"eventscout/internal/match"
	"eventscout/internal/model"
)

// MinimalOptions controls the minimal projection.
type MinimalOptions struct {
	// Source restricts the listing to one provider; empty means all.
	Source model.Source
	// Limit caps the number of lines (default 50).
	Limit int
	// Category, when set, filters candidates through the affinity scorer.
	Category string
	// Threshold is the scorer cutoff (default 0.15, permissive).
	Threshold float64

	// Per-field character caps. The defaults (80/16/100) bound worst-case
	// per-line token cost for a fixed prompt budget.
	NameChars int
	DateChars int
	DescChars int
}

func (o *MinimalOptions) normalize() {
	if o.Limit <= 0 {
		o.Limit = 50
	}
	if o.Threshold <= 0 {
		o.Threshold = 0.15
	}
	if o.NameChars <= 0 {
		o.NameChars = 80
	}
	if o.DateChars <= 0 {
		o.DateChars = 16
	}
	if o.DescChars <= 0 {
		o.DescChars = 100
	}
}

// Minimal renders one line per candidate event:
//
//	[id] name | date | short description
//
// Full descriptions, addresses, prices and URLs are withheld here; the
// full record comes later via FullDetails once a candidate is chosen.
//
// The empty case returns an empty string, never an error: an empty listing
// is the unambiguous "no events" signal for the caller.
func Minimal(store *cache.Store, opts MinimalOptions) string {
	opts.normalize()

	var candidates []model.Event
	if opts.Source != "" {
		candidates = store.BySource(opts.Source)
	} else {
		candidates = store.All()
	}

	candidates = match.Filter(candidates, opts.Category, opts.Threshold)

	var b strings.Builder
	count := 0
	for _, ev := range candidates {
		if count >= opts.Limit {
			break
		}

		name := ev.Name
		if name == "" {
			name = "Unknown"
		}
		date := ev.Date
		if date == "" {
			date = "Date inconnue"
		}
		desc := strings.ReplaceAll(ev.Description, "\n", " ")

		if count > 0 {
			b.WriteString("\n")
		}
		b.WriteString("[" + ev.ID + "] " +
			truncate(name, opts.NameChars) + " | " +
			truncate(date, opts.DateChars) + " | " +
			truncate(desc, opts.DescChars))
		count++
	}

	return b.String()
}

// truncate caps s at max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
