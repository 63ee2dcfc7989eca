package view

import (
	"fmt"
	"strings"

	"eventscout/internal/cache"
)

// Display placeholders. The downstream renderer keys off fixed per-field
// markers and expects every field present, so absent data degrades to these
// strings instead of disappearing.
const (
	PlaceholderDate        = "Date inconnue"
	PlaceholderVenue       = "Lieu non précisé"
	PlaceholderPrice       = "Prix non précisé"
	PlaceholderURL         = "Lien non disponible"
	PlaceholderDescription = "Pas de description disponible"
	PlaceholderNotFound    = "Événement introuvable"
)

// maxDetailDescription caps the description carried into a display block.
const maxDetailDescription = 300

// Detail is one display-ready event slot. Every field is populated, with a
// placeholder if need be, and Found distinguishes a resolved record from a
// "not found" slot that keeps output cardinality aligned with the request.
type Detail struct {
	ID          string `json:"id"`
	Found       bool   `json:"found"`
	Name        string `json:"name"`
	Date        string `json:"date"`
	Location    string `json:"location"`
	Price       string `json:"price"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// FullDetails resolves ids against the cache, in input order. Unknown ids
// produce a placeholder slot rather than being skipped, so a caller asking
// for 5 ids always renders 5 numbered blocks.
func FullDetails(store *cache.Store, ids []string) []Detail {
	out := make([]Detail, 0, len(ids))

	for _, rawID := range ids {
		id := strings.TrimSpace(rawID)

		ev, ok := store.Get(id)
		if !ok {
			out = append(out, Detail{
				ID:          id,
				Found:       false,
				Name:        PlaceholderNotFound,
				Date:        PlaceholderDate,
				Location:    PlaceholderVenue,
				Price:       PlaceholderPrice,
				URL:         PlaceholderURL,
				Description: PlaceholderDescription,
			})
			continue
		}

		d := Detail{
			ID:    id,
			Found: true,
			Name:  ev.Name,
			Date:  displayDate(ev.Date),
		}

		venue := ev.Venue
		if venue == "" {
			venue = PlaceholderVenue
		}
		if addr := strings.TrimSpace(ev.Address); addr != "" {
			d.Location = venue + " - " + addr
		} else {
			d.Location = venue
		}

		d.Price = ev.Price
		if d.Price == "" {
			d.Price = PlaceholderPrice
		}

		d.URL = displayURL(ev.URL)

		desc := strings.TrimSpace(flattenWhitespace(ev.Description))
		if desc == "" {
			desc = PlaceholderDescription
		}
		d.Description = truncate(desc, maxDetailDescription)

		out = append(out, d)
	}

	return out
}

// FormatDetails renders details into the fixed-marker text blocks the
// rendering layer parses: a numbered title line, then 📅/📍/💰/🔗 lines,
// then a "Description:" line. The line prefixes are a stable interface;
// renderers key off them even though this is "just text".
func FormatDetails(details []Detail) string {
	blocks := make([]string, 0, len(details))

	for i, d := range details {
		blocks = append(blocks, fmt.Sprintf(
			"%d. **%s**\n📅 %s\n📍 %s\n💰 %s\n🔗 %s\nDescription: %s",
			i+1, d.Name, d.Date, d.Location, d.Price, d.URL, d.Description,
		))
	}

	return strings.Join(blocks, "\n\n")
}

// displayDate reformats machine timestamps ("2026-03-01T20:00:00+01:00")
// into a reader-facing form ("2026-03-01 à 20:00:00"); dates already in
// display form pass through unchanged.
func displayDate(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return PlaceholderDate
	}
	if !strings.Contains(date, "T") {
		return date
	}

	date = strings.Replace(date, "T", " à ", 1)
	if i := strings.IndexAny(date, "+."); i >= 0 {
		date = date[:i]
	}
	return strings.TrimSuffix(date, "Z")
}

// displayURL defaults the scheme and substitutes the placeholder for empty
// links.
func displayURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return PlaceholderURL
	}
	if !strings.HasPrefix(u, "http") {
		return "https://" + u
	}
	return u
}

func flattenWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}
