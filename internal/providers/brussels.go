package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	appLog "eventscout/internal/log"
	"eventscout/internal/model"
)

const defaultBrusselsBaseURL = "https://api.brussels:443/api/agenda/0.0.1"

// brusselsCategoryCodes maps category names onto the agenda API's
// mainCategory classification codes. Adapter-local data: the cache contract
// never sees these codes.
var brusselsCategoryCodes = map[string]int{
	"concert":    1,
	"show":       12,
	"dance":      12,
	"exhibition": 13,
	"theatre":    14,
	"clubbing":   57,
	"cinema":     58,
	"sport":      74,
}

// brusselsDefaultCategory is used when no category name matches.
const brusselsDefaultCategory = 74

// Brussels fetches the municipal agenda API (agenda.brussels). Responses
// are translated records; the French block is preferred since the agenda's
// other translations are frequently empty.
type Brussels struct {
	BaseURL string
	Token   string

	client *http.Client
}

// NewBrussels constructs the adapter with the bearer token taken from the
// environment.
func NewBrussels() *Brussels {
	return &Brussels{
		BaseURL: defaultBrusselsBaseURL,
		Token:   envToken(EnvBrusselsToken),
		client:  newHTTPClient(),
	}
}

func (b *Brussels) Source() model.Source { return model.SourceBrussels }

// brusselsResponse mirrors the slice of the agenda payload we consume.
type brusselsResponse struct {
	Response struct {
		Results struct {
			Event []brusselsEvent `json:"event"`
		} `json:"results"`
	} `json:"response"`
}

type brusselsEvent struct {
	DateStart    string                         `json:"date_start"`
	DateEnd      string                         `json:"date_end"`
	IsFree       bool                           `json:"is_free"`
	Translations map[string]brusselsTranslation `json:"translations"`
	Place        struct {
		Translations map[string]brusselsPlaceInfo `json:"translations"`
	} `json:"place"`
}

type brusselsTranslation struct {
	Name       string `json:"name"`
	ShortDescr string `json:"shortdescr"`
	LongDescr  string `json:"longdescr"`
	AgendaURL  string `json:"agenda_url"`
	Website    string `json:"website"`
}

type brusselsPlaceInfo struct {
	Name         string `json:"name"`
	AddressLine1 string `json:"address_line1"`
	AddressZip   string `json:"address_zip"`
	AddressCity  string `json:"address_city"`
	Website      string `json:"website"`
}

// Fetch retrieves one category page and maps it onto canonical events.
// Records without a French name are skipped, not fatal.
func (b *Brussels) Fetch(ctx context.Context, category string) ([]model.Event, error) {
	if b.Token == "" {
		return nil, newFetchError(b.Source(), ErrAuth, errors.New("missing "+EnvBrusselsToken))
	}

	code := brusselsCategory(category)

	u := fmt.Sprintf("%s/events/category?%s", b.BaseURL, url.Values{
		"mainCategory": {fmt.Sprint(code)},
		"page":         {"1"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, newFetchError(b.Source(), ErrNetwork, err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.Token)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, newFetchError(b.Source(), ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, newFetchError(b.Source(), ErrAuth, errors.New(resp.Status))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newFetchError(b.Source(), ErrStatus, errors.New(resp.Status))
	}

	var payload brusselsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, newFetchError(b.Source(), ErrDecode, err)
	}

	events := make([]model.Event, 0, len(payload.Response.Results.Event))
	skipped := 0
	for _, raw := range payload.Response.Results.Event {
		ev, ok := mapBrusselsEvent(raw)
		if !ok {
			skipped++
			continue
		}
		events = append(events, ev)
	}

	if skipped > 0 {
		appLog.Warn("brussels: skipped records without usable name", "skipped", skipped, "category_code", code)
	}

	return events, nil
}

func mapBrusselsEvent(raw brusselsEvent) (model.Event, bool) {
	fr, ok := raw.Translations["fr"]
	if !ok || strings.TrimSpace(fr.Name) == "" {
		return model.Event{}, false
	}

	placeFr := raw.Place.Translations["fr"]

	price := "Payant"
	if raw.IsFree {
		price = "Gratuit"
	}

	address := placeFr.AddressLine1
	if placeFr.AddressZip != "" || placeFr.AddressCity != "" {
		address = strings.TrimSpace(fmt.Sprintf("%s, %s %s", placeFr.AddressLine1, placeFr.AddressZip, placeFr.AddressCity))
	}

	desc := fr.LongDescr
	if desc == "" {
		desc = fr.ShortDescr
	}
	desc = flattenText(desc, 200)

	link := fr.AgendaURL
	if link == "" {
		link = fr.Website
	}
	if link == "" {
		link = placeFr.Website
	}

	return model.Event{
		Name:        fr.Name,
		Date:        raw.DateStart,
		Venue:       placeFr.Name,
		Address:     address,
		Price:       price,
		URL:         link,
		Description: desc,
	}, true
}

// brusselsCategory resolves a free-text category onto an agenda code:
// exact table hit first, then substring scan, then the "various" bucket.
func brusselsCategory(category string) int {
	cat := strings.ToLower(strings.TrimSpace(category))
	if code, ok := brusselsCategoryCodes[cat]; ok {
		return code
	}
	for name, code := range brusselsCategoryCodes {
		if strings.Contains(cat, name) {
			return code
		}
	}
	return brusselsDefaultCategory
}

// flattenText collapses newlines and caps the text at max runes.
func flattenText(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) > max {
		return string(r[:max])
	}
	return s
}
