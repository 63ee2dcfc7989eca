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

const defaultTicketmasterBaseURL = "https://app.ticketmaster.com/discovery/v2"

// Ticketmaster fetches the Discovery API scoped to one country/city.
type Ticketmaster struct {
	BaseURL     string
	APIKey      string
	CountryCode string
	City        string
	PageSize    int

	client *http.Client
}

// NewTicketmaster constructs the adapter with the API key taken from the
// environment.
func NewTicketmaster(countryCode, city string) *Ticketmaster {
	return &Ticketmaster{
		BaseURL:     defaultTicketmasterBaseURL,
		APIKey:      envToken(EnvTicketmasterKey),
		CountryCode: countryCode,
		City:        city,
		PageSize:    25,
		client:      newHTTPClient(),
	}
}

func (t *Ticketmaster) Source() model.Source { return model.SourceTicketmaster }

type ticketmasterResponse struct {
	Embedded struct {
		Events []ticketmasterEvent `json:"events"`
	} `json:"_embedded"`
}

type ticketmasterEvent struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Dates struct {
		Start struct {
			DateTime  string `json:"dateTime"`
			LocalDate string `json:"localDate"`
			LocalTime string `json:"localTime"`
		} `json:"start"`
	} `json:"dates"`
	PriceRanges []struct {
		Min      float64 `json:"min"`
		Max      float64 `json:"max"`
		Currency string  `json:"currency"`
	} `json:"priceRanges"`
	Embedded struct {
		Venues []struct {
			Name    string `json:"name"`
			Address struct {
				Line1 string `json:"line1"`
			} `json:"address"`
			City struct {
				Name string `json:"name"`
			} `json:"city"`
		} `json:"venues"`
	} `json:"_embedded"`
}

// Fetch retrieves the first Discovery page for a classification and maps it
// onto canonical events. Records without a name are skipped.
func (t *Ticketmaster) Fetch(ctx context.Context, category string) ([]model.Event, error) {
	if t.APIKey == "" {
		return nil, newFetchError(t.Source(), ErrAuth, errors.New("missing "+EnvTicketmasterKey))
	}

	params := url.Values{
		"apikey":             {t.APIKey},
		"countryCode":        {t.CountryCode},
		"city":               {t.City},
		"size":               {fmt.Sprint(t.PageSize)},
		"sort":               {"date,asc"},
		"classificationName": {category},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		t.BaseURL+"/events.json?"+params.Encode(), nil)
	if err != nil {
		return nil, newFetchError(t.Source(), ErrNetwork, err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, newFetchError(t.Source(), ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, newFetchError(t.Source(), ErrAuth, errors.New(resp.Status))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newFetchError(t.Source(), ErrStatus, errors.New(resp.Status))
	}

	var payload ticketmasterResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, newFetchError(t.Source(), ErrDecode, err)
	}

	events := make([]model.Event, 0, len(payload.Embedded.Events))
	skipped := 0
	for _, raw := range payload.Embedded.Events {
		ev, ok := mapTicketmasterEvent(raw)
		if !ok {
			skipped++
			continue
		}
		events = append(events, ev)
	}

	if skipped > 0 {
		appLog.Warn("ticketmaster: skipped records without name", "skipped", skipped, "classification", category)
	}

	return events, nil
}

func mapTicketmasterEvent(raw ticketmasterEvent) (model.Event, bool) {
	if strings.TrimSpace(raw.Name) == "" {
		return model.Event{}, false
	}

	// Prefer the zoned timestamp; fall back to local date (+time without
	// seconds), the way the venue displays it.
	date := raw.Dates.Start.DateTime
	if date == "" {
		date = raw.Dates.Start.LocalDate
		if lt := raw.Dates.Start.LocalTime; len(lt) >= 5 {
			date += " " + lt[:5]
		}
	}

	var venue, address string
	if len(raw.Embedded.Venues) > 0 {
		v := raw.Embedded.Venues[0]
		venue = v.Name
		address = v.Address.Line1
		if address != "" && v.City.Name != "" {
			address += ", " + v.City.Name
		}
	}

	price := ""
	if len(raw.PriceRanges) > 0 {
		pr := raw.PriceRanges[0]
		currency := pr.Currency
		if currency == "" {
			currency = "EUR"
		}
		switch {
		case pr.Min == 0 && pr.Max == 0:
			price = "Gratuit"
		case pr.Max > pr.Min:
			price = fmt.Sprintf("%.2f–%.2f %s", pr.Min, pr.Max, currency)
		default:
			price = fmt.Sprintf("%.2f %s", pr.Min, currency)
		}
	}

	return model.Event{
		Name:    raw.Name,
		Date:    date,
		Venue:   venue,
		Address: address,
		Price:   price,
		URL:     raw.URL,
	}, true
}
