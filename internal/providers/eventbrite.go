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

const defaultEventbriteBaseURL = "https://www.eventbriteapi.com/v3"

// Eventbrite fetches live events for a fixed list of community venues.
// The venue API has no category parameter; category filtering for this
// source happens downstream in the minimal view's scorer.
type Eventbrite struct {
	BaseURL  string
	Token    string
	VenueIDs []string

	client *http.Client
}

// NewEventbrite constructs the adapter with the private token taken from
// the environment.
func NewEventbrite(venueIDs []string) *Eventbrite {
	return &Eventbrite{
		BaseURL:  defaultEventbriteBaseURL,
		Token:    envToken(EnvEventbriteToken),
		VenueIDs: venueIDs,
		client:   newHTTPClient(),
	}
}

func (e *Eventbrite) Source() model.Source { return model.SourceEventbrite }

type eventbriteResponse struct {
	Events []eventbriteEvent `json:"events"`
}

type eventbriteEvent struct {
	Name struct {
		Text string `json:"text"`
	} `json:"name"`
	Start struct {
		Local string `json:"local"`
	} `json:"start"`
	URL         string `json:"url"`
	IsFree      bool   `json:"is_free"`
	Description struct {
		Text string `json:"text"`
	} `json:"description"`
	Venue struct {
		Name    string `json:"name"`
		Address struct {
			LocalizedAddressDisplay string `json:"localized_address_display"`
		} `json:"address"`
	} `json:"venue"`
}

// Fetch polls every configured venue. A venue page that fails mid-run is
// logged and skipped so one bad venue does not sink the rest; only a
// failure of every venue (or auth/decode on the first reachable one)
// surfaces as a FetchError. The category argument is ignored, see the type
// comment.
func (e *Eventbrite) Fetch(ctx context.Context, _ string) ([]model.Event, error) {
	if e.Token == "" {
		return nil, newFetchError(e.Source(), ErrAuth, errors.New("missing "+EnvEventbriteToken))
	}
	if len(e.VenueIDs) == 0 {
		return []model.Event{}, nil
	}

	all := make([]model.Event, 0)
	var lastErr error
	failed := 0

	for _, venueID := range e.VenueIDs {
		events, err := e.fetchVenue(ctx, venueID)
		if err != nil {
			var fe *FetchError
			if errors.As(err, &fe) && fe.Kind == ErrAuth {
				// Rejected credentials will fail every venue; stop early.
				return nil, err
			}
			appLog.Warn("eventbrite: venue fetch failed", "venue_id", venueID, "err", err)
			lastErr = err
			failed++
			continue
		}
		all = append(all, events...)
	}

	if failed == len(e.VenueIDs) {
		return nil, lastErr
	}

	return all, nil
}

func (e *Eventbrite) fetchVenue(ctx context.Context, venueID string) ([]model.Event, error) {
	params := url.Values{
		"status":   {"live"},
		"order_by": {"start_asc"},
		"expand":   {"venue"},
	}

	u := fmt.Sprintf("%s/venues/%s/events/?%s", e.BaseURL, venueID, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, newFetchError(e.Source(), ErrNetwork, err)
	}
	req.Header.Set("Authorization", "Bearer "+e.Token)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, newFetchError(e.Source(), ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, newFetchError(e.Source(), ErrAuth, errors.New(resp.Status))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newFetchError(e.Source(), ErrStatus, errors.New(resp.Status))
	}

	var payload eventbriteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, newFetchError(e.Source(), ErrDecode, err)
	}

	events := make([]model.Event, 0, len(payload.Events))
	for _, raw := range payload.Events {
		ev, ok := mapEventbriteEvent(raw)
		if !ok {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func mapEventbriteEvent(raw eventbriteEvent) (model.Event, bool) {
	if strings.TrimSpace(raw.Name.Text) == "" {
		return model.Event{}, false
	}

	// "2026-03-01T20:00:00" -> "2026-03-01 20:00"
	date := strings.Replace(raw.Start.Local, "T", " ", 1)
	if len(date) == 19 {
		date = date[:16]
	}

	price := "Payant/Sur réservation"
	if raw.IsFree {
		price = "Gratuit"
	}

	return model.Event{
		Name:        raw.Name.Text,
		Date:        date,
		Venue:       raw.Venue.Name,
		Address:     raw.Venue.Address.LocalizedAddressDisplay,
		Price:       price,
		URL:         raw.URL,
		Description: flattenText(raw.Description.Text, 500),
	}, true
}
