package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"eventscout/internal/model"
)

const brusselsPayload = `{
  "response": {"results": {"event": [
    {
      "date_start": "2026-03-01T20:00:00",
      "is_free": true,
      "translations": {"fr": {
        "name": "Concert au Botanique",
        "shortdescr": "Un concert.",
        "agenda_url": "https://agenda.brussels/x"
      }},
      "place": {"translations": {"fr": {
        "name": "Botanique",
        "address_line1": "Rue Royale 236",
        "address_zip": "1210",
        "address_city": "Bruxelles"
      }}}
    },
    {
      "date_start": "2026-03-02",
      "translations": {"nl": {"name": "Zonder frans"}}
    }
  ]}}
}`

func TestBrusselsFetchMapsRecords(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(brusselsPayload))
	}))
	defer srv.Close()

	b := &Brussels{BaseURL: srv.URL, Token: "tok", client: srv.Client()}

	events, err := b.Fetch(context.Background(), "music")
	require.NoError(t, err)

	// The record without a French translation block is skipped, not fatal.
	require.Len(t, events, 1)

	ev := events[0]
	require.Equal(t, "Concert au Botanique", ev.Name)
	require.Equal(t, "2026-03-01T20:00:00", ev.Date)
	require.Equal(t, "Botanique", ev.Venue)
	require.Equal(t, "Rue Royale 236, 1210 Bruxelles", ev.Address)
	require.Equal(t, "Gratuit", ev.Price)
	require.Equal(t, "https://agenda.brussels/x", ev.URL)

	require.Equal(t, "Bearer tok", gotAuth)
	// "music" is not a Brussels category name; the adapter routes it via
	// substring scan or the various bucket; either way a code is sent.
	require.Contains(t, gotPath, "mainCategory=")
}

func TestBrusselsMissingTokenIsAuthError(t *testing.T) {
	b := &Brussels{BaseURL: "http://unused", Token: "", client: newHTTPClient()}

	_, err := b.Fetch(context.Background(), "concert")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, ErrAuth, fe.Kind)
	require.Equal(t, model.SourceBrussels, fe.Source)
}

func TestBrusselsMalformedJSONIsDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	b := &Brussels{BaseURL: srv.URL, Token: "tok", client: srv.Client()}

	_, err := b.Fetch(context.Background(), "concert")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, ErrDecode, fe.Kind)
}

func TestBrusselsServerErrorIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	b := &Brussels{BaseURL: srv.URL, Token: "tok", client: srv.Client()}

	_, err := b.Fetch(context.Background(), "concert")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, ErrStatus, fe.Kind)
}

func TestBrusselsCategoryRouting(t *testing.T) {
	require.Equal(t, 1, brusselsCategory("concert"))
	require.Equal(t, 74, brusselsCategory("Sport"))
	require.Equal(t, 13, brusselsCategory("exhibition"))
	require.Equal(t, 14, brusselsCategory("theatre"))
	// Substring scan catches phrases.
	require.Equal(t, 14, brusselsCategory("pièces de theatre"))
	// Unknown falls back to the default code.
	require.Equal(t, 74, brusselsCategory("astronomie"))
}

const ticketmasterPayload = `{
  "_embedded": {"events": [
    {
      "name": "Stromae",
      "url": "https://tm.example/stromae",
      "dates": {"start": {"dateTime": "2026-04-01T19:00:00Z"}},
      "priceRanges": [{"min": 45, "max": 90, "currency": "EUR"}],
      "_embedded": {"venues": [{
        "name": "Forest National",
        "address": {"line1": "Avenue Victor Rousseau 208"},
        "city": {"name": "Bruxelles"}
      }]}
    },
    {
      "name": "",
      "dates": {"start": {"localDate": "2026-04-02"}}
    },
    {
      "name": "Match local",
      "dates": {"start": {"localDate": "2026-04-03", "localTime": "18:30:00"}}
    }
  ]}
}`

func TestTicketmasterFetchMapsRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "key", r.URL.Query().Get("apikey"))
		require.Equal(t, "BE", r.URL.Query().Get("countryCode"))
		require.Equal(t, "Sports", r.URL.Query().Get("classificationName"))
		_, _ = w.Write([]byte(ticketmasterPayload))
	}))
	defer srv.Close()

	tm := &Ticketmaster{
		BaseURL: srv.URL, APIKey: "key",
		CountryCode: "BE", City: "Brussels", PageSize: 25,
		client: srv.Client(),
	}

	events, err := tm.Fetch(context.Background(), "Sports")
	require.NoError(t, err)

	// Nameless record skipped.
	require.Len(t, events, 2)

	require.Equal(t, "Stromae", events[0].Name)
	require.Equal(t, "2026-04-01T19:00:00Z", events[0].Date)
	require.Equal(t, "Forest National", events[0].Venue)
	require.Equal(t, "Avenue Victor Rousseau 208, Bruxelles", events[0].Address)
	require.Equal(t, "45.00–90.00 EUR", events[0].Price)

	// localDate+localTime fallback drops seconds.
	require.Equal(t, "2026-04-03 18:30", events[1].Date)
}

func TestTicketmasterMissingKeyIsAuthError(t *testing.T) {
	tm := &Ticketmaster{BaseURL: "http://unused", client: newHTTPClient()}

	_, err := tm.Fetch(context.Background(), "Music")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, ErrAuth, fe.Kind)
	require.Equal(t, model.SourceTicketmaster, fe.Source)
}

const eventbritePayload = `{
  "events": [
    {
      "name": {"text": "Atelier sérigraphie"},
      "start": {"local": "2026-05-01T18:00:00"},
      "url": "https://eb.example/1",
      "is_free": false,
      "description": {"text": "Atelier créatif.\nMatériel fourni."},
      "venue": {
        "name": "Halles Saint-Géry",
        "address": {"localized_address_display": "Place Saint-Géry 1, Bruxelles"}
      }
    },
    {"name": {"text": ""}, "start": {"local": "2026-05-02T10:00:00"}}
  ]
}`

func TestEventbriteFetchMapsRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "live", r.URL.Query().Get("status"))
		require.Equal(t, "venue", r.URL.Query().Get("expand"))
		_, _ = w.Write([]byte(eventbritePayload))
	}))
	defer srv.Close()

	eb := &Eventbrite{BaseURL: srv.URL, Token: "tok", VenueIDs: []string{"123"}, client: srv.Client()}

	events, err := eb.Fetch(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	require.Equal(t, "Atelier sérigraphie", ev.Name)
	require.Equal(t, "2026-05-01 18:00", ev.Date)
	require.Equal(t, "Halles Saint-Géry", ev.Venue)
	require.Equal(t, "Payant/Sur réservation", ev.Price)
	require.Equal(t, "Atelier créatif. Matériel fourni.", ev.Description)
}

func TestEventbritePartialVenueFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(eventbritePayload))
	}))
	defer srv.Close()

	eb := &Eventbrite{BaseURL: srv.URL, Token: "tok", VenueIDs: []string{"bad", "good"}, client: srv.Client()}

	// One failing venue must not sink the other.
	events, err := eb.Fetch(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestEventbriteAllVenuesFailing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	eb := &Eventbrite{BaseURL: srv.URL, Token: "tok", VenueIDs: []string{"a", "b"}, client: srv.Client()}

	_, err := eb.Fetch(context.Background(), "")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, ErrStatus, fe.Kind)
}

func TestEventbriteRejectedTokenStopsEarly(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	eb := &Eventbrite{BaseURL: srv.URL, Token: "bad", VenueIDs: []string{"a", "b", "c"}, client: srv.Client()}

	_, err := eb.Fetch(context.Background(), "")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, ErrAuth, fe.Kind)
	require.Equal(t, 1, calls)
}
