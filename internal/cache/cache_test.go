package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"eventscout/internal/model"
)

func TestComputeIDDeterministic(t *testing.T) {
	a := ComputeID(model.SourceBrussels, "Jazz Night")
	b := ComputeID(model.SourceBrussels, "Jazz Night")
	require.Equal(t, a, b)
	require.Len(t, a, 12)
}

func TestComputeIDCaseFolded(t *testing.T) {
	a := ComputeID(model.SourceBrussels, "Jazz Night")
	b := ComputeID(model.SourceBrussels, "JAZZ NIGHT")
	require.Equal(t, a, b)
}

func TestComputeIDSourceIsPartOfIdentity(t *testing.T) {
	// Same title on two providers must not collapse into one record.
	a := ComputeID(model.SourceTicketmaster, "Concert A")
	b := ComputeID(model.SourceBrussels, "Concert A")
	require.NotEqual(t, a, b)
}

func TestAddIsIdempotentLastWriteWins(t *testing.T) {
	s := NewStore()

	id1 := s.Add(model.Event{Name: "Concert A", Description: "first"}, model.SourceBrussels)
	id2 := s.Add(model.Event{Name: "Concert A", Description: "updated"}, model.SourceBrussels)

	require.Equal(t, id1, id2)
	require.Equal(t, 1, s.Len())

	ev, ok := s.Get(id1)
	require.True(t, ok)
	require.Equal(t, "updated", ev.Description)
	require.Equal(t, model.SourceBrussels, ev.Source)
	require.False(t, ev.CachedAt.IsZero())
}

func TestBySourceIsolation(t *testing.T) {
	s := NewStore()
	s.Add(model.Event{Name: "Concert A"}, model.SourceTicketmaster)
	s.Add(model.Event{Name: "Concert A"}, model.SourceBrussels)
	s.Add(model.Event{Name: "Expo B"}, model.SourceBrussels)

	tm := s.BySource(model.SourceTicketmaster)
	require.Len(t, tm, 1)
	require.Equal(t, model.SourceTicketmaster, tm[0].Source)

	bru := s.BySource(model.SourceBrussels)
	require.Len(t, bru, 2)
	for _, ev := range bru {
		require.Equal(t, model.SourceBrussels, ev.Source)
	}
}

func TestFindByNameExactBeatsFuzzy(t *testing.T) {
	s := NewStore()
	s.Add(model.Event{Name: "Jazz"}, model.SourceBrussels)
	s.Add(model.Event{Name: "Jazz Night at the Botanique"}, model.SourceEventbrite)

	// "Jazz" is contained in the longer title, but the exact record wins.
	ev, ok := s.FindByName("  jazz ", true)
	require.True(t, ok)
	require.Equal(t, "Jazz", ev.Name)
}

func TestFindByNameTruncatedPrefix(t *testing.T) {
	s := NewStore()
	full := "Jazz Night at the Botanique — Winter Edition"
	s.Add(model.Event{Name: full}, model.SourceEventbrite)

	// Query with the first 30 characters, the way an upstream token budget
	// truncates titles.
	query := string([]rune(full)[:30])
	ev, ok := s.FindByName(query, true)
	require.True(t, ok)
	require.Equal(t, full, ev.Name)
}

func TestFindByNameContainment(t *testing.T) {
	s := NewStore()
	s.Add(model.Event{Name: "Concert de Noël au Cinquantenaire"}, model.SourceBrussels)

	// Candidate contains query.
	ev, ok := s.FindByName("concert de noël", true)
	require.True(t, ok)
	require.Equal(t, "Concert de Noël au Cinquantenaire", ev.Name)

	// Query contains candidate.
	ev, ok = s.FindByName("le grand Concert de Noël au Cinquantenaire 2026", true)
	require.True(t, ok)
	require.Equal(t, "Concert de Noël au Cinquantenaire", ev.Name)
}

func TestFindByNameNoInvention(t *testing.T) {
	s := NewStore()
	s.Add(model.Event{Name: "Expo Magritte"}, model.SourceBrussels)

	_, ok := s.FindByName("tournoi de pétanque", true)
	require.False(t, ok)

	// Fuzzy disabled: near miss stays a miss.
	_, ok = s.FindByName("Expo Magritt", false)
	require.False(t, ok)

	_, ok = s.FindByName("   ", true)
	require.False(t, ok)
}

func TestClearBySource(t *testing.T) {
	s := NewStore()
	s.Add(model.Event{Name: "A"}, model.SourceBrussels)
	s.Add(model.Event{Name: "B"}, model.SourceTicketmaster)
	s.MarkRefreshed(model.SourceBrussels)
	s.MarkRefreshed(model.SourceTicketmaster)

	s.Clear(model.SourceBrussels)

	require.Equal(t, 1, s.Len())
	require.Empty(t, s.BySource(model.SourceBrussels))
	require.Len(t, s.BySource(model.SourceTicketmaster), 1)

	// Cleared source must look stale again.
	require.True(t, s.IsStale(model.SourceBrussels, time.Hour))
	require.False(t, s.IsStale(model.SourceTicketmaster, time.Hour))
}

func TestClearAll(t *testing.T) {
	s := NewStore()
	s.Add(model.Event{Name: "A"}, model.SourceBrussels)
	s.Add(model.Event{Name: "B"}, model.SourceEventbrite)

	s.Clear("")
	require.Equal(t, 0, s.Len())
	require.Empty(t, s.All())
}

func TestIsStaleWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(WithClock(func() time.Time { return now }))

	require.True(t, s.IsStale(model.SourceBrussels, 10*time.Hour), "never fetched is stale")

	s.MarkRefreshed(model.SourceBrussels)
	require.False(t, s.IsStale(model.SourceBrussels, 10*time.Hour))

	now = now.Add(9 * time.Hour)
	require.False(t, s.IsStale(model.SourceBrussels, 10*time.Hour))

	now = now.Add(2 * time.Hour)
	require.True(t, s.IsStale(model.SourceBrussels, 10*time.Hour))
}

func TestStats(t *testing.T) {
	s := NewStore()
	s.Add(model.Event{Name: "A", Description: "desc"}, model.SourceBrussels)
	s.Add(model.Event{Name: "B"}, model.SourceBrussels)
	s.Add(model.Event{Name: "C"}, model.SourceTicketmaster)

	st := s.Stats()
	require.Equal(t, 3, st.TotalEvents)
	require.Equal(t, 2, st.BySource[model.SourceBrussels])
	require.Equal(t, 1, st.BySource[model.SourceTicketmaster])
	require.Greater(t, st.MemoryEstimateKB, 0.0)
}
