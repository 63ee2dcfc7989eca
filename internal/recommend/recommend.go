// Package recommend implements the lightweight, model-free personalization
// layer: profile detection from free text, a keyword-scored pick among
// already-selected events, and a "step out of your routine" novelty pick
// from the cache at large.
package recommend

import (
	"math/rand"
	"strings"

	"eventscout/internal/cache"
	"eventscout/internal/model"
)

// Profile is a coarse taste bucket detected from user text.
type Profile string

const (
	ProfileFetard    Profile = "Fêtard"
	ProfileCulturel  Profile = "Culturel"
	ProfileSportif   Profile = "Sportif"
	ProfileCinephile Profile = "Cinéphile"
	ProfileChill     Profile = "Chill"
	ProfileCurieux   Profile = "Curieux"
)

// profileTriggers detect a profile from user text, first hit wins.
var profileTriggers = []struct {
	profile Profile
	words   []string
}{
	{ProfileFetard, []string{"fête", "soirée", "party", "club"}},
	{ProfileCulturel, []string{"musée", "expo", "art", "théâtre"}},
	{ProfileSportif, []string{"sport", "match", "fitness"}},
	{ProfileCinephile, []string{"film", "ciné", "cinéma"}},
	{ProfileChill, []string{"parc", "nature", "balade"}},
}

// profileKeywords score events against a profile.
var profileKeywords = map[Profile][]string{
	ProfileFetard:    {"party", "club", "dj", "night", "dance", "soirée"},
	ProfileCulturel:  {"musée", "expo", "art", "galerie", "culture", "patrimoine"},
	ProfileSportif:   {"sport", "match", "fitness", "run", "vélo", "yoga"},
	ProfileCinephile: {"film", "cinema", "projection", "documentaire"},
	ProfileChill:     {"nature", "parc", "balade", "détente", "calme"},
	ProfileCurieux:   {},
}

// DetectProfile buckets free user text into a Profile. No match means
// Curieux, the neutral bucket.
func DetectProfile(text string) Profile {
	lower := strings.ToLower(text)
	for _, trigger := range profileTriggers {
		for _, w := range trigger.words {
			if strings.Contains(lower, w) {
				return trigger.profile
			}
		}
	}
	return ProfileCurieux
}

// PickForProfile returns the event among candidates whose name+description
// hits the most profile keywords, defaulting to the first candidate when
// nothing scores. ok is false only for an empty candidate list.
func PickForProfile(candidates []model.Event, profile Profile) (model.Event, bool) {
	if len(candidates) == 0 {
		return model.Event{}, false
	}

	keywords := profileKeywords[profile]
	best := candidates[0]
	bestScore := 0

	for _, ev := range candidates {
		text := strings.ToLower(ev.Name + " " + ev.Description)
		score := 0
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = ev
		}
	}

	return best, true
}

// NoveltyPick draws a random cached event for the "osez la nouveauté"
// suggestion, preferring one that does NOT match the profile's own
// keywords so the pick actually leaves the user's comfort zone. Falls back
// to any event when everything matches. ok is false on an empty cache.
func NoveltyPick(store *cache.Store, profile Profile, rng *rand.Rand) (model.Event, bool) {
	all := store.All()
	if len(all) == 0 {
		return model.Event{}, false
	}

	keywords := profileKeywords[profile]
	outside := make([]model.Event, 0, len(all))
	for _, ev := range all {
		text := strings.ToLower(ev.Name + " " + ev.Description)
		matches := false
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				matches = true
				break
			}
		}
		if !matches {
			outside = append(outside, ev)
		}
	}

	pool := outside
	if len(pool) == 0 {
		pool = all
	}

	return pool[rng.Intn(len(pool))], true
}
