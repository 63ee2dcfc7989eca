// Package match scores how well an event's text fits a free-text category
// phrase, for the minimal view's optional category filter.
//
// The scorer is a token-frequency cosine similarity over the category
// vocabulary and the event's name+description, with a small expansion table
// so that a one-word category like "sport" also matches sport-adjacent
// vocabulary. Scores live on a 0–1 scale and are compared against a low,
// permissive threshold (default 0.15): short phrases against short blurbs
// score noisily, and over-inclusion beats starving the caller of results.
package match

import (
	"math"
	"strings"

	"eventscout/internal/model"
)

// categoryVocabulary expands a category word into adjacent terms, in the
// two languages the providers actually return (French and English).
var categoryVocabulary = map[string][]string{
	"music":    {"concert", "musique", "dj", "festival", "live", "band", "jazz", "rock", "électro", "soirée"},
	"sport":    {"sports", "match", "fitness", "run", "running", "vélo", "yoga", "tournoi", "football", "basket", "course"},
	"art":      {"arts", "expo", "exposition", "musée", "galerie", "peinture", "vernissage", "patrimoine"},
	"cinema":   {"cinéma", "film", "films", "projection", "documentaire", "séance"},
	"theatre":  {"théâtre", "spectacle", "spectacles", "pièce", "scène", "comédie"},
	"nature":   {"parc", "balade", "jardin", "promenade", "forêt", "plein air"},
	"family":   {"famille", "enfants", "kids", "atelier", "famille"},
	"party":    {"clubbing", "club", "soirée", "night", "dance", "nightlife", "fête"},
	"festival": {"festivals", "concert", "musique", "openair"},
}

// Score returns the affinity of text to the category phrase, in [0,1].
// An empty category scores 1 (no filtering signal).
func Score(category, text string) float64 {
	catTokens := expand(category)
	if len(catTokens) == 0 {
		return 1
	}

	catVec := termFreq(catTokens)
	textVec := termFreq(tokenize(text))

	return cosine(catVec, textVec)
}

// EventText is the text an event is scored on: name plus description, the
// same composite the minimal view summarizes.
func EventText(ev model.Event) string {
	return ev.Name + ". " + ev.Description
}

// Filter keeps the events whose score against category meets the threshold.
// An empty category keeps everything. Order is preserved.
func Filter(events []model.Event, category string, threshold float64) []model.Event {
	if strings.TrimSpace(category) == "" {
		return events
	}

	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if Score(category, EventText(ev)) >= threshold {
			out = append(out, ev)
		}
	}
	return out
}

// expand tokenizes the category phrase and appends the vocabulary of every
// known category word found in it.
func expand(category string) []string {
	tokens := tokenize(category)
	out := append([]string(nil), tokens...)
	for _, tok := range tokens {
		if vocab, ok := categoryVocabulary[tok]; ok {
			out = append(out, vocab...)
		}
	}
	return out
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !isWordRune(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		// Single letters carry no signal.
		if len([]rune(f)) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

func isWordRune(r rune) bool {
	if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
		return true
	}
	// Accented letters and anything beyond ASCII count as word characters;
	// provider text is mostly French.
	return r > 127
}

func termFreq(tokens []string) map[string]float64 {
	vec := make(map[string]float64, len(tokens))
	for _, tok := range tokens {
		vec[tok]++
	}
	return vec
}

func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for tok, w := range a {
		normA += w * w
		if w2, ok := b[tok]; ok {
			dot += w * w2
		}
	}
	for _, w := range b {
		normB += w * w
	}

	if dot == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
