package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"eventscout/internal/model"
)

// idHexChars is how many hex characters of the digest become the event ID.
// IDs travel through language-model prompts, so they stay short. A collision
// shadows an event with the same display name from the same source.
const idHexChars = 12

// ComputeID derives the stable identifier for an event.
//
// The ID depends only on (source, case-folded name): refetching the same
// upstream page produces the same IDs, regardless of insertion order or
// time. The same title on two different sources yields two different IDs.
func ComputeID(source model.Source, name string) string {
	key := strings.ToLower(string(source) + ":" + name)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:idHexChars]
}
