package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for persisted entities.
const (
	PrefixBook       = "bk"
	PrefixHighlight  = "hl"
	PrefixBookmark   = "bm"
	PrefixAnnotation = "an"
	PrefixGoal       = "goal"
)

// Generate returns prefix-<nanoid>, e.g. "hl-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	nid, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + nid, nil
}

// MustGenerate is Generate for callers that cannot recover from an entropy failure.
func MustGenerate(prefix string) string {
	v, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return v
}
