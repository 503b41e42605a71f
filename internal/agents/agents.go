// Package agents holds the collaborators the lifecycle engine drives:
// planning, action dispatch, visual verification, security screening
// and research synthesis. Each collaborator is a small struct with
// explicit dependencies so tests can swap the inference layer for a
// scripted fake.
package agents

import (
	"context"
	"unicode/utf8"
)

// Completer is the slice of the inference client the text-only
// collaborators need.
type Completer interface {
	Complete(ctx context.Context, model, prompt string, jsonMode bool) (string, error)
}

// VisionModel is the image-grounded completion capability.
type VisionModel interface {
	Vision(ctx context.Context, model, prompt, imageB64 string) (string, error)
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
