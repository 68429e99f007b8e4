package prompt

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Enhancer turns a raw user prompt into the richer prompt handed to the video
// generator. The photo reference is passed for context; implementations treat
// it as an opaque string.
type Enhancer interface {
	Enhance(ctx context.Context, rawPrompt, photoRef string) (string, error)
}

const staticProviderName = "static"

// StaticEnhancer is the deterministic fallback used when no remote enhancer
// is configured. It wraps the user prompt in a fixed cinematic template.
type StaticEnhancer struct{}

func NewStaticEnhancer() *StaticEnhancer {
	return &StaticEnhancer{}
}

func (s *StaticEnhancer) Enhance(ctx context.Context, rawPrompt, photoRef string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	subject := strings.TrimSpace(rawPrompt)
	if subject == "" {
		return "Bring the photo to life with gentle, natural motion. " +
			"Subtle camera push-in, soft ambient light, photorealistic detail.", nil
	}
	c := cases.Title(language.Und)
	return fmt.Sprintf(
		"%s. Animate the photo faithfully: smooth cinematic motion, soft ambient light, photorealistic detail.",
		c.String(subject),
	), nil
}

var _ Enhancer = (*StaticEnhancer)(nil)
