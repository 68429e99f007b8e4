package video

import "context"

// Generator produces a video from an enhanced prompt and a source photo
// reference and returns an opaque reference to the stored result. Calls may
// be long-running; implementations must respect ctx deadlines.
type Generator interface {
	Generate(ctx context.Context, enhancedPrompt, photoRef string) (string, error)
}
