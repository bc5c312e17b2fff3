package scriptgen

import "context"

// Request describes the script to generate: the source material plus the
// display names the dialogue should use.
type Request struct {
	SourceText  string
	HostName    string
	GuestName   string
	MaxTokens   int
	Temperature float64
}

// Generator produces a speaker-tagged dialogue script from source text. Tags
// in the output use the generic speaker roles ("[Host]", "[Guest]"); the
// display names only ever appear inside the dialogue itself.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
