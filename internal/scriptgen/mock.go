package scriptgen

import (
	"context"
	"fmt"
)

type mockGenerator struct{}

// NewMockGenerator returns a tiny fixed dialogue, useful for exercising the
// render pipeline without a model.
func NewMockGenerator() Generator {
	return &mockGenerator{}
}

func (m *mockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"[Host] Hello and welcome, I am %s. Today we have a special guest.\n"+
			"[Guest] Thanks for having me, I am %s. Happy to dig into the topic.\n"+
			"[Host] Let us get started.",
		req.HostName, req.GuestName), nil
}
