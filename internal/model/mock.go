package model

import (
	"context"
	"fmt"
)

// MockClient provides deterministic local replies when no backend is
// configured. Tests set Reply or Err to script outcomes.
type MockClient struct {
	Reply string
	Err   error
}

func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) Generate(ctx context.Context, prompt string, history []Message) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	default:
	}
	if c.Err != nil {
		return "", c.Err
	}
	if c.Reply != "" {
		return c.Reply, nil
	}
	return fmt.Sprintf("Here's a starting point on %q: focus on a concrete plan, a clear budget, and measurable goals.", prompt), nil
}
