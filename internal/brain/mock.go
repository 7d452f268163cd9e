package brain

import (
	"context"
	"fmt"
	"strings"

	"github.com/antoniostano/penny/internal/session"
)

// MockBrain provides deterministic local replies when no provider is configured.
type MockBrain struct{}

func NewMockBrain() *MockBrain { return &MockBrain{} }

func (b *MockBrain) Reply(ctx context.Context, _ string, history []session.Turn) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	last := ""
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == session.RoleUser {
			last = strings.TrimSpace(history[i].Content)
			break
		}
	}
	if last == "" {
		return "I'm listening.", nil
	}
	return fmt.Sprintf("You said: %s. How else can I help?", last), nil
}
