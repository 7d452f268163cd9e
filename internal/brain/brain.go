package brain

import (
	"context"
	"errors"
	"fmt"

	"github.com/antoniostano/penny/internal/session"
)

// ErrCompletionFailed marks any completion-provider failure. The dialog
// pipeline surfaces it unchanged; the HTTP layer decides what the caller hears.
var ErrCompletionFailed = errors.New("completion failed")

// ProviderError carries the upstream HTTP status for retry classification.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("completion provider status %d: %s", e.Status, e.Message)
}

func (e *ProviderError) Unwrap() error { return ErrCompletionFailed }

// Brain turns a system prompt plus ordered turn history into a reply.
type Brain interface {
	Reply(ctx context.Context, systemPrompt string, history []session.Turn) (string, error)
}
