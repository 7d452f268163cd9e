package speech

import (
	"context"
	"errors"
	"fmt"
)

// ErrSynthesisFailed marks any external synthesis failure. Callers recover by
// speaking the text with the telephony built-in voice; it is never fatal to a call.
var ErrSynthesisFailed = errors.New("synthesis failed")

// SynthesisError carries the provider's status and message.
type SynthesisError struct {
	Status  int
	Message string
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis provider status %d: %s", e.Status, e.Message)
}

func (e *SynthesisError) Unwrap() error { return ErrSynthesisFailed }

// Speech is the outcome of a synthesis request. When ArtifactURL is empty the
// telephony layer speaks Text with its built-in voice.
type Speech struct {
	ArtifactURL string
	Text        string
}

// UsesArtifact reports whether a stored audio artifact should be played.
func (s Speech) UsesArtifact() bool { return s.ArtifactURL != "" }

// Request is one synthesis call to an external provider.
type Request struct {
	Text    string
	VoiceID string
	APIKey  string
}

// Provider converts text to binary audio. Implementations make exactly one
// attempt; transient errors are not retried.
type Provider interface {
	Synthesize(ctx context.Context, req Request) ([]byte, error)
}
