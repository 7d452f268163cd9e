package speech

import (
	"context"

	"github.com/antoniostano/penny/internal/settings"
)

// Selector decides between external synthesis and the telephony built-in voice.
type Selector struct {
	provider Provider
	store    *ArtifactStore
}

func NewSelector(provider Provider, store *ArtifactStore) *Selector {
	return &Selector{provider: provider, store: store}
}

// Synthesize produces audio for text. When the external path is disabled or
// not fully configured it returns the spoken-text fallback without touching
// the network. A provider failure returns ErrSynthesisFailed and writes no
// artifact; the caller degrades to the built-in voice.
func (s *Selector) Synthesize(ctx context.Context, text string, st settings.Settings, callSID string) (Speech, error) {
	if !st.SynthesisReady() {
		return Speech{Text: text}, nil
	}

	audio, err := s.provider.Synthesize(ctx, Request{
		Text:    text,
		VoiceID: st.ElevenVoiceID,
		APIKey:  st.ElevenLabsAPIKey,
	})
	if err != nil {
		return Speech{}, err
	}

	url, err := s.store.Save(callSID, audio)
	if err != nil {
		return Speech{}, err
	}
	return Speech{ArtifactURL: url, Text: text}, nil
}
