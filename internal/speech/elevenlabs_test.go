package speech

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestElevenLabsSynthesize(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("xi-api-key"); got != "k-1" {
			t.Errorf("xi-api-key = %q", got)
		}
		if r.URL.Path != "/v1/text-to-speech/v-1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"text":"hello"}` {
			t.Errorf("body = %s", body)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer ts.Close()

	p := NewElevenLabsProvider(ElevenLabsConfig{BaseURL: ts.URL})
	audio, err := p.Synthesize(context.Background(), Request{Text: "hello", VoiceID: "v-1", APIKey: "k-1"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Fatalf("audio = %q", audio)
	}
}

func TestElevenLabsNonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "voice not found", http.StatusNotFound)
	}))
	defer ts.Close()

	p := NewElevenLabsProvider(ElevenLabsConfig{BaseURL: ts.URL})
	_, err := p.Synthesize(context.Background(), Request{Text: "hello", VoiceID: "v-1", APIKey: "k-1"})
	if !errors.Is(err, ErrSynthesisFailed) {
		t.Fatalf("Synthesize() error = %v, want ErrSynthesisFailed", err)
	}

	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) || synthErr.Status != http.StatusNotFound {
		t.Fatalf("Synthesize() error = %v, want SynthesisError with status 404", err)
	}
}
