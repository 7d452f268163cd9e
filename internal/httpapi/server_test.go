package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antoniostano/penny/internal/brain"
	"github.com/antoniostano/penny/internal/config"
	"github.com/antoniostano/penny/internal/dialog"
	"github.com/antoniostano/penny/internal/observability"
	"github.com/antoniostano/penny/internal/session"
	"github.com/antoniostano/penny/internal/settings"
	"github.com/antoniostano/penny/internal/speech"
)

type stubBrain struct {
	reply string
	err   error
}

func (b *stubBrain) Reply(_ context.Context, _ string, _ []session.Turn) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	return b.reply, nil
}

type testEnv struct {
	server   *httptest.Server
	store    settings.Store
	sessions *session.Manager
	hub      *dialog.Hub
	provider *speech.MockProvider
	audioDir string
}

func newTestEnv(t *testing.T, b brain.Brain) *testEnv {
	t.Helper()

	dir := t.TempDir()
	store, err := settings.NewFileStore(filepath.Join(dir, "settings.json"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	audioDir := filepath.Join(dir, "tts")
	artifacts, err := speech.NewArtifactStore(audioDir)
	if err != nil {
		t.Fatalf("NewArtifactStore() error = %v", err)
	}

	provider := speech.NewMockProvider()
	sessions := session.NewManager(time.Minute)
	hub := dialog.NewHub()
	metrics := observability.NewMetrics(fmt.Sprintf("test_httpapi_%d", time.Now().UnixNano()))
	pipeline := dialog.NewPipeline(sessions, b, hub, metrics, time.Second)

	cfg := config.Config{
		AudioDir:      audioDir,
		GatherTimeout: 5 * time.Second,
	}
	srv := New(cfg, store, sessions, pipeline, speech.NewSelector(provider, artifacts), hub, metrics)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &testEnv{
		server:   ts,
		store:    store,
		sessions: sessions,
		hub:      hub,
		provider: provider,
		audioDir: audioDir,
	}
}

func (e *testEnv) saveSettings(t *testing.T, st settings.Settings) {
	t.Helper()
	if err := e.store.Save(context.Background(), st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
}

func postForm(t *testing.T, url string, form url.Values) (int, string) {
	t.Helper()
	res, err := http.PostForm(url, form)
	if err != nil {
		t.Fatalf("PostForm(%s) error = %v", url, err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	return res.StatusCode, string(body)
}

func TestVoiceSpeaksGreetingAndArmsListening(t *testing.T) {
	env := newTestEnv(t, &stubBrain{reply: "hi"})
	env.saveSettings(t, settings.Settings{Greeting: "Welcome to Acme.", SystemPrompt: "x", VoiceGender: "male"})

	status, body := postForm(t, env.server.URL+"/voice", url.Values{})
	if status != http.StatusOK {
		t.Fatalf("status = %d, body = %s", status, body)
	}
	for _, want := range []string{"<Gather", "Welcome to Acme.", `action="/process"`, `speechTimeout="auto"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestProcessEmptySpeechRepromptsWithoutMutation(t *testing.T) {
	env := newTestEnv(t, &stubBrain{reply: "hi"})

	status, body := postForm(t, env.server.URL+"/process", url.Values{
		"SpeechResult": {"   "},
		"CallSid":      {"CA123"},
	})
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(body, "didn't catch that") {
		t.Fatalf("body missing re-prompt:\n%s", body)
	}
	if !strings.Contains(body, `<Redirect method="POST">/voice</Redirect>`) {
		t.Fatalf("body missing redirect to greeting:\n%s", body)
	}
	if got := env.sessions.History("CA123"); len(got) != 0 {
		t.Fatalf("empty speech mutated session: %+v", got)
	}
}

func TestProcessTurnWithSynthesisDisabled(t *testing.T) {
	env := newTestEnv(t, &stubBrain{reply: "I don't have live weather access."})

	status, body := postForm(t, env.server.URL+"/process", url.Values{
		"SpeechResult": {"What's the weather?"},
		"CallSid":      {"CA123"},
	})
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(body, "<Say>I don&#39;t have live weather access.</Say>") &&
		!strings.Contains(body, "<Say>I don't have live weather access.</Say>") {
		t.Fatalf("body missing spoken reply:\n%s", body)
	}
	if !strings.Contains(body, "<Gather") {
		t.Fatalf("body missing re-armed gather:\n%s", body)
	}
	if env.provider.Calls != 0 {
		t.Fatalf("synthesis provider called with toggle off")
	}

	turns := env.sessions.History("CA123")
	if len(turns) != 2 ||
		turns[0].Role != session.RoleUser || turns[0].Content != "What's the weather?" ||
		turns[1].Role != session.RoleAssistant || turns[1].Content != "I don't have live weather access." {
		t.Fatalf("history = %+v", turns)
	}
}

func TestProcessTurnWithSynthesisArtifact(t *testing.T) {
	env := newTestEnv(t, &stubBrain{reply: "Sure thing."})
	env.saveSettings(t, settings.Settings{
		Greeting: "g", SystemPrompt: "p", VoiceGender: "male",
		UseElevenLabs: true, ElevenLabsAPIKey: "k", ElevenVoiceID: "v",
	})

	status, body := postForm(t, env.server.URL+"/process", url.Values{
		"SpeechResult": {"Can you help?"},
		"CallSid":      {"CA123"},
	})
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(body, "<Play>/static/tts/tts_CA123_") {
		t.Fatalf("body missing artifact Play:\n%s", body)
	}

	entries, err := os.ReadDir(env.audioDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("artifact count = %d, want 1", len(entries))
	}

	// The artifact is fetchable at its stable public address.
	res, err := http.Get(env.server.URL + "/static/tts/" + entries[0].Name())
	if err != nil {
		t.Fatalf("GET artifact error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("artifact fetch status = %d", res.StatusCode)
	}
}

func TestProcessSynthesisFailureFallsBackWithApology(t *testing.T) {
	env := newTestEnv(t, &stubBrain{reply: "Here is your answer."})
	env.provider.Err = &speech.SynthesisError{Status: 500, Message: "server error"}
	env.saveSettings(t, settings.Settings{
		Greeting: "g", SystemPrompt: "p", VoiceGender: "male",
		UseElevenLabs: true, ElevenLabsAPIKey: "k", ElevenVoiceID: "v",
	})

	status, body := postForm(t, env.server.URL+"/process", url.Values{
		"SpeechResult": {"Hello?"},
		"CallSid":      {"CA123"},
	})
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(body, "voice synthesis failed") {
		t.Fatalf("body missing apology:\n%s", body)
	}
	if !strings.Contains(body, "<Say>Here is your answer.</Say>") {
		t.Fatalf("body missing spoken reply after apology:\n%s", body)
	}
	if strings.Contains(body, "<Play>") {
		t.Fatalf("body should not play an artifact:\n%s", body)
	}

	entries, err := os.ReadDir(env.audioDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("artifact count = %d, want 0 on failure", len(entries))
	}
}

func TestProcessCompletionFailureApologizesAndRestarts(t *testing.T) {
	env := newTestEnv(t, &stubBrain{err: brain.ErrCompletionFailed})

	status, body := postForm(t, env.server.URL+"/process", url.Values{
		"SpeechResult": {"Hello?"},
		"CallSid":      {"CA123"},
	})
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(body, "trouble thinking") {
		t.Fatalf("body missing completion apology:\n%s", body)
	}
	if !strings.Contains(body, `<Redirect method="POST">/voice</Redirect>`) {
		t.Fatalf("body missing redirect:\n%s", body)
	}

	// The caller's utterance is kept even though no reply was generated.
	turns := env.sessions.History("CA123")
	if len(turns) != 1 || turns[0].Role != session.RoleUser {
		t.Fatalf("history = %+v, want only user turn", turns)
	}
}

func TestDashboardPartialUpdatePreservesOtherFields(t *testing.T) {
	env := newTestEnv(t, &stubBrain{reply: "hi"})
	env.saveSettings(t, settings.Settings{
		Greeting: "Old greeting", SystemPrompt: "Old prompt", VoiceGender: "female",
		UseElevenLabs: true, ElevenLabsAPIKey: "k", ElevenVoiceID: "v",
	})

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	res, err := client.PostForm(env.server.URL+"/dashboard", url.Values{
		"greeting":       {"New greeting"},
		"use_elevenlabs": {"true"},
	})
	if err != nil {
		t.Fatalf("PostForm() error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", res.StatusCode)
	}

	got, err := env.store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Greeting != "New greeting" {
		t.Fatalf("Greeting = %q", got.Greeting)
	}
	if got.SystemPrompt != "Old prompt" || got.VoiceGender != "female" ||
		got.ElevenLabsAPIKey != "k" || got.ElevenVoiceID != "v" || !got.UseElevenLabs {
		t.Fatalf("partial update clobbered fields: %+v", got)
	}
}

func TestDashboardShowsSettings(t *testing.T) {
	env := newTestEnv(t, &stubBrain{reply: "hi"})
	env.saveSettings(t, settings.Settings{Greeting: "Hello caller", SystemPrompt: "Be nice", VoiceGender: "male"})

	res, err := http.Get(env.server.URL + "/dashboard")
	if err != nil {
		t.Fatalf("GET /dashboard error = %v", err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(body), "Hello caller") || !strings.Contains(string(body), "Be nice") {
		t.Fatalf("dashboard missing settings:\n%s", body)
	}
}

func TestDashboardLiveStreamsTurnEvents(t *testing.T) {
	env := newTestEnv(t, &stubBrain{reply: "hi"})

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/dashboard/live"
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial error = %v", err)
	}
	if res != nil {
		res.Body.Close()
	}
	defer conn.Close()

	// Give the handler a moment to register its hub subscription.
	deadline := time.Now().Add(time.Second)
	for env.hub.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	env.hub.Publish(dialog.TurnEvent{CallSID: "CA123", TurnID: "t1", Role: "user", Content: "hello"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev dialog.TurnEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if ev.CallSID != "CA123" || ev.Role != "user" || ev.Content != "hello" {
		t.Fatalf("event = %+v", ev)
	}
}
