package settings

import (
	"context"
	"strings"
)

// Settings is the single process-wide configuration record for the agent.
// It is always read and written as a whole document; partial admin updates
// are merged over the previously stored values before saving.
type Settings struct {
	Greeting         string `json:"greeting"`
	SystemPrompt     string `json:"system_prompt"`
	VoiceGender      string `json:"voice_gender"`
	UseElevenLabs    bool   `json:"use_elevenlabs"`
	ElevenLabsAPIKey string `json:"elevenlabs_api_key"`
	ElevenVoiceID    string `json:"eleven_voice_id"`
}

// Defaults returns the record used to seed a store that has never been written.
func Defaults() Settings {
	return Settings{
		Greeting:     "Hello! How can I help you today?",
		SystemPrompt: "You are a helpful phone assistant. Keep replies short and conversational.",
		VoiceGender:  "male",
	}
}

// SynthesisReady reports whether the external synthesis path is fully configured.
func (s Settings) SynthesisReady() bool {
	return s.UseElevenLabs &&
		strings.TrimSpace(s.ElevenLabsAPIKey) != "" &&
		strings.TrimSpace(s.ElevenVoiceID) != ""
}

// Update carries an admin edit. Nil fields keep the previously stored value.
type Update struct {
	Greeting         *string
	SystemPrompt     *string
	VoiceGender      *string
	UseElevenLabs    *bool
	ElevenLabsAPIKey *string
	ElevenVoiceID    *string
}

// Apply merges the update over prior, leaving unset fields untouched.
func (u Update) Apply(prior Settings) Settings {
	next := prior
	if u.Greeting != nil {
		next.Greeting = *u.Greeting
	}
	if u.SystemPrompt != nil {
		next.SystemPrompt = *u.SystemPrompt
	}
	if u.VoiceGender != nil {
		next.VoiceGender = *u.VoiceGender
	}
	if u.UseElevenLabs != nil {
		next.UseElevenLabs = *u.UseElevenLabs
	}
	if u.ElevenLabsAPIKey != nil {
		next.ElevenLabsAPIKey = *u.ElevenLabsAPIKey
	}
	if u.ElevenVoiceID != nil {
		next.ElevenVoiceID = *u.ElevenVoiceID
	}
	return next
}

// Store persists the settings document. Every Load reflects the latest
// committed write; there is no in-memory cache across requests.
type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
	Close() error
}
