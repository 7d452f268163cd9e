package httpapi

import (
	"log"
	"net/http"
	"strings"

	"github.com/antoniostano/penny/internal/twiml"
)

const (
	repromptUtterance       = "Sorry, I didn't catch that. Could you please repeat?"
	completionApology       = "Sorry, I'm having trouble thinking right now. Let's start over."
	synthesisFallbackNotice = "Sorry, voice synthesis failed; playing default voice."
)

// handleVoice answers an inbound call: speak the configured greeting and arm
// speech capture pointing at the turn-processing endpoint.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	st, err := s.settings.Load(r.Context())
	if err != nil {
		log.Printf("voice: settings unavailable: %v", err)
		respondError(w, http.StatusInternalServerError, "settings_unavailable", err.Error())
		return
	}

	doc := twiml.New().Gather(twiml.Gather{
		Input:         "speech",
		Action:        s.cfg.PublicBaseURL + "/process",
		Method:        http.MethodPost,
		Timeout:       int(s.cfg.GatherTimeout.Seconds()),
		SpeechTimeout: "auto",
		Say:           &twiml.Say{Text: st.Greeting},
	})

	s.metrics.CallEvents.WithLabelValues("greeting").Inc()
	s.respondTwiML(w, doc)
}

// handleProcess runs one dialog turn for the transcribed caller speech.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	callerSpeech := strings.TrimSpace(r.FormValue("SpeechResult"))
	callSID := strings.TrimSpace(r.FormValue("CallSid"))

	st, err := s.settings.Load(r.Context())
	if err != nil {
		log.Printf("process: settings unavailable: %v", err)
		respondError(w, http.StatusInternalServerError, "settings_unavailable", err.Error())
		return
	}

	if callerSpeech == "" {
		s.metrics.CallEvents.WithLabelValues("empty_speech").Inc()
		doc := twiml.New().
			Say(repromptUtterance).
			Redirect(s.cfg.PublicBaseURL+"/voice", http.MethodPost)
		s.respondTwiML(w, doc)
		return
	}

	reply, err := s.pipeline.RunTurn(r.Context(), callSID, callerSpeech, st)
	if err != nil {
		// The caller's utterance stays in history; apologize and restart the
		// loop from the greeting, mirroring the empty-input path.
		doc := twiml.New().
			Say(completionApology).
			Redirect(s.cfg.PublicBaseURL+"/voice", http.MethodPost)
		s.respondTwiML(w, doc)
		return
	}

	doc := twiml.New()
	out, synthErr := s.synth.Synthesize(r.Context(), reply, st, callSID)
	switch {
	case synthErr != nil:
		log.Printf("process: call %s: synthesis error: %v", callSID, synthErr)
		s.metrics.CallEvents.WithLabelValues("synthesis_failed").Inc()
		s.metrics.ProviderErrors.WithLabelValues("elevenlabs", "synthesis_failed").Inc()
		doc.Say(synthesisFallbackNotice)
		doc.Say(reply)
	case out.UsesArtifact():
		s.metrics.CallEvents.WithLabelValues("synthesis_artifact").Inc()
		doc.Play(s.cfg.PublicBaseURL + out.ArtifactURL)
	default:
		s.metrics.CallEvents.WithLabelValues("synthesis_fallback").Inc()
		doc.Say(reply)
	}

	// Re-arm listening so the call stays interactive until the telephony
	// layer or the caller hangs up.
	doc.Gather(twiml.Gather{
		Input:         "speech",
		Action:        s.cfg.PublicBaseURL + "/process",
		Method:        http.MethodPost,
		Timeout:       int(s.cfg.GatherTimeout.Seconds()),
		SpeechTimeout: "auto",
	})

	s.metrics.ActiveCalls.Set(float64(s.sessions.ActiveCount()))
	s.respondTwiML(w, doc)
}

func (s *Server) respondTwiML(w http.ResponseWriter, doc *twiml.Response) {
	body, err := doc.Render()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "twiml_render_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	_, _ = w.Write([]byte(body))
}
