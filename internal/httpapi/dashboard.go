package httpapi

import (
	"html/template"
	"log"
	"net/http"

	"github.com/antoniostano/penny/internal/settings"
)

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head><title>Agent Settings</title></head>
<body>
<h1>Agent Settings</h1>
<form method="POST" action="/dashboard">
  <label>Greeting<br><textarea name="greeting" rows="2" cols="60">{{.Greeting}}</textarea></label><br>
  <label>System prompt<br><textarea name="system_prompt" rows="6" cols="60">{{.SystemPrompt}}</textarea></label><br>
  <label>Voice gender
    <select name="voice_gender">
      <option value="male"{{if eq .VoiceGender "male"}} selected{{end}}>male</option>
      <option value="female"{{if eq .VoiceGender "female"}} selected{{end}}>female</option>
    </select>
  </label><br>
  <label><input type="checkbox" name="use_elevenlabs" value="true"{{if .UseElevenLabs}} checked{{end}}> Use ElevenLabs synthesis</label><br>
  <label>ElevenLabs API key<br><input type="text" name="elevenlabs_api_key" size="60" value="{{.ElevenLabsAPIKey}}"></label><br>
  <label>ElevenLabs voice ID<br><input type="text" name="eleven_voice_id" size="40" value="{{.ElevenVoiceID}}"></label><br>
  <button type="submit">Save</button>
</form>
</body>
</html>`))

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	st, err := s.settings.Load(r.Context())
	if err != nil {
		log.Printf("dashboard: settings unavailable: %v", err)
		respondError(w, http.StatusInternalServerError, "settings_unavailable", err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, st); err != nil {
		log.Printf("dashboard: render error: %v", err)
	}
}

// handleDashboardSave merges the submitted fields over the stored record.
// Absent fields keep their prior values; the synthesis toggle follows
// checkbox semantics (present "true" enables, anything else disables).
func (s *Server) handleDashboardSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_form", err.Error())
		return
	}

	st, err := s.settings.Load(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "settings_unavailable", err.Error())
		return
	}

	update := settings.Update{}
	if v, ok := formValue(r, "greeting"); ok {
		update.Greeting = &v
	}
	if v, ok := formValue(r, "system_prompt"); ok {
		update.SystemPrompt = &v
	}
	if v, ok := formValue(r, "voice_gender"); ok {
		update.VoiceGender = &v
	}
	use := r.Form.Get("use_elevenlabs") == "true"
	update.UseElevenLabs = &use
	if v, ok := formValue(r, "elevenlabs_api_key"); ok {
		update.ElevenLabsAPIKey = &v
	}
	if v, ok := formValue(r, "eleven_voice_id"); ok {
		update.ElevenVoiceID = &v
	}

	if err := s.settings.Save(r.Context(), update.Apply(st)); err != nil {
		respondError(w, http.StatusInternalServerError, "settings_save_failed", err.Error())
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func formValue(r *http.Request, key string) (string, bool) {
	vals, ok := r.Form[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}
