package handlers

import (
	"net/http"
	"strings"

	"progenai/internal/domain"
	"progenai/internal/infra/credentials"
)

type settingsDTO struct {
	Language    domain.Language `json:"language"`
	CloudTTS    bool            `json:"cloudTTS"`
	VoiceID     string          `json:"voiceId"`
	Credentials map[string]bool `json:"credentials"`
}

type settingsReq struct {
	Language    *string           `json:"language"`
	CloudTTS    *bool             `json:"cloudTTS"`
	VoiceID     *string           `json:"voiceId"`
	Credentials map[string]string `json:"credentials"`
}

// GetSettings reports preferences and which credentials are present. Stored
// keys are never echoed back.
func (a *App) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang, err := a.Preferences.Language(ctx)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	cloud, voiceID, err := a.Preferences.CloudTTS(ctx)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	tokens, err := a.Credentials.All(ctx)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	present := make(map[string]bool, len(credentials.Providers))
	for _, p := range credentials.Providers {
		present[p] = strings.TrimSpace(tokens[p]) != ""
	}
	a.json(w, http.StatusOK, settingsDTO{Language: lang, CloudTTS: cloud, VoiceID: voiceID, Credentials: present})
}

// UpdateSettings applies the fields present in the body, then returns the
// resulting settings.
func (a *App) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsReq
	if !a.decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	if req.Language != nil {
		lang := domain.Language(strings.ToLower(strings.TrimSpace(*req.Language)))
		if err := a.Preferences.SetLanguage(ctx, lang); err != nil {
			a.fail(w, r, err)
			return
		}
	}
	if req.VoiceID != nil {
		if err := a.Preferences.SetCloudVoiceID(ctx, *req.VoiceID); err != nil {
			a.fail(w, r, err)
			return
		}
	}
	if req.CloudTTS != nil {
		if err := a.Preferences.SetCloudTTSEnabled(ctx, *req.CloudTTS); err != nil {
			a.fail(w, r, err)
			return
		}
	}
	for provider, key := range req.Credentials {
		if err := a.Credentials.SetToken(ctx, provider, key); err != nil {
			a.fail(w, r, err)
			return
		}
	}
	a.GetSettings(w, r)
}
