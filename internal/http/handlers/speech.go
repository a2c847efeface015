package handlers

import (
	"bytes"
	"net/http"
	"strings"

	"progenai/internal/domain"
	"progenai/internal/voice"
)

type speakReq struct {
	Text string `json:"text"`
}

// Speak synthesizes text with the configured voice and returns the audio.
// Calling it while an utterance is in flight cancels that utterance and
// answers 204.
func (a *App) Speak(w http.ResponseWriter, r *http.Request) {
	var req speakReq
	if !a.decode(w, r, &req) {
		return
	}
	var buf bytes.Buffer
	started, err := a.Speech.Speak(r.Context(), req.Text, voice.WriterPlayer{W: &buf})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !started {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	_, _ = w.Write(buf.Bytes())
}

func (a *App) StopSpeaking(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]bool{"stopped": a.Speech.Cancel()})
}

type gttsReq struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

// GTTS relays text to the translate speech endpoint.
func (a *App) GTTS(w http.ResponseWriter, r *http.Request) {
	var req gttsReq
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "Text is required")
		return
	}
	if a.TTS == nil {
		a.fail(w, r, domain.Environment("gtts", "speech synthesis is not available"))
		return
	}
	lang := domain.ParseLanguage(req.Lang).SpeechCode()
	audio, err := a.TTS.Synthesize(r.Context(), req.Text, lang)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	_, _ = w.Write(audio)
}
