package handlers

import (
	"context"
	"net/http"
	"strings"

	"progenai/internal/domain"
	"progenai/internal/generation"
	"progenai/internal/middleware"
)

type generateReq struct {
	RawInput string `json:"rawInput"`
	Modality string `json:"modality"`
	Style    string `json:"style"`
	Language string `json:"language"`
}

type resultDTO struct {
	*domain.GenerationResult
	ImageURL string `json:"imageUrl,omitempty"`
}

func toResultDTO(r *domain.GenerationResult) *resultDTO {
	if r == nil {
		return nil
	}
	return &resultDTO{GenerationResult: r, ImageURL: r.Image.DataURL()}
}

type sessionDTO struct {
	Result  *resultDTO          `json:"result"`
	Failure *generation.Failure `json:"failure,omitempty"`
	Answers domain.AnswerSet    `json:"answers"`
	Chat    []domain.ChatEntry  `json:"chat"`
	Busy    bool                `json:"busy"`
}

// Generate runs one generation cycle. Empty modality and style take their
// defaults; an empty language takes the stored input language, then the
// request locale.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateReq
	if !a.decode(w, r, &req) {
		return
	}
	gen := domain.GenerationRequest{
		RawInput: req.RawInput,
		Modality: domain.ModalityImage,
		Style:    domain.StyleDetailed,
	}
	if v := strings.TrimSpace(req.Modality); v != "" {
		gen.Modality = domain.Modality(strings.ToLower(v))
	}
	if v := strings.TrimSpace(req.Style); v != "" {
		gen.Style = domain.Style(strings.ToLower(v))
	}
	gen.Language = a.requestLanguage(r, req.Language)

	res, err := a.Engine.Generate(cycleContext(r), gen)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toResultDTO(res))
}

func (a *App) requestLanguage(r *http.Request, explicit string) domain.Language {
	if strings.TrimSpace(explicit) != "" {
		return domain.ParseLanguage(explicit)
	}
	if a.Preferences != nil {
		lang, stored, err := a.Preferences.StoredLanguage(r.Context())
		if err != nil {
			a.Logger.Warn().Err(err).Msg("read input language")
		} else if stored {
			return lang
		}
	}
	return middleware.LocaleFromContext(r.Context())
}

// cycleContext keeps request values but not cancellation: a cycle runs to
// completion even when the client goes away.
func cycleContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

type refineReq struct {
	Answers domain.AnswerSet `json:"answers"`
}

// Refine runs the refinement pass with the posted answers merged over the
// pending ones.
func (a *App) Refine(w http.ResponseWriter, r *http.Request) {
	var req refineReq
	if r.ContentLength != 0 && !a.decode(w, r, &req) {
		return
	}
	res, err := a.Engine.Refine(cycleContext(r), req.Answers)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toResultDTO(res))
}

type answerReq struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (a *App) SetAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerReq
	if !a.decode(w, r, &req) {
		return
	}
	session := a.Engine.Session()
	if err := session.SetAnswer(req.Question, req.Answer); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"answers": session.Answers()})
}

func (a *App) Session(w http.ResponseWriter, r *http.Request) {
	snap := a.Engine.Session().Snapshot()
	a.json(w, http.StatusOK, sessionDTO{
		Result:  toResultDTO(snap.Result),
		Failure: snap.Failure,
		Answers: snap.Answers,
		Chat:    snap.Chat,
		Busy:    snap.Busy,
	})
}
