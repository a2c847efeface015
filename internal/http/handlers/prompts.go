package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"progenai/internal/domain"
	"progenai/internal/export"
)

func (a *App) ListPrompts(w http.ResponseWriter, r *http.Request) {
	entries, err := a.Saved.List(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": entries})
}

type savePromptReq struct {
	Prompt   string `json:"prompt"`
	Modality string `json:"modality"`
	Style    string `json:"style"`
	Rating   int    `json:"rating"`
}

// SavePrompt stores an explicit prompt, or the current result when the body
// names none.
func (a *App) SavePrompt(w http.ResponseWriter, r *http.Request) {
	var req savePromptReq
	if !a.decode(w, r, &req) {
		return
	}
	prompt := req.Prompt
	modality, style := domain.ParseModality(req.Modality), domain.ParseStyle(req.Style)
	if strings.TrimSpace(prompt) == "" {
		cur := a.Engine.Session().Current()
		if cur == nil {
			a.error(w, http.StatusBadRequest, "bad_request", "nothing to save")
			return
		}
		prompt = cur.OptimizedPrompt
		if req.Modality == "" {
			modality = cur.Request.Modality
		}
		if req.Style == "" {
			style = cur.Request.Style
		}
	}
	entry, err := a.Saved.Save(r.Context(), prompt, modality, style, req.Rating)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, entry)
}

func (a *App) promptID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid prompt id")
		return 0, false
	}
	return id, true
}

func (a *App) GetPrompt(w http.ResponseWriter, r *http.Request) {
	id, ok := a.promptID(w, r)
	if !ok {
		return
	}
	entry, err := a.Saved.Get(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, entry)
}

func (a *App) DeletePrompt(w http.ResponseWriter, r *http.Request) {
	id, ok := a.promptID(w, r)
	if !ok {
		return
	}
	if err := a.Saved.Delete(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) SharePrompt(w http.ResponseWriter, r *http.Request) {
	id, ok := a.promptID(w, r)
	if !ok {
		return
	}
	entry, err := a.Saved.Get(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"text": export.ShareText(entry.Prompt, a.origin(r))})
}

func (a *App) ExportPrompt(w http.ResponseWriter, r *http.Request) {
	id, ok := a.promptID(w, r)
	if !ok {
		return
	}
	entry, err := a.Saved.Get(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.download(w, r, export.NewDocument(entry.Prompt, entry.Modality, entry.Style, a.now()))
}

// ExportAllPrompts joins every saved prompt into one document tagged with
// the modality and style given in the query.
func (a *App) ExportAllPrompts(w http.ResponseWriter, r *http.Request) {
	entries, err := a.Saved.List(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	a.download(w, r, export.Combined(entries, domain.ParseModality(q.Get("modality")), domain.ParseStyle(q.Get("style")), a.now()))
}

func (a *App) ExportPromptsZip(w http.ResponseWriter, r *http.Request) {
	entries, err := a.Saved.List(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	now := a.now()
	data, err := export.Archive(entries, now)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.MIMEZip)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.ArchiveFilename(now)+`"`)
	_, _ = w.Write(data)
}

func (a *App) download(w http.ResponseWriter, r *http.Request, doc export.Document) {
	data, err := doc.Marshal()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.MIMEJSON)
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename()+`"`)
	_, _ = w.Write(data)
}

func (a *App) origin(r *http.Request) string {
	if o := r.Header.Get("Origin"); o != "" {
		return o
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
