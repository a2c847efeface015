package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"progenai/internal/domain"
)

type pluginsDTO struct {
	Registry domain.PluginRegistry  `json:"registry"`
	Active   domain.ActiveSelection `json:"active"`
}

func (a *App) ListPlugins(w http.ResponseWriter, r *http.Request) {
	reg, sel, err := a.Plugins.State(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, pluginsDTO{Registry: reg, Active: sel})
}

type createPluginReq struct {
	Category    string         `json:"category"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Code        string         `json:"code"`
	Config      map[string]any `json:"config"`
}

func (a *App) CreatePlugin(w http.ResponseWriter, r *http.Request) {
	var req createPluginReq
	if !a.decode(w, r, &req) {
		return
	}
	category, ok := domain.ParsePluginCategory(req.Category)
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown plugin category")
		return
	}
	p, err := a.Plugins.Create(r.Context(), domain.Plugin{
		Category:      category,
		Name:          req.Name,
		Description:   req.Description,
		TransformCode: req.Code,
		Config:        req.Config,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, p)
}

func pluginRef(r *http.Request) (domain.PluginCategory, string, bool) {
	category, ok := domain.ParsePluginCategory(chi.URLParam(r, "category"))
	return category, chi.URLParam(r, "name"), ok
}

func (a *App) DeletePlugin(w http.ResponseWriter, r *http.Request) {
	category, name, ok := pluginRef(r)
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "unknown plugin category")
		return
	}
	if err := a.Plugins.Delete(r.Context(), category, name); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) ActivatePlugin(w http.ResponseWriter, r *http.Request) {
	a.togglePlugin(w, r, true)
}

func (a *App) DeactivatePlugin(w http.ResponseWriter, r *http.Request) {
	a.togglePlugin(w, r, false)
}

func (a *App) togglePlugin(w http.ResponseWriter, r *http.Request, active bool) {
	category, name, ok := pluginRef(r)
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "unknown plugin category")
		return
	}
	var err error
	if active {
		err = a.Plugins.Activate(r.Context(), category, name)
	} else {
		err = a.Plugins.Deactivate(r.Context(), category, name)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.ListPlugins(w, r)
}
