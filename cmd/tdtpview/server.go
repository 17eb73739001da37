package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tdtp-viewer/pkg/export"
	"github.com/ruslano69/tdtp-viewer/pkg/grid"
	"github.com/ruslano69/tdtp-viewer/pkg/viewer"
)

// newRouter wires the HTTP surface over a.
func newRouter(a *app) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if a.cfg.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(a.cfg.Server.RequestTimeout))
	}

	h := &handlers{app: a}

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", h.readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api/datasets", h.listDatasets)
	r.Route("/api/viewer", func(r chi.Router) {
		r.Get("/state", h.getState)
		r.Get("/view", h.getView)
		r.Put("/dataset", h.setDataset)
		r.Post("/reload", h.reload)
		r.Put("/sort", h.setSort)
		r.Put("/filter", h.setFilter)
		r.Delete("/filter", h.clearFilter)
		r.Put("/columns/{field}", h.moveColumn)
		r.Post("/export/{format}", h.export)
	})
	r.Get("/api/exports", h.listExports)
	r.Get("/api/exports/{id}", h.download)

	r.Get("/", h.index)
	r.Post("/select", h.selectForm)
	r.Post("/reload", h.reloadForm)
	r.Post("/export/{format}", h.exportForm)

	return r
}

type handlers struct {
	app *app
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz pings the dataset source and, when configured, the cache Redis.
func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checks := map[string]string{"source": "ok"}
	status := http.StatusOK

	if err := h.app.adapter.Ping(ctx); err != nil {
		checks["source"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if h.app.cacheRedis != nil {
		checks["cache_redis"] = "ok"
		if err := h.app.cacheRedis.Ping(ctx).Err(); err != nil {
			checks["cache_redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, checks)
}

func (h *handlers) listDatasets(w http.ResponseWriter, r *http.Request) {
	names, err := h.app.Datasets(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"datasets": names})
}

func (h *handlers) getState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.app.controller.State())
}

func (h *handlers) getView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.app.grid.View())
}

type datasetRequest struct {
	Name string `json:"name"`
}

func (h *handlers) setDataset(w http.ResponseWriter, r *http.Request) {
	var req datasetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	h.app.SetDataset(req.Name)
	writeJSON(w, http.StatusAccepted, h.app.controller.State())
}

func (h *handlers) reload(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Reload(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, h.app.controller.State())
}

func (h *handlers) setSort(w http.ResponseWriter, r *http.Request) {
	var keys []grid.SortKey
	if !decodeJSON(w, r, &keys) {
		return
	}
	if err := h.app.grid.SetSort(keys...); err != nil {
		writeGridError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.app.grid.View())
}

func (h *handlers) setFilter(w http.ResponseWriter, r *http.Request) {
	var f grid.Filter
	if !decodeJSON(w, r, &f) {
		return
	}
	if err := h.app.grid.SetFilter(f); err != nil {
		writeGridError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.app.grid.View())
}

// clearFilter removes the filter on ?field, or all filters without it.
func (h *handlers) clearFilter(w http.ResponseWriter, r *http.Request) {
	if field := r.URL.Query().Get("field"); field != "" {
		h.app.grid.ClearFilter(field)
	} else {
		h.app.grid.ClearFilters()
	}
	writeJSON(w, http.StatusOK, h.app.grid.View())
}

type moveRequest struct {
	Index int `json:"index"`
}

func (h *handlers) moveColumn(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.app.grid.MoveColumn(chi.URLParam(r, "field"), req.Index); err != nil {
		writeGridError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.app.grid.View())
}

// writeGridError maps grid model errors: nothing mounted is a conflict,
// anything else is a bad request.
func writeGridError(w http.ResponseWriter, err error) {
	if errors.Is(err, viewer.ErrRendererDetached) {
		writeError(w, http.StatusConflict, "no dataset is displayed")
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

// export answers 202 with the artifact, or 204 when nothing is displayed.
func (h *handlers) export(w http.ResponseWriter, r *http.Request) {
	f, err := viewer.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := h.app.Export(r.Context(), f)
	if err != nil {
		writeError(w, exportStatus(err), err.Error())
		return
	}
	if a == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusAccepted, a)
}

func exportStatus(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, export.ErrNoSinks):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (h *handlers) listExports(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]*export.Artifact{"exports": h.app.downloads.List()})
}

func (h *handlers) download(w http.ResponseWriter, r *http.Request) {
	a, err := h.app.downloads.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+a.FileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Body)))
	w.Header().Set("X-Checksum", a.Checksum)
	_, _ = w.Write(a.Body)
}

// ── HTML ──

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	p := page{
		Title:   h.app.cfg.Server.Name,
		State:   h.app.controller.State(),
		View:    h.app.grid.View(),
		Exports: h.app.downloads.List(),
	}
	names, err := h.app.Datasets(r.Context())
	if err != nil {
		p.Error = err.Error()
	}
	p.Datasets = names

	// the grid is mounted right after Loaded is stored
	if p.State.Status == viewer.StatusLoaded && !p.View.Mounted {
		p.View = stateView(p.State)
	}
	renderPage(w, p)
}

// stateView shows the fetched rows in source order.
func stateView(st viewer.State) grid.View {
	return grid.View{
		Dataset: st.Dataset,
		Columns: st.Schema.Fields(),
		Rows:    st.Rows,
		Total:   len(st.Rows),
		Visible: len(st.Rows),
	}
}

func (h *handlers) selectForm(w http.ResponseWriter, r *http.Request) {
	if name := r.FormValue("dataset"); name != "" {
		h.app.SetDataset(name)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *handlers) reloadForm(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Reload(r.Context()); err != nil {
		log.Debug().Err(err).Msg("reload ignored")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// exportForm redirects to the download of the new artifact.
func (h *handlers) exportForm(w http.ResponseWriter, r *http.Request) {
	f, err := viewer.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := h.app.Export(r.Context(), f)
	if err != nil {
		writeError(w, exportStatus(err), err.Error())
		return
	}
	if a == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/api/exports/"+a.ID, http.StatusSeeOther)
}

// newHTTPServer builds the listener with the configured timeouts.
func newHTTPServer(cfg ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
}
