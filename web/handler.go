// Package web exposes the operator console and control API over HTTP.
package web

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"parley/history"
	"parley/pipeline"
	"parley/station"
)

// Session is the slice of the orchestrator the operator API drives.
type Session interface {
	Activate(station.ID) error
	Deactivate(station.ID)
	StopAll()
	ResetSession()
}

type Handler struct {
	session    Session
	controller *station.Controller
	history    *history.Log
	events     *pipeline.Events
	captions   *Captions
	logger     *log.Logger
}

func NewHandler(
	session Session,
	controller *station.Controller,
	hist *history.Log,
	events *pipeline.Events,
	captions *Captions,
	logger *log.Logger,
) *Handler {
	return &Handler{
		session:    session,
		controller: controller,
		history:    hist,
		events:     events,
		captions:   captions,
		logger:     logger,
	}
}

func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", h.handleIndex)
	r.Get("/stations", h.handleStations)
	r.Post("/stations/{id}/activate", h.handleActivate)
	r.Post("/stations/{id}/deactivate", h.handleDeactivate)
	r.Put("/stations/{id}/config", h.handleSetConfig)
	r.Get("/history", h.handleHistory)
	r.Delete("/history", h.handleResetHistory)
	r.Get("/events", h.handleEvents)
	r.Get("/captions", h.handleCaptions)
	r.Post("/stop", h.handleStop)
	return r
}

func (h *Handler) handleStations(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.stationID(w, r)
	if !ok {
		return
	}
	if err := h.session.Activate(id); err != nil {
		h.writeStationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.stationID(w, r)
	if !ok {
		return
	}
	h.session.Deactivate(id)
	h.writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

func (h *Handler) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := h.stationID(w, r)
	if !ok {
		return
	}
	var cfg station.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "malformed config", http.StatusBadRequest)
		return
	}
	cfg.Station = id
	if err := h.controller.SetConfig(cfg); err != nil {
		h.writeStationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.controller.Config(id))
}

func (h *Handler) handleHistory(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.history.Snapshot())
}

func (h *Handler) handleResetHistory(w http.ResponseWriter, _ *http.Request) {
	h.session.ResetSession()
	h.captions.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEvents(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.events.Recent())
}

func (h *Handler) handleCaptions(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.captions.Snapshot())
}

func (h *Handler) handleStop(w http.ResponseWriter, _ *http.Request) {
	h.session.StopAll()
	h.captions.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) stationID(w http.ResponseWriter, r *http.Request) (station.ID, bool) {
	id, err := station.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return "", false
	}
	return id, true
}

func (h *Handler) writeStationError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, station.ErrStationBusy):
		status = http.StatusConflict
	case errors.Is(err, station.ErrUnknownStation):
		status = http.StatusNotFound
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err.Error())
	}
}

var indexTmpl = template.Must(template.New("index").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Parley</title>
    <script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="bg-gray-100">
    <div class="container mx-auto px-4 py-8">
        <h1 class="text-3xl font-bold mb-6">Parley</h1>
        <div class="grid grid-cols-2 gap-4 mb-8">
            {{range .Stations}}
            <div class="bg-white shadow rounded-lg p-4">
                <h2 class="text-xl font-bold">Station {{.Station}}</h2>
                <p class="text-gray-600">{{.Config.SourceLanguage}} &rarr; {{.Config.TargetLanguage}}</p>
                <p class="text-lg font-mono">{{.State}}</p>
            </div>
            {{end}}
        </div>
        <h2 class="text-2xl font-bold mb-4">Conversation</h2>
        <div class="space-y-4">
            {{range .History}}
            <div class="bg-white shadow rounded-lg p-4">
                <p class="text-gray-600 text-sm">{{.Timestamp.Format "15:04:05"}} &middot; Station {{.Station}}</p>
                <p class="text-lg">{{.Original}}</p>
                <p class="text-lg text-blue-800">{{.Translated}}</p>
                {{if ne .Status "ok"}}<p class="text-red-600 text-sm">{{.Status}}</p>{{end}}
            </div>
            {{end}}
        </div>
    </div>
</body>
</html>
`))

func (h *Handler) handleIndex(w http.ResponseWriter, _ *http.Request) {
	data := struct {
		Stations []station.Status
		History  []history.Entry
	}{
		Stations: h.controller.Snapshot(),
		History:  h.history.Snapshot(),
	}
	w.Header().Set("Content-Type", "text/html")
	if err := indexTmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to execute template", "error", err.Error())
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
