package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"meditimer/internal/metrics"
	"meditimer/internal/timer"
)

const maxRequestBodyBytes = 1024

// Controller is the part of the timer engine the API drives.
type Controller interface {
	Start(seconds int) error
	Resume()
	Pause()
	Stop()
	Select(seconds int) error
	Snapshot() timer.Snapshot
}

// Config wires the router.
type Config struct {
	Engine         Controller
	Catalog        *timer.Catalog
	Metrics        *metrics.TimerMetrics
	Hub            *Hub
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// inputTimer selects a duration. Exactly one field may be set; none at all
// means no duration was given, which only succeeds as a resume.
type inputTimer struct {
	Seconds *int   `json:"seconds"`
	Minutes *int   `json:"minutes"`
	Preset  string `json:"preset"`
}

type outputTimer struct {
	Seconds  int          `json:"seconds"`
	Total    int          `json:"total"`
	Selected int          `json:"selected"`
	Progress float64      `json:"progress"`
	Status   timer.Status `json:"status"`
	Display  string       `json:"display"`
	Cycle    string       `json:"cycle"`
	End      string       `json:"end,omitempty"`
}

func newOutputTimer(s timer.Snapshot, now time.Time) outputTimer {
	out := outputTimer{
		Seconds:  s.Remaining,
		Total:    s.Total,
		Selected: s.Selected,
		Progress: s.Progress,
		Status:   s.Status,
		Display:  timer.FormatClock(s.Remaining),
		Cycle:    s.Cycle,
	}
	if s.Status == timer.StatusRunning {
		out.End = now.Add(time.Duration(s.Remaining) * time.Second).Format(time.RFC3339)
	}
	return out
}

type handler struct {
	engine  Controller
	catalog *timer.Catalog
	metrics *metrics.TimerMetrics
	logger  *slog.Logger
}

// NewRouter creates the HTTP API.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog, _ = timer.NewCatalog(nil)
	}
	h := &handler{engine: cfg.Engine, catalog: catalog, metrics: cfg.Metrics, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.MethodNotAllowed(notSupported)

	r.HandleFunc("/timer", timerHandler(h))
	r.Put("/timer/selection", h.selection)
	r.Post("/timer/pause", h.lifecycle(cfg.Engine.Pause))
	r.Post("/timer/resume", h.lifecycle(cfg.Engine.Resume))
	r.Post("/timer/stop", h.lifecycle(cfg.Engine.Stop))
	r.Get("/presets", h.presets)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	if cfg.Hub != nil {
		r.Get("/timer/events", cfg.Hub.HandleEvents(cfg.Engine))
	}
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}
	return r
}

func timerHandler(h *handler) http.HandlerFunc {
	return func(res http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.logger.Debug("api: GET timer", "user_agent", req.Header.Get("User-Agent"))
			h.writeState(res)
		case http.MethodPut:
			h.logger.Debug("api: PUT timer", "user_agent", req.Header.Get("User-Agent"))
			seconds, ok := h.decodeDuration(res, req)
			if !ok {
				return
			}
			if err := h.engine.Start(seconds); err != nil {
				h.rejectDuration(res, err)
				return
			}
			writeJSON(res, http.StatusOK, map[string]bool{"success": true})
		case http.MethodDelete:
			h.engine.Stop()
			writeJSON(res, http.StatusOK, map[string]bool{"success": true})
		default:
			notSupported(res, req)
		}
	}
}

func (h *handler) selection(res http.ResponseWriter, req *http.Request) {
	seconds, ok := h.decodeDuration(res, req)
	if !ok {
		return
	}
	if err := h.engine.Select(seconds); err != nil {
		h.rejectDuration(res, err)
		return
	}
	h.writeState(res)
}

func (h *handler) lifecycle(op func()) http.HandlerFunc {
	return func(res http.ResponseWriter, _ *http.Request) {
		op()
		h.writeState(res)
	}
}

func (h *handler) presets(res http.ResponseWriter, _ *http.Request) {
	writeJSON(res, http.StatusOK, h.catalog.List())
}

// decodeDuration reads an inputTimer and resolves it to seconds. On failure
// the response has already been written.
func (h *handler) decodeDuration(res http.ResponseWriter, req *http.Request) (int, bool) {
	req.Body = http.MaxBytesReader(res, req.Body, maxRequestBodyBytes)
	decoder := json.NewDecoder(req.Body)
	decoder.DisallowUnknownFields()

	var in inputTimer
	if err := decoder.Decode(&in); err != nil {
		h.logger.Info("api: request rejected", "error", err)
		h.metrics.ObserveRejected("bad_request")
		http.Error(res, "Invalid request format", http.StatusBadRequest)
		return 0, false
	}

	set := 0
	for _, present := range []bool{in.Seconds != nil, in.Minutes != nil, in.Preset != ""} {
		if present {
			set++
		}
	}
	if set > 1 {
		h.metrics.ObserveRejected("bad_request")
		http.Error(res, "Invalid request format: use one of seconds, minutes or preset", http.StatusBadRequest)
		return 0, false
	}

	switch {
	case in.Seconds != nil:
		return *in.Seconds, true
	case in.Minutes != nil:
		seconds, err := timer.CustomSeconds(*in.Minutes)
		if err != nil {
			h.rejectDuration(res, err)
			return 0, false
		}
		return seconds, true
	case in.Preset != "":
		p, ok := h.catalog.Lookup(in.Preset)
		if !ok {
			h.metrics.ObserveRejected("unknown_preset")
			http.Error(res, "Unknown preset", http.StatusNotFound)
			return 0, false
		}
		return p.Seconds, true
	}
	return 0, true
}

func (h *handler) rejectDuration(res http.ResponseWriter, err error) {
	if errors.Is(err, timer.ErrInvalidDuration) {
		h.logger.Info("api: duration rejected", "error", err)
		h.metrics.ObserveRejected("invalid_duration")
		http.Error(res, "Invalid duration", http.StatusBadRequest)
		return
	}
	h.logger.Error("api: unexpected error", "error", err)
	http.Error(res, "Unable to set timer", http.StatusInternalServerError)
}

func (h *handler) writeState(res http.ResponseWriter) {
	writeJSON(res, http.StatusOK, newOutputTimer(h.engine.Snapshot(), time.Now()))
}

func notSupported(res http.ResponseWriter, _ *http.Request) {
	http.Error(res, "Not supported", http.StatusNotImplemented)
}

func writeJSON(res http.ResponseWriter, status int, v any) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	if err := json.NewEncoder(res).Encode(v); err != nil {
		slog.Default().Error("api: encode response", "error", err)
	}
}
