package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vigiamaps/occurrence-hotspots/internal/hotspot"
	"github.com/vigiamaps/occurrence-hotspots/internal/model"
	"github.com/vigiamaps/occurrence-hotspots/internal/pipeline"
)

type Handler struct {
	svc    *hotspot.Service
	logger *slog.Logger
}

func NewHandler(svc *hotspot.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type errorBody struct {
	Error string `json:"error"`
}

// RawOccurrences handles GET /occurrences?lat=&lon= and returns the raw
// (possibly cached) incident list for the resolved region.
func (h *Handler) RawOccurrences(w http.ResponseWriter, r *http.Request) {
	p, ok := h.parsePoint(w, r)
	if !ok {
		return
	}

	records, region, err := h.svc.RawOccurrences(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Message: "raw occurrences for " + region.String(),
		Data:    records,
	})
}

// Hotspots handles GET /occurrences/hotspots?lat=&lon= and serves the most
// recent precomputed hotspot analysis for the resolved region.
func (h *Handler) Hotspots(w http.ResponseWriter, r *http.Request) {
	p, ok := h.parsePoint(w, r)
	if !ok {
		return
	}

	analysis, region, err := h.svc.Hotspots(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Message: "occurrence hotspots for " + region.String(),
		Data:    analysis,
	})
}

func (h *Handler) parsePoint(w http.ResponseWriter, r *http.Request) (model.GeoPoint, bool) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "lat and lon query parameters are required"})
		return model.GeoPoint{}, false
	}
	p := model.GeoPoint{Latitude: lat, Longitude: lon}
	if err := p.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return model.GeoPoint{}, false
	}
	return p, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
	} else {
		h.logger.WarnContext(r.Context(), "request rejected", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrRegionNotFound),
		errors.Is(err, pipeline.ErrRegionUnmapped),
		errors.Is(err, pipeline.ErrAnalysisNotReady):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrAuthenticationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, pipeline.ErrUpstreamRejected):
		return http.StatusBadGateway
	case errors.Is(err, pipeline.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
