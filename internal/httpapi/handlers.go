package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/p-n-ai/pai-roadmap/internal/export"
	"github.com/p-n-ai/pai-roadmap/internal/planner"
	"github.com/p-n-ai/pai-roadmap/internal/roadmap"
)

type handlers struct {
	svc     *planner.Service
	ready   map[string]HealthChecker
	origins []string
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	status := http.StatusOK
	for name, c := range h.ready {
		if err := c.HealthCheck(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	body := map[string]any{"status": "ready"}
	if status != http.StatusOK {
		body["status"] = "unavailable"
	}
	if len(checks) > 0 {
		body["checks"] = checks
	}
	writeJSON(w, status, body)
}

func (h *handlers) configDefaults(w http.ResponseWriter, r *http.Request) {
	cfg, warnings, err := h.svc.EffectiveDefaults()
	if err != nil {
		writeError(w, err)
		return
	}
	if warnings == nil {
		warnings = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"config": cfg, "warnings": warnings})
}

func (h *handlers) createRoadmap(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorBody{Error: "request_too_large", Message: err.Error()})
		return
	}
	rec, err := h.svc.Generate(r.Context(), raw, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/roadmaps/"+rec.ID)
	writeJSON(w, http.StatusCreated, rec)
}

func (h *handlers) listRoadmaps(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = min(v, 500)
		}
	}
	list, err := h.svc.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roadmaps": list})
}

func (h *handlers) getRoadmap(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handlers) exportRoadmap(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	f, err := export.Workbook(rec.Result)
	if err != nil {
		writeError(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="roadmap-%s.xlsx"`, id))
	if err := f.Write(w); err != nil {
		slog.Error("failed to write workbook", "roadmap_id", id, "error", err)
	}
}

// ErrorBody is the JSON error response.
type ErrorBody struct {
	Error    string   `json:"error"`
	Message  string   `json:"message"`
	Problems []string `json:"problems,omitempty"`
}

// classify maps an error to its HTTP status and response body.
func classify(err error) (int, ErrorBody) {
	var ve *roadmap.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, ErrorBody{Error: "invalid_input", Message: err.Error(), Problems: ve.Problems}
	case errors.Is(err, roadmap.ErrHoursCeiling):
		return http.StatusUnprocessableEntity, ErrorBody{Error: "hours_ceiling", Message: err.Error()}
	case errors.Is(err, planner.ErrNotFound):
		return http.StatusNotFound, ErrorBody{Error: "not_found", Message: err.Error()}
	}
	return http.StatusInternalServerError, ErrorBody{Error: "internal", Message: "internal error"}
}

func writeError(w http.ResponseWriter, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}
