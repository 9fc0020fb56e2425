package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"teleasistencia-backend/internal/alerts"
	"teleasistencia-backend/internal/ingest"
	"teleasistencia-backend/internal/run"
	"teleasistencia-backend/internal/types"
)

// ReportsHandler serves sheet uploads and the aggregated report views
type ReportsHandler struct {
	runner *run.Runner
	logger zerolog.Logger
}

// NewReportsHandler creates a new ReportsHandler
func NewReportsHandler(runner *run.Runner, logger zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{
		runner: runner,
		logger: logger.With().Str("component", "reports").Logger(),
	}
}

// Upload handles POST /api/reports/upload. The call log sheet arrives
// as the "file" field of a multipart form.
func (h *ReportsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error":"missing file field"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	snapshot, err := h.runner.Process(r.Context(), header.Filename, file, time.Now().UTC())
	if err != nil {
		h.writeProcessError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"report":   snapshot,
		"warnings": h.runner.Warnings(),
	})
}

func (h *ReportsHandler) writeProcessError(w http.ResponseWriter, err error) {
	var invalid *ingest.InvalidFileError
	var missing *ingest.MissingColumnsError

	switch {
	case errors.Is(err, run.ErrRunInFlight):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.As(err, &invalid), errors.As(err, &missing):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.logger.Error().Err(err).Msg("upload processing failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "processing failed"})
	}
}

// Latest handles GET /api/reports/latest
func (h *ReportsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	snapshot := h.runner.Latest()
	if snapshot == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no report available"})
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// FollowUps handles GET /api/reports/followups. Statuses are evaluated
// against the request clock, not the ingestion clock.
func (h *ReportsHandler) FollowUps(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	snapshot := h.runner.Reclassify(now)
	if snapshot == nil {
		snapshot = h.runner.Latest()
	}
	if snapshot == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no report available"})
		return
	}

	statuses := make(map[string]types.FollowUpStatus, len(snapshot.Beneficiaries))
	for _, name := range snapshot.OnTrack {
		statuses[name] = types.StatusOK
	}
	for _, name := range snapshot.Pending {
		statuses[name] = types.StatusWarning
	}
	for _, name := range snapshot.Urgent {
		statuses[name] = types.StatusDanger
	}

	if status := r.URL.Query().Get("status"); status != "" {
		var names []string
		switch types.FollowUpStatus(status) {
		case types.StatusOK:
			names = snapshot.OnTrack
		case types.StatusWarning:
			names = snapshot.Pending
		case types.StatusDanger:
			names = snapshot.Urgent
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status: " + status})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"evaluatedAt":   now,
			"status":        status,
			"beneficiaries": names,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"evaluatedAt": now,
		"onTrack":     snapshot.OnTrack,
		"pending":     snapshot.Pending,
		"urgent":      snapshot.Urgent,
		"alerts":      alerts.Check(statuses, snapshot.LastSuccessful, now),
	})
}

// Warnings handles GET /api/reports/warnings
func (h *ReportsHandler) Warnings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"warnings": h.runner.Warnings(),
	})
}

// OperatorSummary is one row of the per-operator workload view
type OperatorSummary struct {
	Name          string  `json:"name"`
	Calls         int     `json:"calls"`
	DurationSecs  int     `json:"durationSecs"`
	Successful    int     `json:"successful"`
	Beneficiaries int     `json:"beneficiaries"`
	ActiveDays    int     `json:"activeDays"`
	AvgPerDay     float64 `json:"avgPerDay"`
}

// Operators handles GET /api/operators
func (h *ReportsHandler) Operators(w http.ResponseWriter, r *http.Request) {
	snapshot := h.runner.Latest()
	if snapshot == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no report available"})
		return
	}

	summaries := make([]OperatorSummary, 0, len(snapshot.Operators))
	for name, op := range snapshot.Operators {
		s := OperatorSummary{
			Name:          name,
			Calls:         op.Calls,
			DurationSecs:  op.DurationSecs,
			Successful:    op.Successful,
			Beneficiaries: len(op.Beneficiaries),
			ActiveDays:    len(op.ActiveDays),
		}
		if s.ActiveDays > 0 {
			s.AvgPerDay = float64(s.Calls) / float64(s.ActiveDays)
		}
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })

	writeJSON(w, http.StatusOK, map[string]interface{}{"operators": summaries})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
