package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"teleasistencia-backend/internal/run"
	"teleasistencia-backend/internal/storage"
)

// AdminHandler handles destructive maintenance operations
type AdminHandler struct {
	runner *run.Runner
	store  storage.Store
	logger zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(runner *run.Runner, store storage.Store, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		runner: runner,
		store:  store,
		logger: logger.With().Str("component", "admin").Logger(),
	}
}

// Reset handles POST /api/admin/reset. It clears the in-memory
// aggregate so the next upload starts a fresh report; persisted
// reports and assignments are untouched.
func (h *AdminHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Reset(); err != nil {
		if errors.Is(err, run.ErrRunInFlight) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "reset failed"})
		return
	}

	h.logger.Info().Msg("in-memory state reset via admin")
	writeJSON(w, http.StatusOK, map[string]string{"message": "in-memory state reset"})
}

// Truncate handles POST /api/admin/truncate. It wipes all persisted
// data and the in-memory state.
func (h *AdminHandler) Truncate(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Reset(); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	if err := h.store.TruncateAll(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("failed to truncate storage")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "truncate failed"})
		return
	}

	h.logger.Info().Msg("storage truncated via admin")
	writeJSON(w, http.StatusOK, map[string]string{"message": "all data wiped"})
}
