package api

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"teleasistencia-backend/internal/ingest"
	"teleasistencia-backend/internal/normalize"
	"teleasistencia-backend/internal/run"
	"teleasistencia-backend/internal/storage"
	"teleasistencia-backend/internal/types"
)

// phonePattern extracts digit runs from a phone cell. Cells routinely
// hold several numbers separated by slashes, dashes or newlines.
var phonePattern = regexp.MustCompile(`\d{7,}`)

// AssignmentsHandler serves the operator assignment table
type AssignmentsHandler struct {
	runner *run.Runner
	store  storage.Store
	logger zerolog.Logger
}

// NewAssignmentsHandler creates a new AssignmentsHandler
func NewAssignmentsHandler(runner *run.Runner, store storage.Store, logger zerolog.Logger) *AssignmentsHandler {
	return &AssignmentsHandler{
		runner: runner,
		store:  store,
		logger: logger.With().Str("component", "assignments").Logger(),
	}
}

// Import handles POST /api/assignments/import. The assignment sheet
// arrives as the "file" field of a multipart form with operador,
// beneficiario and fono columns (comuna optional).
func (h *AssignmentsHandler) Import(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error":"missing file field"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	headerRow, rows, err := ingest.ReadRows(header.Filename, file, ingest.DefaultMaxUploadBytes)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	cols, err := resolveAssignmentColumns(headerRow)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	assignments := make([]types.Assignment, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		a, ok := buildAssignment(row, cols, now)
		if !ok {
			skipped++
			continue
		}
		assignments = append(assignments, a)
	}

	if len(assignments) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no usable assignment rows"})
		return
	}

	if err := h.runner.ImportAssignments(r.Context(), assignments); err != nil {
		h.logger.Error().Err(err).Msg("assignment import failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "import failed"})
		return
	}

	h.logger.Info().
		Int("imported", len(assignments)).
		Int("skipped", skipped).
		Msg("assignments imported")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"imported": len(assignments),
		"skipped":  skipped,
	})
}

// List handles GET /api/assignments
func (h *AssignmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.store.ListAssignments(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list assignments")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
		return
	}

	sort.Slice(assignments, func(i, j int) bool {
		return assignments[i].Beneficiary < assignments[j].Beneficiary
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"assignments": assignments})
}

type assignmentColumns struct {
	Operador     int
	Beneficiario int
	Fono         int
	Comuna       int
}

func resolveAssignmentColumns(header []string) (assignmentColumns, error) {
	cols := assignmentColumns{Operador: -1, Beneficiario: -1, Fono: -1, Comuna: -1}

	for i, cell := range header {
		switch normalize.Name(cell) {
		case "operador", "operadora", "teleoperadora":
			cols.Operador = i
		case "beneficiario", "beneficiaria":
			cols.Beneficiario = i
		case "fono", "telefono", "telefonos":
			cols.Fono = i
		case "comuna":
			cols.Comuna = i
		}
	}

	var missing []string
	if cols.Operador == -1 {
		missing = append(missing, "operador")
	}
	if cols.Beneficiario == -1 {
		missing = append(missing, "beneficiario")
	}
	if cols.Fono == -1 {
		missing = append(missing, "fono")
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func buildAssignment(row []string, cols assignmentColumns, now time.Time) (types.Assignment, bool) {
	cell := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	beneficiary := cell(cols.Beneficiario)
	operator := cell(cols.Operador)
	if beneficiary == "" || operator == "" {
		return types.Assignment{}, false
	}

	return types.Assignment{
		ID:          uuid.New().String(),
		Beneficiary: beneficiary,
		Phones:      phonePattern.FindAllString(cell(cols.Fono), -1),
		Operator:    operator,
		Commune:     cell(cols.Comuna),
		CreatedAt:   now,
	}, true
}
