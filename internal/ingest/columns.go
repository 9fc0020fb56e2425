package ingest

import (
	"strings"

	"teleasistencia-backend/internal/normalize"
)

// ColumnMap holds the resolved index of each semantic field in a
// sheet's header row. Optional fields are -1 when absent.
type ColumnMap struct {
	ID           int
	Fecha        int
	Beneficiario int
	Comuna       int
	Evento       int
	Fono         int
	Ini          int
	Fin          int
	Seg          int
	Resultado    int
	Observacion  int
}

// requiredColumns must all resolve for a run to proceed. Seg and
// resultado are optional: without them duration and success metrics
// degrade to zero values but the run is still meaningful.
var requiredColumns = []string{"id", "fecha", "beneficiario", "comuna", "evento", "fono", "ini", "fin"}

// ResolveColumns maps the header row's free-text labels to field
// indices by case-insensitive exact match (diacritics ignored, so
// both "observación" and "observacion" resolve). It fails with the
// full list of missing required fields rather than partially
// proceeding.
func ResolveColumns(header []string) (ColumnMap, error) {
	indices := make(map[string]int, len(header))
	for i, cell := range header {
		key := normalize.Name(cell)
		if _, taken := indices[key]; key != "" && !taken {
			indices[key] = i
		}
	}

	lookup := func(name string) int {
		if i, ok := indices[name]; ok {
			return i
		}
		return -1
	}

	cm := ColumnMap{
		ID:          lookup("id"),
		Fecha:       lookup("fecha"),
		Beneficiario: lookup("beneficiario"),
		Comuna:      lookup("comuna"),
		Evento:      lookup("evento"),
		Fono:        lookup("fono"),
		Ini:         lookup("ini"),
		Fin:         lookup("fin"),
		Seg:         lookup("seg"),
		Resultado:   lookup("resultado"),
		Observacion: lookup("observacion"),
	}

	var missing []string
	for _, name := range requiredColumns {
		if lookup(name) < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return ColumnMap{}, &MissingColumnsError{Missing: missing}
	}
	return cm, nil
}

// cell returns the trimmed value at index i, or "" when the row is
// short or the column unresolved.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
