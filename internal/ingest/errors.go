package ingest

import (
	"fmt"
	"strings"
)

// InvalidFileError means the upload could not be interpreted as
// tabular data at all, or contained zero data rows. Fatal to the run.
type InvalidFileError struct {
	Reason string
}

func (e *InvalidFileError) Error() string {
	return fmt.Sprintf("invalid file: %s", e.Reason)
}

// MissingColumnsError means one or more required columns could not be
// resolved from the header row. Fatal to the run: a processor must
// never silently skip required semantics.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// RowWarning records a row that was skipped without aborting the run
type RowWarning struct {
	Row    int    `json:"row"` // 1-based data row number
	Reason string `json:"reason"`
}
