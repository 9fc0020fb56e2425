// Package ingest turns uploaded spreadsheets of call logs into call
// records and folds them into the running aggregate in bounded
// chunks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"teleasistencia-backend/internal/assign"
	"teleasistencia-backend/internal/dates"
	"teleasistencia-backend/internal/normalize"
	"teleasistencia-backend/internal/stats"
	"teleasistencia-backend/internal/types"
)

// DefaultChunkSize bounds how many rows are folded between yield
// points so a large file never monopolizes the caller.
const DefaultChunkSize = 1000

// errEmptyRow marks a row with neither beneficiary nor date; it is
// dropped before aggregation without a warning.
var errEmptyRow = errors.New("row has no beneficiary and no date")

// Progress is invoked at each chunk boundary with the number of data
// rows handled so far and the total.
type Progress func(processed, total int)

// Result summarizes one processing run over a set of rows
type Result struct {
	Processed int          `json:"processed"`
	Skipped   int          `json:"skipped"`
	Warnings  []RowWarning `json:"warnings,omitempty"`
}

// Processor folds spreadsheet rows into an aggregate, chunk by chunk
type Processor struct {
	chunkSize int
	index     *assign.Index
	warnings  *WarningBuffer
	logger    zerolog.Logger
}

// NewProcessor creates a processor resolving operators against the
// given assignment index.
func NewProcessor(chunkSize int, index *assign.Index, warnings *WarningBuffer, logger zerolog.Logger) *Processor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Processor{
		chunkSize: chunkSize,
		index:     index,
		warnings:  warnings,
		logger:    logger.With().Str("component", "processor").Logger(),
	}
}

// Run folds all data rows into agg. Row-local failures (invalid
// dates, malformed cells) skip the row and continue; cancellation is
// honored at chunk boundaries. Returns how many rows were folded and
// skipped.
func (p *Processor) Run(ctx context.Context, rows [][]string, cols ColumnMap, agg *stats.Aggregate, now time.Time, progress Progress) (Result, error) {
	var res Result
	total := len(rows)

	for start := 0; start < total; start += p.chunkSize {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("processing cancelled at row %d: %w", start, err)
		}

		end := start + p.chunkSize
		if end > total {
			end = total
		}

		for i, row := range rows[start:end] {
			rowNum := start + i + 1
			if skipped := p.processRow(row, rowNum, cols, agg, now); skipped {
				res.Skipped++
			} else {
				res.Processed++
			}
		}

		if progress != nil {
			progress(end, total)
		}
	}

	agg.ProcessedRows += res.Processed
	agg.SkippedRows += res.Skipped
	if p.warnings != nil {
		res.Warnings = p.warnings.Recent()
	}

	p.logger.Info().
		Int("processed", res.Processed).
		Int("skipped", res.Skipped).
		Int("total", total).
		Msg("rows folded")

	return res, nil
}

// processRow folds one row, reporting whether it was skipped. Any
// panic while folding is recovered here so one malformed row cannot
// take down the run.
func (p *Processor) processRow(row []string, rowNum int, cols ColumnMap, agg *stats.Aggregate, now time.Time) (skipped bool) {
	defer func() {
		if r := recover(); r != nil {
			skipped = true
			p.warn(rowNum, fmt.Sprintf("row processing error: %v", r))
		}
	}()

	rec, err := p.buildRecord(row, cols, now)
	if err != nil {
		if !errors.Is(err, errEmptyRow) {
			p.warn(rowNum, err.Error())
		}
		return true
	}

	agg.Fold(rec)
	return false
}

func (p *Processor) warn(rowNum int, reason string) {
	p.logger.Warn().Int("row", rowNum).Str("reason", reason).Msg("row skipped")
	if p.warnings != nil {
		p.warnings.Add(RowWarning{Row: rowNum, Reason: reason})
	}
}

func (p *Processor) buildRecord(row []string, cols ColumnMap, now time.Time) (types.CallRecord, error) {
	beneficiary := cell(row, cols.Beneficiario)
	fecha := cell(row, cols.Fecha)
	if beneficiary == "" && fecha == "" {
		return types.CallRecord{}, errEmptyRow
	}

	ts, err := dates.ParseDate(fecha, now)
	if err != nil {
		return types.CallRecord{}, err
	}

	phone := cell(row, cols.Fono)
	nameKey := normalize.Name(beneficiary)
	outcome := cell(row, cols.Resultado)

	rec := types.CallRecord{
		ID:             cell(row, cols.ID),
		Timestamp:      ts,
		TimeOfDay:      dates.ParseTime(cell(row, cols.Ini)),
		BeneficiaryRaw: beneficiary,
		Beneficiary:    nameKey,
		Commune:        cell(row, cols.Comuna),
		Direction:      parseDirection(cell(row, cols.Evento)),
		Phone:          phone,
		DurationSecs:   parseDuration(cell(row, cols.Seg)),
		Outcome:        outcome,
		Notes:          cell(row, cols.Observacion),
		Operator:       p.index.Resolve(phone, nameKey),
		Successful:     stats.IsSuccessfulOutcome(outcome),
	}
	return rec, nil
}

// parseDirection keeps the inbound+outbound partition total: event
// text that names neither counts as outbound, the service's default
// call direction.
func parseDirection(evento string) types.CallDirection {
	if strings.Contains(strings.ToLower(evento), "entrante") {
		return types.DirectionInbound
	}
	return types.DirectionOutbound
}

// parseDuration reads the seg column as whole seconds; anything
// malformed or negative degrades to 0 rather than skipping the row.
func parseDuration(seg string) int {
	if seg == "" {
		return 0
	}
	v, err := strconv.ParseFloat(seg, 64)
	if err != nil || v < 0 {
		return 0
	}
	return int(v)
}
