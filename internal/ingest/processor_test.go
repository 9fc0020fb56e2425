package ingest

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"teleasistencia-backend/internal/assign"
	"teleasistencia-backend/internal/stats"
	"teleasistencia-backend/internal/types"
)

var testHeader = []string{"id", "fecha", "beneficiario", "comuna", "evento", "fono", "ini", "fin", "seg", "resultado"}

func testLogger() zerolog.Logger {
	return zerolog.New(&bytes.Buffer{})
}

func testProcessor(idx *assign.Index) *Processor {
	if idx == nil {
		idx = assign.Build(nil)
	}
	return NewProcessor(DefaultChunkSize, idx, NewWarningBuffer(0), testLogger())
}

func mustColumns(t *testing.T) ColumnMap {
	t.Helper()
	cm, err := ResolveColumns(testHeader)
	if err != nil {
		t.Fatalf("ResolveColumns: %v", err)
	}
	return cm
}

func TestProcessorRunSmallSheet(t *testing.T) {
	rows := [][]string{
		{"1", "05-01-2024", "Juan Pérez", "Santiago", "Llamado saliente", "912345678", "10:00", "10:02", "120", "Llamado exitoso"},
		{"2", "20-01-2024", "juan perez", "Santiago", "Llamado entrante", "912345678", "11:00", "11:01", "60", ""},
		{"3", "", "Pedro Soto", "Santiago", "Llamado saliente", "987654321", "12:00", "12:01", "30", ""},
	}

	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	agg := stats.New()
	cols := mustColumns(t)

	res, err := testProcessor(nil).Run(context.Background(), rows, cols, agg, now, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if res.Processed != 2 {
		t.Errorf("Processed = %d, want 2", res.Processed)
	}
	if res.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", res.Skipped)
	}
	if got := agg.TotalCalls(); got != 2 {
		t.Errorf("TotalCalls = %d, want 2 (the dateless row is dropped)", got)
	}
	if got := agg.BeneficiaryCount(); got != 1 {
		t.Errorf("BeneficiaryCount = %d, want 1 (name variants collapse)", got)
	}
	if got := agg.TotalDurationSecs(); got != 180 {
		t.Errorf("TotalDurationSecs = %d, want 180", got)
	}

	history := agg.History("juan perez")
	if len(history) != 2 {
		t.Fatalf("history rows = %d, want 2", len(history))
	}

	evalAt := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	if got := stats.Classify(history, evalAt); got != types.StatusOK {
		t.Errorf("Classify = %q, want %q (success five days earlier)", got, types.StatusOK)
	}
}

func TestProcessorResolvesOperator(t *testing.T) {
	idx := assign.Build([]types.Assignment{
		{
			ID:          "a1",
			Beneficiary: "Juan Pérez",
			Phones:      []string{"912345678"},
			Operator:    "María Rojas",
			CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	})

	rows := [][]string{
		{"1", "05-01-2024", "Juan Pérez", "Santiago", "Llamado saliente", "912345678", "10:00", "10:02", "120", "exitoso"},
		{"2", "06-01-2024", "Otra Persona", "Santiago", "Llamado saliente", "000000000", "10:00", "10:01", "60", ""},
	}

	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	agg := stats.New()

	if _, err := testProcessor(idx).Run(context.Background(), rows, mustColumns(t), agg, now, nil); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	h := agg.History("juan perez")
	if len(h) != 1 || h[0].Operator != "María Rojas" {
		t.Errorf("operator = %+v, want María Rojas", h)
	}
	other := agg.History("otra persona")
	if len(other) != 1 || other[0].Operator != types.OperatorUnidentified {
		t.Errorf("unassigned beneficiary should fall back to %q, got %+v", types.OperatorUnidentified, other)
	}
}

func TestProcessorBadDateWarns(t *testing.T) {
	rows := [][]string{
		{"1", "31-04-2024", "Juan Pérez", "Santiago", "Llamado saliente", "912345678", "10:00", "10:02", "120", ""},
	}

	wb := NewWarningBuffer(0)
	p := NewProcessor(DefaultChunkSize, assign.Build(nil), wb, testLogger())

	agg := stats.New()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	res, err := p.Run(context.Background(), rows, mustColumns(t), agg, now, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if res.Skipped != 1 || agg.TotalCalls() != 0 {
		t.Errorf("bad date should be skipped: res=%+v total=%d", res, agg.TotalCalls())
	}
	if len(wb.Recent()) != 1 {
		t.Errorf("expected one warning, got %v", wb.Recent())
	}
}

func TestProcessorProgressAndCancel(t *testing.T) {
	row := []string{"", "05-01-2024", "Juan Pérez", "Santiago", "Llamado saliente", "912345678", "10:00", "10:02", "120", ""}
	rows := make([][]string, 2500)
	for i := range rows {
		rows[i] = row
	}

	var calls []int
	progress := func(processed, total int) {
		if total != 2500 {
			t.Errorf("total = %d, want 2500", total)
		}
		calls = append(calls, processed)
	}

	agg := stats.New()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if _, err := testProcessor(nil).Run(context.Background(), rows, mustColumns(t), agg, now, progress); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(calls) == 0 || calls[len(calls)-1] != 2500 {
		t.Errorf("progress calls = %v, want final call at 2500", calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := testProcessor(nil).Run(ctx, rows, mustColumns(t), stats.New(), now, nil); err == nil {
		t.Error("expected context error after cancel")
	}
}

func TestProcessorDedupAcrossRuns(t *testing.T) {
	rows := [][]string{
		{"1", "05-01-2024", "Juan Pérez", "Santiago", "Llamado saliente", "912345678", "10:00", "10:02", "120", ""},
	}

	agg := stats.New()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	p := testProcessor(nil)

	for i := 0; i < 2; i++ {
		if _, err := p.Run(context.Background(), rows, mustColumns(t), agg, now, nil); err != nil {
			t.Fatalf("Run %d error: %v", i, err)
		}
	}

	if got := agg.TotalCalls(); got != 1 {
		t.Errorf("TotalCalls = %d, want 1 after duplicate upload", got)
	}
}
