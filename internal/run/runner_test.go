package run

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"teleasistencia-backend/internal/storage"
	"teleasistencia-backend/internal/types"
)

type memStore struct {
	mu          sync.Mutex
	reports     []*types.ReportSnapshot
	assignments map[string]types.Assignment
	saveErr     error
}

func newMemStore() *memStore {
	return &memStore{assignments: make(map[string]types.Assignment)}
}

func (s *memStore) SaveReport(_ context.Context, snapshot *types.ReportSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.reports = append(s.reports, snapshot)
	return nil
}

func (s *memStore) GetLatestReport(_ context.Context) (*types.ReportSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reports) == 0 {
		return nil, storage.ErrNotFound
	}
	return s.reports[len(s.reports)-1], nil
}

func (s *memStore) SaveAssignments(_ context.Context, assignments []types.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range assignments {
		s.assignments[a.ID] = a
	}
	return nil
}

func (s *memStore) ListAssignments(_ context.Context) ([]types.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Assignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		out = append(out, a)
	}
	return out, nil
}

func (s *memStore) TruncateAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = nil
	s.assignments = make(map[string]types.Assignment)
	return nil
}

type captureHub struct {
	mu     sync.Mutex
	events []interface{}
}

func (h *captureHub) BroadcastJSON(v interface{}) {
	h.mu.Lock()
	h.events = append(h.events, v)
	h.mu.Unlock()
}

func (h *captureHub) all() []interface{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]interface{}(nil), h.events...)
}

const sampleCSV = `id,fecha,beneficiario,comuna,evento,fono,ini,fin,seg,resultado
1,05-01-2024,Juan Pérez,Santiago,Llamado saliente,912345678,10:00,10:02,120,Llamado exitoso
2,20-01-2024,juan perez,Santiago,Llamado entrante,912345678,11:00,11:01,60,
3,06-01-2024,Ana Soto,Providencia,Llamado saliente,987654321,09:00,09:01,30,
`

func newTestRunner(store storage.Store, hub Broadcaster) *Runner {
	return NewRunner(store, hub, 0, 0, zerolog.New(&bytes.Buffer{}))
}

func TestRunnerProcess(t *testing.T) {
	store := newMemStore()
	hub := &captureHub{}
	r := newTestRunner(store, hub)

	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	snapshot, err := r.Process(context.Background(), "calls.csv", strings.NewReader(sampleCSV), now)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if snapshot.TotalCalls != 3 {
		t.Errorf("TotalCalls = %d, want 3", snapshot.TotalCalls)
	}
	if len(snapshot.Beneficiaries) != 2 {
		t.Errorf("Beneficiaries = %v, want 2 distinct names", snapshot.Beneficiaries)
	}
	if snapshot.RunID == "" {
		t.Error("RunID must be set")
	}

	if got := r.Latest(); got != snapshot {
		t.Error("Latest should return the snapshot just produced")
	}
	if len(store.reports) != 1 {
		t.Errorf("persisted reports = %d, want 1", len(store.reports))
	}

	var sawSummary bool
	for _, e := range hub.all() {
		if s, ok := e.(types.ReportSummaryEvent); ok {
			sawSummary = true
			if s.TotalCalls != 3 {
				t.Errorf("summary TotalCalls = %d, want 3", s.TotalCalls)
			}
			// Juan Pérez is pending and Ana Soto urgent at this
			// clock, so the upload summary carries both alerts.
			if len(s.Alerts) != 2 {
				t.Errorf("summary alerts = %v, want 2", s.Alerts)
			}
		}
	}
	if !sawSummary {
		t.Error("expected a report_summary broadcast")
	}
}

func TestRunnerProcessStorageFailureNonFatal(t *testing.T) {
	store := newMemStore()
	store.saveErr = &storage.StorageError{Op: "save report", Err: errors.New("down")}
	r := newTestRunner(store, &captureHub{})

	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	snapshot, err := r.Process(context.Background(), "calls.csv", strings.NewReader(sampleCSV), now)
	if err != nil {
		t.Fatalf("a storage failure must not fail the run: %v", err)
	}
	if snapshot == nil || r.Latest() == nil {
		t.Error("snapshot must still be served from memory")
	}
}

func TestRunnerSingleFlight(t *testing.T) {
	r := newTestRunner(newMemStore(), &captureHub{})

	r.mu.Lock()
	r.running = true
	r.mu.Unlock()

	_, err := r.Process(context.Background(), "calls.csv", strings.NewReader(sampleCSV), time.Now())
	if !errors.Is(err, ErrRunInFlight) {
		t.Fatalf("err = %v, want ErrRunInFlight", err)
	}

	if err := r.Reset(); !errors.Is(err, ErrRunInFlight) {
		t.Fatalf("Reset during a run: err = %v, want ErrRunInFlight", err)
	}
}

func TestRunnerRestore(t *testing.T) {
	store := newMemStore()
	hub := &captureHub{}

	first := newTestRunner(store, hub)
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	if _, err := first.Process(context.Background(), "calls.csv", strings.NewReader(sampleCSV), now); err != nil {
		t.Fatalf("Process: %v", err)
	}

	second := newTestRunner(store, hub)
	second.Restore(context.Background())

	latest := second.Latest()
	if latest == nil || latest.TotalCalls != 3 {
		t.Fatalf("restored latest = %+v", latest)
	}

	// The restored aggregate keeps deduplicating: re-uploading the same
	// sheet must not inflate totals.
	snapshot, err := second.Process(context.Background(), "calls.csv", strings.NewReader(sampleCSV), now)
	if err != nil {
		t.Fatalf("Process after restore: %v", err)
	}
	if snapshot.TotalCalls != 3 {
		t.Errorf("TotalCalls after re-upload = %d, want 3", snapshot.TotalCalls)
	}
}

func TestRunnerImportAssignmentsAndCoverage(t *testing.T) {
	store := newMemStore()
	r := newTestRunner(store, &captureHub{})
	ctx := context.Background()

	assignments := []types.Assignment{
		{ID: "a1", Beneficiary: "Juan Pérez", Phones: []string{"912345678"}, Operator: "María Rojas",
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "a2", Beneficiary: "Sin Llamadas", Phones: []string{"111111111"}, Operator: "Carla Díaz",
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	if err := r.ImportAssignments(ctx, assignments); err != nil {
		t.Fatalf("ImportAssignments: %v", err)
	}
	if r.Index().Size() != 2 {
		t.Fatalf("index size = %d, want 2", r.Index().Size())
	}

	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	snapshot, err := r.Process(ctx, "calls.csv", strings.NewReader(sampleCSV), now)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	// One of two assigned beneficiaries was called inside the window.
	if snapshot.CoveragePct != 50 {
		t.Errorf("CoveragePct = %v, want 50", snapshot.CoveragePct)
	}

	history := snapshot.CallsByBeneficiary["juan perez"]
	if len(history) == 0 || history[0].Operator != "María Rojas" {
		t.Errorf("operator resolution through assignments failed: %+v", history)
	}
}

func TestRunnerReclassify(t *testing.T) {
	r := newTestRunner(newMemStore(), &captureHub{})
	ctx := context.Background()

	if got := r.Reclassify(time.Now()); got != nil {
		t.Fatal("Reclassify before any upload should be a no-op")
	}

	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	if _, err := r.Process(ctx, "calls.csv", strings.NewReader(sampleCSV), now); err != nil {
		t.Fatalf("Process: %v", err)
	}

	// At ingestion time the last call is recent. Months later every
	// beneficiary has aged into urgent.
	later := now.AddDate(0, 6, 0)
	snapshot := r.Reclassify(later)
	if snapshot == nil {
		t.Fatal("Reclassify returned nil after upload")
	}
	if len(snapshot.Urgent) != len(snapshot.Beneficiaries) {
		t.Errorf("Urgent = %v, want all beneficiaries after six idle months", snapshot.Urgent)
	}
	if r.Latest() != snapshot {
		t.Error("Reclassify must refresh the served snapshot")
	}
}
