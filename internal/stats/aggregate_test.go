package stats

import (
	"reflect"
	"testing"
	"time"

	"teleasistencia-backend/internal/types"
)

func sampleRecord(id string, day int, dir types.CallDirection, dur int, successful bool) types.CallRecord {
	return types.CallRecord{
		ID:           id,
		Timestamp:    time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		TimeOfDay:    "10:30",
		Beneficiary:  "juan perez",
		Commune:      "Santiago",
		Direction:    dir,
		Phone:        "987654321",
		DurationSecs: dur,
		Outcome:      "Llamado exitoso",
		Operator:     "Maria Lopez",
		Successful:   successful,
	}
}

func TestFoldTotals(t *testing.T) {
	a := New()
	a.Fold(sampleRecord("r1", 5, types.DirectionOutbound, 120, true))
	a.Fold(sampleRecord("r2", 6, types.DirectionInbound, 60, false))

	if a.TotalCalls() != 2 {
		t.Errorf("TotalCalls = %d, want 2", a.TotalCalls())
	}
	if a.TotalDurationSecs() != 180 {
		t.Errorf("TotalDurationSecs = %d, want 180", a.TotalDurationSecs())
	}
	if a.AverageDurationSecs() != 90 {
		t.Errorf("AverageDurationSecs = %v, want 90", a.AverageDurationSecs())
	}
	if a.BeneficiaryCount() != 1 {
		t.Errorf("BeneficiaryCount = %d, want 1", a.BeneficiaryCount())
	}
}

func TestAverageDurationEmpty(t *testing.T) {
	if got := New().AverageDurationSecs(); got != 0 {
		t.Errorf("AverageDurationSecs on empty aggregate = %v, want 0", got)
	}
}

func TestFoldDedupByID(t *testing.T) {
	a := New()
	records := []types.CallRecord{
		sampleRecord("r1", 5, types.DirectionOutbound, 120, true),
		sampleRecord("r2", 6, types.DirectionInbound, 60, false),
	}

	// Folding the same chunk twice must keep the totals constant
	for run := 0; run < 2; run++ {
		for _, rec := range records {
			a.Fold(rec)
		}
	}

	if a.TotalCalls() != 2 {
		t.Errorf("TotalCalls after refold = %d, want 2", a.TotalCalls())
	}
	if a.TotalDurationSecs() != 180 {
		t.Errorf("TotalDurationSecs after refold = %d, want 180", a.TotalDurationSecs())
	}
}

func TestFoldWithoutIDIsAdditive(t *testing.T) {
	a := New()
	rec := sampleRecord("", 5, types.DirectionOutbound, 120, true)
	a.Fold(rec)
	a.Fold(rec)

	if a.TotalCalls() != 2 {
		t.Errorf("TotalCalls = %d, want 2 (no ID means no dedup)", a.TotalCalls())
	}
}

func TestFoldSkipsNumericBeneficiary(t *testing.T) {
	a := New()
	rec := sampleRecord("r1", 5, types.DirectionInbound, 30, false)
	rec.Beneficiary = "987654321"
	a.Fold(rec)

	if a.TotalCalls() != 1 {
		t.Errorf("TotalCalls = %d, want 1 (still counted globally)", a.TotalCalls())
	}
	if a.BeneficiaryCount() != 0 {
		t.Errorf("BeneficiaryCount = %d, want 0 (numeric name excluded)", a.BeneficiaryCount())
	}
}

func TestFoldHourHistogram(t *testing.T) {
	a := New()
	r1 := sampleRecord("r1", 5, types.DirectionInbound, 30, false)
	r1.TimeOfDay = "09:15"
	r2 := sampleRecord("r2", 5, types.DirectionInbound, 30, false)
	r2.TimeOfDay = "09:45"
	r3 := sampleRecord("r3", 5, types.DirectionInbound, 30, false)
	r3.TimeOfDay = ""
	a.Fold(r1)
	a.Fold(r2)
	a.Fold(r3)

	s := a.Snapshot(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	if s.HourHistogram["09"] != 2 {
		t.Errorf("HourHistogram[09] = %d, want 2", s.HourHistogram["09"])
	}
	if _, ok := s.HourHistogram[""]; ok {
		t.Error("empty time of day must not produce a histogram bucket")
	}
}

func TestCoverage(t *testing.T) {
	a := New()
	a.Fold(sampleRecord("r1", 10, types.DirectionOutbound, 60, true))

	known := []string{"juan perez", "rosa diaz"}
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := a.Coverage(known, since); got != 50 {
		t.Errorf("Coverage = %v, want 50", got)
	}
	if got := a.Coverage(nil, since); got != 0 {
		t.Errorf("Coverage with no known beneficiaries = %v, want 0", got)
	}
}

func TestSnapshotStatusPartition(t *testing.T) {
	evalTime := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)

	a := New()
	ok := sampleRecord("r1", 0, types.DirectionOutbound, 60, true)
	ok.Timestamp = evalTime.AddDate(0, 0, -5)
	a.Fold(ok)

	pending := sampleRecord("r2", 0, types.DirectionOutbound, 60, true)
	pending.Beneficiary = "rosa diaz"
	pending.Timestamp = evalTime.AddDate(0, 0, -20)
	a.Fold(pending)

	urgent := sampleRecord("r3", 0, types.DirectionOutbound, 60, false)
	urgent.Beneficiary = "pedro soto"
	urgent.Successful = false
	urgent.Timestamp = evalTime.AddDate(0, 0, -40)
	a.Fold(urgent)

	s := a.Snapshot(evalTime)

	seen := make(map[string]int)
	for _, name := range s.OnTrack {
		seen[name]++
	}
	for _, name := range s.Pending {
		seen[name]++
	}
	for _, name := range s.Urgent {
		seen[name]++
	}
	for _, name := range s.Beneficiaries {
		if seen[name] != 1 {
			t.Errorf("beneficiary %q appears in %d status sets, want exactly 1", name, seen[name])
		}
	}

	if len(s.OnTrack) != 1 || s.OnTrack[0] != "juan perez" {
		t.Errorf("OnTrack = %v, want [juan perez]", s.OnTrack)
	}
	if len(s.Pending) != 1 || s.Pending[0] != "rosa diaz" {
		t.Errorf("Pending = %v, want [rosa diaz]", s.Pending)
	}
	if len(s.Urgent) != 1 || s.Urgent[0] != "pedro soto" {
		t.Errorf("Urgent = %v, want [pedro soto]", s.Urgent)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	a := New()
	a.ProcessedRows = 3
	a.SkippedRows = 1
	a.Fold(sampleRecord("r1", 5, types.DirectionOutbound, 120, true))
	a.Fold(sampleRecord("r2", 6, types.DirectionInbound, 60, false))
	other := sampleRecord("r3", 7, types.DirectionOutbound, 90, true)
	other.Beneficiary = "rosa diaz"
	other.Commune = "Providencia"
	other.Operator = types.OperatorUnidentified
	a.Fold(other)

	evalTime := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	first := a.Snapshot(evalTime)

	restored, err := FromSnapshot(first)
	if err != nil {
		t.Fatalf("FromSnapshot error: %v", err)
	}

	second := restored.Snapshot(evalTime)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("snapshot round trip not equivalent:\nfirst:  %+v\nsecond: %+v", first, second)
	}

	// The restored aggregate must keep deduplicating
	restored.Fold(sampleRecord("r1", 5, types.DirectionOutbound, 120, true))
	if restored.TotalCalls() != 3 {
		t.Errorf("TotalCalls after refold into restored aggregate = %d, want 3", restored.TotalCalls())
	}
}
