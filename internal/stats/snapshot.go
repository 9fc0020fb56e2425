package stats

import (
	"fmt"
	"sort"
	"time"

	"teleasistencia-backend/internal/types"
)

// Snapshot serializes the aggregate into its plain, persistence
// friendly shape: sets become sorted arrays, maps become string-keyed
// objects. Follow-up statuses are recomputed here against the given
// "now" so a snapshot is always internally consistent.
func (a *Aggregate) Snapshot(now time.Time) *types.ReportSnapshot {
	s := &types.ReportSnapshot{
		GeneratedAt:        now,
		TotalCalls:         a.totalCalls,
		Inbound:            a.inbound,
		Outbound:           a.outbound,
		TotalDurationSec:   a.totalDurationSec,
		AvgDurationSecs:    a.AverageDurationSecs(),
		ProcessedRows:      a.ProcessedRows,
		SkippedRows:        a.SkippedRows,
		Beneficiaries:      sortedKeys(a.beneficiaries),
		Communes:           make(map[string][]string, len(a.communes)),
		HourHistogram:      make(map[string]int),
		Operators:          make(map[string]types.OperatorSnapshot, len(a.operators)),
		CallsByBeneficiary: make(map[string][]types.CallSnapshot, len(a.history)),
		LastSuccessful:     make(map[string]types.CallSnapshot, len(a.lastSuccessful)),
		SeenRecordIDs:      sortedKeys(a.seen),
	}

	for name, status := range a.Statuses(now) {
		switch status {
		case types.StatusOK:
			s.OnTrack = append(s.OnTrack, name)
		case types.StatusWarning:
			s.Pending = append(s.Pending, name)
		case types.StatusDanger:
			s.Urgent = append(s.Urgent, name)
		}
	}
	sort.Strings(s.OnTrack)
	sort.Strings(s.Pending)
	sort.Strings(s.Urgent)

	for commune, set := range a.communes {
		s.Communes[commune] = sortedKeys(set)
	}
	for hour, count := range a.hourHist {
		if count > 0 {
			s.HourHistogram[fmt.Sprintf("%02d", hour)] = count
		}
	}
	for operator, agg := range a.operators {
		s.Operators[operator] = types.OperatorSnapshot{
			Calls:         agg.calls,
			DurationSecs:  agg.durationSecs,
			Successful:    agg.successful,
			Beneficiaries: sortedKeys(agg.beneficiaries),
			ActiveDays:    sortedKeys(agg.activeDays),
		}
	}
	for name, history := range a.history {
		calls := make([]types.CallSnapshot, 0, len(history))
		for _, rec := range history {
			calls = append(calls, toCallSnapshot(rec))
		}
		s.CallsByBeneficiary[name] = calls
	}
	for name, rec := range a.lastSuccessful {
		s.LastSuccessful[name] = toCallSnapshot(rec)
	}

	return s
}

// FromSnapshot rebuilds a live aggregate from its stored shape so a
// reloaded report can keep accepting new uploads. The round trip
// reconstructs equivalent sets and maps, not just equivalent JSON.
func FromSnapshot(s *types.ReportSnapshot) (*Aggregate, error) {
	a := New()
	a.ProcessedRows = s.ProcessedRows
	a.SkippedRows = s.SkippedRows
	a.totalCalls = s.TotalCalls
	a.inbound = s.Inbound
	a.outbound = s.Outbound
	a.totalDurationSec = s.TotalDurationSec

	for _, name := range s.Beneficiaries {
		a.beneficiaries[name] = struct{}{}
	}
	for _, id := range s.SeenRecordIDs {
		a.seen[id] = struct{}{}
	}
	for commune, names := range s.Communes {
		set := make(map[string]struct{}, len(names))
		for _, name := range names {
			set[name] = struct{}{}
		}
		a.communes[commune] = set
	}
	for hour, count := range s.HourHistogram {
		var hh int
		if _, err := fmt.Sscanf(hour, "%d", &hh); err != nil || hh < 0 || hh > 23 {
			return nil, fmt.Errorf("invalid hour key %q in stored report", hour)
		}
		a.hourHist[hh] = count
	}
	for operator, snap := range s.Operators {
		agg := newOperatorAgg()
		agg.calls = snap.Calls
		agg.durationSecs = snap.DurationSecs
		agg.successful = snap.Successful
		for _, name := range snap.Beneficiaries {
			agg.beneficiaries[name] = struct{}{}
		}
		for _, day := range snap.ActiveDays {
			agg.activeDays[day] = struct{}{}
		}
		a.operators[operator] = agg
	}
	for name, calls := range s.CallsByBeneficiary {
		history := make([]types.CallRecord, 0, len(calls))
		for _, call := range calls {
			rec, err := fromCallSnapshot(name, call)
			if err != nil {
				return nil, err
			}
			history = append(history, rec)
		}
		a.history[name] = history
	}
	for name, call := range s.LastSuccessful {
		rec, err := fromCallSnapshot(name, call)
		if err != nil {
			return nil, err
		}
		a.lastSuccessful[name] = rec
	}

	return a, nil
}

func toCallSnapshot(rec types.CallRecord) types.CallSnapshot {
	return types.CallSnapshot{
		ID:           rec.ID,
		Date:         rec.Timestamp.Format(time.RFC3339),
		TimeOfDay:    rec.TimeOfDay,
		Direction:    string(rec.Direction),
		Phone:        rec.Phone,
		DurationSecs: rec.DurationSecs,
		Outcome:      rec.Outcome,
		Operator:     rec.Operator,
		Commune:      rec.Commune,
		Successful:   rec.Successful,
	}
}

func fromCallSnapshot(beneficiary string, call types.CallSnapshot) (types.CallRecord, error) {
	ts, err := time.Parse(time.RFC3339, call.Date)
	if err != nil {
		return types.CallRecord{}, fmt.Errorf("invalid stored call date %q: %w", call.Date, err)
	}
	return types.CallRecord{
		ID:           call.ID,
		Timestamp:    ts,
		TimeOfDay:    call.TimeOfDay,
		Beneficiary:  beneficiary,
		Commune:      call.Commune,
		Direction:    types.CallDirection(call.Direction),
		Phone:        call.Phone,
		DurationSecs: call.DurationSecs,
		Outcome:      call.Outcome,
		Operator:     call.Operator,
		Successful:   call.Successful,
	}, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
