// Package stats folds call records into the running aggregate report
// and derives per-beneficiary follow-up statuses from it.
package stats

import (
	"strconv"
	"time"

	"teleasistencia-backend/internal/normalize"
	"teleasistencia-backend/internal/types"
)

type operatorAgg struct {
	calls         int
	durationSecs  int
	successful    int
	beneficiaries map[string]struct{}
	activeDays    map[string]struct{} // YYYY-MM-DD
}

func newOperatorAgg() *operatorAgg {
	return &operatorAgg{
		beneficiaries: make(map[string]struct{}),
		activeDays:    make(map[string]struct{}),
	}
}

// Aggregate is the running report for one processing run. It is
// exclusively owned by the in-flight run; callers fold records into
// it one at a time and take a Snapshot at the end.
type Aggregate struct {
	ProcessedRows int
	SkippedRows   int

	totalCalls       int
	inbound          int
	outbound         int
	totalDurationSec int

	beneficiaries  map[string]struct{}
	communes       map[string]map[string]struct{}
	hourHist       [24]int
	operators      map[string]*operatorAgg
	history        map[string][]types.CallRecord
	lastSuccessful map[string]types.CallRecord
	seen           map[string]struct{}
}

// New creates an empty aggregate
func New() *Aggregate {
	return &Aggregate{
		beneficiaries:  make(map[string]struct{}),
		communes:       make(map[string]map[string]struct{}),
		operators:      make(map[string]*operatorAgg),
		history:        make(map[string][]types.CallRecord),
		lastSuccessful: make(map[string]types.CallRecord),
		seen:           make(map[string]struct{}),
	}
}

// Fold updates every aggregate bucket with one call record in a
// single pass. Records whose non-empty ID was already folded are
// skipped, so re-processing the same file does not double-count;
// records without an ID are always additive. Returns whether the
// record was folded.
func (a *Aggregate) Fold(rec types.CallRecord) bool {
	if rec.ID != "" {
		if _, dup := a.seen[rec.ID]; dup {
			return false
		}
		a.seen[rec.ID] = struct{}{}
	}

	a.totalCalls++
	switch rec.Direction {
	case types.DirectionInbound:
		a.inbound++
	case types.DirectionOutbound:
		a.outbound++
	}
	a.totalDurationSec += rec.DurationSecs

	if len(rec.TimeOfDay) >= 2 {
		if hh, err := strconv.Atoi(rec.TimeOfDay[:2]); err == nil && hh >= 0 && hh < 24 {
			a.hourHist[hh]++
		}
	}

	op := a.operators[rec.Operator]
	if op == nil {
		op = newOperatorAgg()
		a.operators[rec.Operator] = op
	}
	op.calls++
	op.durationSecs += rec.DurationSecs
	if rec.Successful {
		op.successful++
	}
	op.activeDays[rec.Timestamp.Format("2006-01-02")] = struct{}{}

	// Per-beneficiary buckets only for resolvable names; phone
	// numbers that leak into the name column stay out of dedup.
	name := rec.Beneficiary
	if name == "" || normalize.IsNumeric(name) {
		return true
	}

	a.beneficiaries[name] = struct{}{}
	op.beneficiaries[name] = struct{}{}
	a.history[name] = append(a.history[name], rec)

	if rec.Commune != "" {
		set := a.communes[rec.Commune]
		if set == nil {
			set = make(map[string]struct{})
			a.communes[rec.Commune] = set
		}
		set[name] = struct{}{}
	}

	if rec.Successful {
		if last, ok := a.lastSuccessful[name]; !ok || rec.Timestamp.After(last.Timestamp) {
			a.lastSuccessful[name] = rec
		}
	}
	return true
}

// TotalCalls returns the number of folded calls
func (a *Aggregate) TotalCalls() int { return a.totalCalls }

// BeneficiaryCount returns the number of distinct beneficiaries
func (a *Aggregate) BeneficiaryCount() int { return len(a.beneficiaries) }

// TotalDurationSecs returns the summed call duration
func (a *Aggregate) TotalDurationSecs() int { return a.totalDurationSec }

// AverageDurationSecs is 0 when no calls have been folded
func (a *Aggregate) AverageDurationSecs() float64 {
	if a.totalCalls == 0 {
		return 0
	}
	return float64(a.totalDurationSec) / float64(a.totalCalls)
}

// History returns the call history recorded for a beneficiary
func (a *Aggregate) History(beneficiary string) []types.CallRecord {
	return a.history[beneficiary]
}

// Statuses recomputes the follow-up status of every aggregated
// beneficiary from scratch. Each beneficiary lands in exactly one of
// the three states; the sets are never maintained incrementally.
func (a *Aggregate) Statuses(now time.Time) map[string]types.FollowUpStatus {
	statuses := make(map[string]types.FollowUpStatus, len(a.beneficiaries))
	for name := range a.beneficiaries {
		statuses[name] = Classify(a.history[name], now)
	}
	return statuses
}

// Coverage returns the percentage of the known beneficiaries with at
// least one call since the given time. Known beneficiaries come from
// the assignment table, so uncalled assignees drag coverage down.
func (a *Aggregate) Coverage(known []string, since time.Time) float64 {
	if len(known) == 0 {
		return 0
	}
	covered := 0
	for _, name := range known {
		for _, rec := range a.history[name] {
			if !rec.Timestamp.Before(since) {
				covered++
				break
			}
		}
	}
	return float64(covered) / float64(len(known)) * 100
}
