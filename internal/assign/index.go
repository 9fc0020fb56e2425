// Package assign resolves which teleoperator is responsible for a
// call, from a prebuilt index over the assignment table.
package assign

import (
	"sync"
	"time"

	"teleasistencia-backend/internal/normalize"
	"teleasistencia-backend/internal/types"
)

type entry struct {
	operator  string
	createdAt time.Time
}

// Index maps normalized beneficiary names and phone numbers to their
// assigned operator. It is built once per ingestion run; precomputing
// the lookup avoids rescanning the assignment table for every row.
type Index struct {
	mu      sync.RWMutex
	byName  map[string]entry
	byPhone map[string]entry
}

// Build constructs an index from the assignment table. When duplicate
// assignments bind the same beneficiary or phone to different
// operators, the most recently created assignment wins.
func Build(assignments []types.Assignment) *Index {
	idx := &Index{
		byName:  make(map[string]entry, len(assignments)),
		byPhone: make(map[string]entry),
	}
	for _, a := range assignments {
		e := entry{operator: a.Operator, createdAt: a.CreatedAt}
		if key := normalize.Name(a.Beneficiary); key != "" {
			idx.insertName(key, e)
		}
		for _, phone := range a.Phones {
			if key := normalize.Phone(phone); key != "" {
				idx.insertPhone(key, e)
			}
		}
	}
	return idx
}

func (idx *Index) insertName(key string, e entry) {
	if cur, ok := idx.byName[key]; ok && !e.createdAt.After(cur.createdAt) {
		return
	}
	idx.byName[key] = e
}

func (idx *Index) insertPhone(key string, e entry) {
	if cur, ok := idx.byPhone[key]; ok && !e.createdAt.After(cur.createdAt) {
		return
	}
	idx.byPhone[key] = e
}

// Resolve returns the operator assigned to the given phone and/or
// normalized beneficiary name. An exact name hit wins over a phone
// hit; with neither present it returns the unidentified sentinel so
// unmatched calls still land in their own reporting bucket.
func (idx *Index) Resolve(phone, nameKey string) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if nameKey != "" {
		if e, ok := idx.byName[nameKey]; ok {
			return e.operator
		}
	}
	if key := normalize.Phone(phone); key != "" {
		if e, ok := idx.byPhone[key]; ok {
			return e.operator
		}
	}
	return types.OperatorUnidentified
}

// Size returns the number of distinct beneficiary names indexed
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byName)
}

// Beneficiaries returns the normalized names of all assigned
// beneficiaries, used as the coverage denominator.
func (idx *Index) Beneficiaries() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	names := make([]string, 0, len(idx.byName))
	for name := range idx.byName {
		names = append(names, name)
	}
	return names
}
