package ingest

import "sync"

// WarningBuffer keeps the most recent row warnings so the API can
// surface why rows were skipped without holding the whole log.
type WarningBuffer struct {
	mu       sync.RWMutex
	warnings []RowWarning
	max      int
}

// NewWarningBuffer creates a buffer that retains up to max warnings
func NewWarningBuffer(max int) *WarningBuffer {
	if max <= 0 {
		max = 100
	}
	return &WarningBuffer{max: max}
}

// Add appends a warning, evicting the oldest once full
func (b *WarningBuffer) Add(w RowWarning) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.warnings = append(b.warnings, w)
	if len(b.warnings) > b.max {
		b.warnings = b.warnings[len(b.warnings)-b.max:]
	}
}

// Recent returns a copy of the retained warnings, oldest first
func (b *WarningBuffer) Recent() []RowWarning {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]RowWarning, len(b.warnings))
	copy(out, b.warnings)
	return out
}

// Clear drops all retained warnings
func (b *WarningBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.warnings = nil
}

// Size returns the number of retained warnings
func (b *WarningBuffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.warnings)
}
