package run

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"teleasistencia-backend/internal/alerts"
	"teleasistencia-backend/internal/assign"
	"teleasistencia-backend/internal/ingest"
	"teleasistencia-backend/internal/metrics"
	"teleasistencia-backend/internal/stats"
	"teleasistencia-backend/internal/storage"
	"teleasistencia-backend/internal/types"
)

// ErrRunInFlight is returned when an upload arrives while another sheet
// is still being processed. Uploads are strictly serialized.
var ErrRunInFlight = errors.New("another upload is currently being processed")

// Broadcaster pushes events to connected dashboard clients
type Broadcaster interface {
	BroadcastJSON(v interface{})
}

// Runner owns the ingestion state: the live aggregate, the assignment
// index and the latest report snapshot. It serializes uploads and keeps
// the persisted copy in sync.
type Runner struct {
	store     storage.Store
	hub       Broadcaster
	warnings  *ingest.WarningBuffer
	logger    zerolog.Logger
	chunkSize int
	maxBytes  int64

	mu      sync.Mutex
	running bool
	agg     *stats.Aggregate
	index   *assign.Index
	latest  *types.ReportSnapshot
}

// NewRunner creates a Runner with a fresh aggregate and an empty
// assignment index
func NewRunner(store storage.Store, hub Broadcaster, chunkSize int, maxBytes int64, logger zerolog.Logger) *Runner {
	if chunkSize <= 0 {
		chunkSize = ingest.DefaultChunkSize
	}
	if maxBytes <= 0 {
		maxBytes = ingest.DefaultMaxUploadBytes
	}
	return &Runner{
		store:     store,
		hub:       hub,
		warnings:  ingest.NewWarningBuffer(0),
		logger:    logger,
		chunkSize: chunkSize,
		maxBytes:  maxBytes,
		agg:       stats.New(),
		index:     assign.Build(nil),
	}
}

// Restore loads persisted state on startup. Missing state is not an
// error; storage failures are logged and the runner starts empty.
func (r *Runner) Restore(ctx context.Context) {
	assignments, err := r.store.ListAssignments(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("could not restore assignments")
	} else if len(assignments) > 0 {
		r.mu.Lock()
		r.index = assign.Build(assignments)
		r.mu.Unlock()
		r.logger.Info().Int("assignments", len(assignments)).Msg("assignment index restored")
	}

	snapshot, err := r.store.GetLatestReport(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		r.logger.Warn().Err(err).Msg("could not restore latest report")
		return
	}

	agg, err := stats.FromSnapshot(snapshot)
	if err != nil {
		r.logger.Warn().Err(err).Msg("persisted report is not restorable, starting empty")
		return
	}

	r.mu.Lock()
	r.agg = agg
	r.latest = snapshot
	r.mu.Unlock()
	r.logger.Info().
		Str("run_id", snapshot.RunID).
		Time("generated_at", snapshot.GeneratedAt).
		Msg("latest report restored")
}

// Process ingests one uploaded sheet and produces a new report
// snapshot. Only one upload runs at a time; concurrent calls get
// ErrRunInFlight.
func (r *Runner) Process(ctx context.Context, filename string, file io.Reader, now time.Time) (*types.ReportSnapshot, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrRunInFlight
	}
	r.running = true
	agg, index := r.agg, r.index
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	runID := uuid.New().String()
	started := time.Now()

	header, rows, err := ingest.ReadRows(filename, file, r.maxBytes)
	if err != nil {
		metrics.Get().RecordRunError()
		return nil, err
	}

	cols, err := ingest.ResolveColumns(header)
	if err != nil {
		metrics.Get().RecordRunError()
		return nil, err
	}

	progress := func(processed, total int) {
		percent := float64(0)
		if total > 0 {
			percent = float64(processed) / float64(total) * 100
		}
		r.hub.BroadcastJSON(types.ProgressEvent{
			Type:      "ingest_progress",
			RunID:     runID,
			Processed: processed,
			Total:     total,
			Percent:   percent,
		})
	}

	processor := ingest.NewProcessor(r.chunkSize, index, r.warnings, r.logger)
	result, err := processor.Run(ctx, rows, cols, agg, now, progress)
	if err != nil {
		metrics.Get().RecordRunError()
		return nil, err
	}
	metrics.Get().RecordRun(time.Since(started), result.Processed, result.Skipped)

	snapshot := agg.Snapshot(now)
	snapshot.RunID = runID
	snapshot.CoveragePct = agg.Coverage(index.Beneficiaries(), now.AddDate(0, 0, -stats.DangerWindowDays))

	if err := r.store.SaveReport(ctx, snapshot); err != nil {
		// A report that fails to persist is still served from memory.
		metrics.Get().RecordStorageError()
		r.logger.Error().Err(err).Str("run_id", runID).Msg("failed to persist report")
	} else {
		metrics.Get().RecordReportSaved()
	}

	r.mu.Lock()
	r.latest = snapshot
	r.mu.Unlock()

	metrics.Get().UpdateFollowUpStats(agg.Statuses(now))
	r.hub.BroadcastJSON(alerts.SummaryEvent(snapshot, now))

	r.logger.Info().
		Str("run_id", runID).
		Int("processed", result.Processed).
		Int("skipped", result.Skipped).
		Int("total_calls", snapshot.TotalCalls).
		Dur("elapsed", time.Since(started)).
		Msg("ingestion run complete")

	return snapshot, nil
}

// Latest returns the most recent report snapshot, or nil before the
// first upload
func (r *Runner) Latest() *types.ReportSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest
}

// Warnings returns the row warnings collected across runs
func (r *Runner) Warnings() []ingest.RowWarning {
	return r.warnings.Recent()
}

// Reclassify recomputes follow-up statuses against the current clock
// and refreshes the in-memory snapshot. It is a no-op while an upload
// is in flight or before any data has been ingested.
func (r *Runner) Reclassify(now time.Time) *types.ReportSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running || r.latest == nil {
		return nil
	}

	snapshot := r.agg.Snapshot(now)
	snapshot.RunID = r.latest.RunID
	snapshot.CoveragePct = r.agg.Coverage(r.index.Beneficiaries(), now.AddDate(0, 0, -stats.DangerWindowDays))
	r.latest = snapshot

	metrics.Get().UpdateFollowUpStats(r.agg.Statuses(now))
	return snapshot
}

// ImportAssignments persists a new assignment batch and rebuilds the
// lookup index from the full persisted table
func (r *Runner) ImportAssignments(ctx context.Context, assignments []types.Assignment) error {
	if err := r.store.SaveAssignments(ctx, assignments); err != nil {
		metrics.Get().RecordStorageError()
		return err
	}

	all, err := r.store.ListAssignments(ctx)
	if err != nil {
		metrics.Get().RecordStorageError()
		return err
	}

	r.mu.Lock()
	r.index = assign.Build(all)
	r.mu.Unlock()

	r.logger.Info().
		Int("imported", len(assignments)).
		Int("indexed", len(all)).
		Msg("assignment index rebuilt")
	return nil
}

// Index returns the current assignment index
func (r *Runner) Index() *assign.Index {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index
}

// Reset discards all in-memory ingestion state. Assignments survive, a
// reset only clears call data.
func (r *Runner) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrRunInFlight
	}
	r.agg = stats.New()
	r.latest = nil
	r.warnings.Clear()
	r.logger.Info().Msg("ingestion state reset")
	return nil
}
