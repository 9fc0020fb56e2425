package ticker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"teleasistencia-backend/internal/alerts"
	"teleasistencia-backend/internal/types"
)

// Reclassifier recomputes follow-up statuses against the current clock
type Reclassifier interface {
	Reclassify(now time.Time) *types.ReportSnapshot
}

// Broadcaster pushes events to connected dashboard clients
type Broadcaster interface {
	BroadcastJSON(v interface{})
}

// Ticker periodically re-runs follow-up classification and broadcasts
// the refreshed summary. Statuses depend on the clock, so a report left
// untouched overnight still ages into pending or urgent.
type Ticker struct {
	runner   Reclassifier
	hub      Broadcaster
	interval time.Duration
	logger   zerolog.Logger
}

// NewTicker creates a new Ticker
func NewTicker(runner Reclassifier, hub Broadcaster, interval time.Duration, logger zerolog.Logger) *Ticker {
	return &Ticker{
		runner:   runner,
		hub:      hub,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the periodic reclassification loop
func (t *Ticker) Start(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info().Dur("interval", t.interval).Msg("reclassification ticker started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info().Msg("reclassification ticker stopped")
			return

		case now := <-ticker.C:
			t.tick(now)
		}
	}
}

func (t *Ticker) tick(now time.Time) {
	snapshot := t.runner.Reclassify(now)
	if snapshot == nil {
		// Nothing ingested yet, or an upload is in flight
		return
	}

	event := alerts.SummaryEvent(snapshot, now)
	t.hub.BroadcastJSON(event)

	t.logger.Debug().
		Int("on_track", event.OnTrack).
		Int("pending", event.Pending).
		Int("urgent", event.Urgent).
		Int("alerts", len(event.Alerts)).
		Msg("broadcasted reclassified summary")
}
