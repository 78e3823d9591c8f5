// Package dashboard computes the per-line operational snapshot served to
// dashboard clients, grounded on the original ingestion core's
// commands::dashboard::get_dashboard_snapshot.
package dashboard

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/RyugaHideki7/visor/internal/fileproc"
	"github.com/RyugaHideki7/visor/internal/store"
	"github.com/RyugaHideki7/visor/pkg/types"
)

// Aggregator computes dashboard snapshots from the embedded store.
type Aggregator struct {
	store *store.Store
}

func New(st *store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// Snapshot returns a DashboardLine for every configured line.
func (a *Aggregator) Snapshot(ctx context.Context) ([]types.DashboardLine, error) {
	lines, err := a.store.ListLines(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]types.DashboardLine, 0, len(lines))
	for _, line := range lines {
		dl, err := a.snapshotLine(ctx, line)
		if err != nil {
			continue
		}
		out = append(out, dl)
	}
	return out, nil
}

func (a *Aggregator) snapshotLine(ctx context.Context, line *types.Line) (types.DashboardLine, error) {
	lastProcessed, err := a.store.LastProcessed(ctx, line.ID)
	if err != nil {
		return types.DashboardLine{}, err
	}

	now := time.Now().Local()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	totalProcessed, err := a.store.CountSuccessSince(ctx, line.ID, todayStart)
	if err != nil {
		return types.DashboardLine{}, err
	}

	dl := types.DashboardLine{
		ID:             line.ID,
		Name:           line.Name,
		Site:           line.Site,
		Active:         line.Active,
		LastProcessed:  lastProcessed,
		TotalProcessed: totalProcessed,
		PendingFiles:   countMatching(line.Path, line.Prefix),
		ErrorFiles:     countMatching(line.RejectedPath, line.Prefix),
		Status:         status(line, lastProcessed),
	}
	return dl, nil
}

// status computes MARCHE/ALERTE/ARRET (never ERREUR) exactly per the original's
// rule: an inactive line is always ARRET; otherwise the line's age since
// its last processed file is compared against its own check/alert
// thresholds, and a line that has never processed anything is ALERTE.
func status(line *types.Line, lastProcessed *time.Time) string {
	if !line.Active {
		return types.StatusArret
	}
	if lastProcessed == nil {
		return types.StatusAlerte
	}

	ageMinutes := time.Since(*lastProcessed).Minutes()
	switch {
	case ageMinutes <= float64(line.IntervalCheck):
		return types.StatusMarche
	case ageMinutes <= float64(line.IntervalAlert):
		return types.StatusAlerte
	default:
		return types.StatusArret
	}
}

// countMatching counts files in dir whose name matches the line's
// (prefix, extension) predicate; an empty or unreadable dir counts as 0.
func countMatching(dir, prefix string) int {
	if dir == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if fileproc.Recognized(filepath.Base(entry.Name()), prefix) {
			count++
		}
	}
	return count
}
