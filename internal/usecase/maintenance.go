package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"NewsDesk/internal/archive"
)

// Clearer is any cache that can drop all of its entries.
type Clearer interface {
	Clear(ctx context.Context) int
}

// ClearRequest selects what a cache reset touches.
type ClearRequest struct {
	ClearAll      bool `json:"clearAll"`
	RemoveArchive bool `json:"removeArchive"`
}

// ClearReport summarizes a cache reset.
type ClearReport struct {
	Backup         string         `json:"backup,omitempty"`
	Cleared        map[string]int `json:"cleared"`
	ArchiveRemoved int            `json:"archiveRemoved"`
}

// Maintenance resets caches and archive content on operator request.
type Maintenance struct {
	archive *archive.Store
	caches  map[string]Clearer
	today   func() string
	now     func() time.Time
	logger  *slog.Logger
}

// NewMaintenance registers named caches. today yields the archive key for removals.
func NewMaintenance(store *archive.Store, caches map[string]Clearer, today func() string, logger *slog.Logger) *Maintenance {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Maintenance{
		archive: store,
		caches:  caches,
		today:   today,
		now:     time.Now,
		logger:  logger.With("component", "maintenance"),
	}
}

// ClearCaches snapshots the archive, empties every registered cache and
// optionally removes today's archive day, or every day with ClearAll.
func (m *Maintenance) ClearCaches(ctx context.Context, req ClearRequest) (ClearReport, error) {
	report := ClearReport{Cleared: make(map[string]int, len(m.caches))}

	label := m.now().UTC().Format("2006-01-02T15-04-05")
	backup, err := m.archive.Backup(ctx, label)
	if err != nil {
		m.logger.Warn("archive backup failed", "error", err)
	} else {
		report.Backup = backup
	}

	names := make([]string, 0, len(m.caches))
	for name := range m.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		report.Cleared[name] = m.caches[name].Clear(ctx)
	}

	if req.RemoveArchive {
		var dates []string
		if !req.ClearAll {
			dates = []string{m.today()}
		}
		removed, err := m.archive.Remove(ctx, dates...)
		if err != nil {
			return report, fmt.Errorf("remove archive: %w", err)
		}
		report.ArchiveRemoved = removed
	}

	m.logger.Info("caches cleared", "cleared", report.Cleared, "archive_removed", report.ArchiveRemoved, "backup", report.Backup)
	return report, nil
}
