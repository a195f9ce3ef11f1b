package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
)

// ErrNotFound is returned for dates or articles that are not archived.
var ErrNotFound = errors.New("not found in archive")

// ClaimResult tells a generator what to do after Claim.
type ClaimResult int

const (
	// Claimed means the caller now owns the in-flight flag and must Complete or Release.
	Claimed ClaimResult = iota
	// Cached means a completed article exists and is returned as is.
	Cached
	// InFlight means another caller is generating the same key.
	InFlight
)

// Store is the day-keyed archive. Every mutation is written through to the
// persistence backend before the call returns.
type Store struct {
	persist ports.ArchivePersistence
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	records map[string]*domain.ArchiveRecord
}

// NewStore builds an empty store over persist.
func NewStore(persist ports.ArchivePersistence, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		persist: persist,
		logger:  logger.With("component", "archive"),
		now:     time.Now,
		records: map[string]*domain.ArchiveRecord{},
	}
}

// Load replaces the in-memory map with the persisted one. A missing or
// unreadable document starts an empty archive. In-flight flags are cleared
// because nothing can be generating right after a restart.
func (s *Store) Load(ctx context.Context) int {
	loaded, err := s.persist.Load(ctx)
	if err != nil {
		s.logger.Warn("archive unreadable, starting empty", "error", err)
		loaded = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = map[string]*domain.ArchiveRecord{}
	cleared := 0
	for date, rec := range loaded {
		if rec == nil {
			continue
		}
		rec.EnsureMaps()
		rec.Date = date
		for key := range rec.GeneratingArticles {
			delete(rec.GeneratingArticles, key)
			cleared++
		}
		for id, script := range rec.YoutubeScripts {
			if script != nil && !script.Completed {
				delete(rec.YoutubeScripts, id)
			}
		}
		s.records[date] = rec
	}

	s.logger.Info("archive loaded", "days", len(s.records), "cleared_flags", cleared)
	if cleared > 0 {
		s.saveLocked(ctx)
	}
	return len(s.records)
}

// Prune removes days older than maxAgeDays relative to now and saves only if
// something was removed.
func (s *Store) Prune(ctx context.Context, maxAgeDays int, now time.Time) []string {
	cutoff := startOfDay(now).AddDate(0, 0, -maxAgeDays)

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for date := range s.records {
		day, err := time.ParseInLocation(domain.DateLayout, date, now.Location())
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			delete(s.records, date)
			removed = append(removed, date)
		}
	}
	sort.Strings(removed)

	if len(removed) > 0 {
		s.logger.Info("archive pruned", "removed", len(removed), "max_age_days", maxAgeDays)
		s.saveLocked(ctx)
	}
	return removed
}

// Topics returns the archived topics for date.
func (s *Store) Topics(date string) ([]domain.Topic, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[date]
	if !ok || len(rec.Topics) == 0 {
		return nil, false
	}
	return append([]domain.Topic(nil), rec.Topics...), true
}

// PutTopics stores the day's topics and stats.
func (s *Store) PutTopics(ctx context.Context, date string, topics []domain.Topic, rssRatio float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.recordLocked(date)
	rec.Topics = append([]domain.Topic(nil), topics...)
	rec.Stats.TopicsGenerated = len(topics)
	rec.Stats.RSSRatio = rssRatio
	return s.saveLocked(ctx)
}

// Claim checks the cache and the in-flight flag for (date, variant, topic) and
// sets the flag when neither applies. Check and set happen under one lock.
func (s *Store) Claim(ctx context.Context, date string, v domain.Variant, topicID int) (domain.Article, ClaimResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.recordLocked(date)
	if art, ok := rec.Lookup(v, topicID); ok && art.Cacheable() {
		return art, Cached
	}
	key := domain.FlagKey(v, topicID)
	if rec.GeneratingArticles[key] {
		return domain.Article{}, InFlight
	}

	rec.GeneratingArticles[key] = true
	if v == domain.VariantVideoScript {
		rec.YoutubeScripts[topicID] = &domain.VideoScript{
			Article:  domain.Article{Variant: v},
			Progress: domain.ProgressPreparing,
			Status:   domain.ProgressLabel(domain.ProgressPreparing),
		}
	}
	s.saveLocked(ctx)
	return domain.Article{}, Claimed
}

// Complete stores art, clears the in-flight flag and persists.
func (s *Store) Complete(ctx context.Context, date string, topicID int, art domain.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.recordLocked(date)
	stored := art
	switch art.Variant {
	case domain.VariantStandard:
		rec.Articles[topicID] = &stored
	case domain.VariantInformal:
		rec.ArticlesV2[topicID] = &stored
	case domain.VariantVideoScript:
		rec.YoutubeScripts[topicID] = &domain.VideoScript{
			Article:  stored,
			Progress: domain.ProgressDone,
			Status:   domain.ProgressLabel(domain.ProgressDone),
		}
	default:
		return fmt.Errorf("complete article: unknown variant %q", art.Variant)
	}
	delete(rec.GeneratingArticles, domain.FlagKey(art.Variant, topicID))
	rec.Stats.ArticlesGenerated = rec.ArticleCount()
	return s.saveLocked(ctx)
}

// Release clears an in-flight flag without storing anything.
func (s *Store) Release(ctx context.Context, date string, v domain.Variant, topicID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[date]
	if !ok {
		return
	}
	delete(rec.GeneratingArticles, domain.FlagKey(v, topicID))
	if v == domain.VariantVideoScript {
		if script, ok := rec.YoutubeScripts[topicID]; ok && script != nil && !script.Completed {
			delete(rec.YoutubeScripts, topicID)
		}
	}
	s.saveLocked(ctx)
}

// UpdateProgress records a video script checkpoint.
func (s *Store) UpdateProgress(ctx context.Context, date string, topicID, progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.recordLocked(date)
	script, ok := rec.YoutubeScripts[topicID]
	if !ok || script == nil {
		script = &domain.VideoScript{Article: domain.Article{Variant: domain.VariantVideoScript}}
		rec.YoutubeScripts[topicID] = script
	}
	if script.Completed {
		return
	}
	script.Progress = progress
	script.Status = domain.ProgressLabel(progress)
	s.saveLocked(ctx)
}

// Article returns a stored article, completed or not.
func (s *Store) Article(date string, v domain.Variant, topicID int) (domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[date]
	if !ok {
		return domain.Article{}, ErrNotFound
	}
	art, ok := rec.Lookup(v, topicID)
	if !ok || !art.Completed {
		return domain.Article{}, ErrNotFound
	}
	return art, nil
}

// Status reports the generation state for a polling client.
func (s *Store) Status(date string, v domain.Variant, topicID int) domain.GenerationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[date]
	if !ok {
		return absentStatus()
	}

	if v == domain.VariantVideoScript {
		if script, ok := rec.YoutubeScripts[topicID]; ok && script != nil {
			return domain.GenerationStatus{
				Completed: script.Completed,
				Progress:  script.Progress,
				Status:    script.Status,
				State:     script.State(),
			}
		}
	}

	if art, ok := rec.Lookup(v, topicID); ok && art.Completed {
		return domain.GenerationStatus{
			Completed: true,
			Progress:  domain.ProgressDone,
			Status:    domain.ProgressLabel(domain.ProgressDone),
			State:     art.State(),
		}
	}
	if rec.GeneratingArticles[domain.FlagKey(v, topicID)] {
		return domain.GenerationStatus{Status: "generating", State: domain.StateGenerating}
	}
	return absentStatus()
}

func absentStatus() domain.GenerationStatus {
	return domain.GenerationStatus{Status: "not started", State: domain.StateAbsent}
}

// DayView is an archived day with per-variant article counts.
type DayView struct {
	Date           string         `json:"date"`
	Topics         []domain.Topic `json:"topics"`
	Articles       int            `json:"articles"`
	ArticlesV2     int            `json:"articlesV2"`
	YoutubeScripts int            `json:"youtubeScripts"`
	Stats          domain.Stats   `json:"stats"`
}

// Day returns one archived day.
func (s *Store) Day(date string) (DayView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[date]
	if !ok {
		return DayView{}, ErrNotFound
	}
	return DayView{
		Date:           date,
		Topics:         append([]domain.Topic(nil), rec.Topics...),
		Articles:       len(rec.Articles),
		ArticlesV2:     len(rec.ArticlesV2),
		YoutubeScripts: len(rec.YoutubeScripts),
		Stats:          rec.Stats,
	}, nil
}

// Summaries lists archived days, newest first.
func (s *Store) Summaries() []domain.ArchiveSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.ArchiveSummary, 0, len(s.records))
	for date, rec := range s.records {
		out = append(out, domain.ArchiveSummary{
			Date:     date,
			Topics:   len(rec.Topics),
			Articles: rec.ArticleCount(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// Backup snapshots the whole archive under label.
func (s *Store) Backup(ctx context.Context, label string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	location, err := s.persist.Snapshot(ctx, s.records, label)
	if err != nil {
		return "", fmt.Errorf("snapshot archive: %w", err)
	}
	return location, nil
}

// Remove deletes the given days, or every day when dates is empty.
func (s *Store) Remove(ctx context.Context, dates ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	if len(dates) == 0 {
		removed = len(s.records)
		s.records = map[string]*domain.ArchiveRecord{}
	} else {
		for _, d := range dates {
			if _, ok := s.records[d]; ok {
				delete(s.records, d)
				removed++
			}
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.saveLocked(ctx)
}

func (s *Store) recordLocked(date string) *domain.ArchiveRecord {
	rec, ok := s.records[date]
	if !ok {
		rec = domain.NewArchiveRecord(date, s.now())
		s.records[date] = rec
	}
	return rec
}

// saveLocked writes the whole map; callers hold s.mu. Failures are logged and
// returned, the in-memory state stays authoritative.
func (s *Store) saveLocked(ctx context.Context) error {
	if err := s.persist.Save(ctx, s.records); err != nil {
		s.logger.Error("persist archive", "error", err)
		return fmt.Errorf("save archive: %w", err)
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
