package usecase

import (
	"context"
	"testing"
	"time"

	"NewsDesk/internal/domain"
)

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerPrunesAndPrewarms(t *testing.T) {
	t.Parallel()

	old := fixedNow.AddDate(0, 0, -61).Format(domain.DateLayout)
	seed := map[string]*domain.ArchiveRecord{old: {Date: old, Topics: []domain.Topic{{ID: 1}}}}
	f := newFixture(t, []domain.NewsItem{newsItem(1, domain.OriginFeed, time.Hour)}, nil, seed)

	driver := &manualDriver{}
	s := NewScheduler(driver, f.pipeline, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if driver.job == nil {
		t.Fatalf("job not registered")
	}

	driver.job(fixedNow)

	if _, ok := f.store.Topics(old); ok {
		t.Fatalf("expired day should be pruned")
	}
	if _, ok := f.store.Topics("2025-06-10"); !ok {
		t.Fatalf("today's topics should be prewarmed")
	}

	if err := s.Stop(context.Background()); err != nil || !driver.stopped {
		t.Fatalf("stop not forwarded: %v", err)
	}
}
