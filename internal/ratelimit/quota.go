package ratelimit

import (
	"errors"
	"sync"
	"time"
)

// ErrQuotaExhausted is returned once the calendar-month budget is spent.
var ErrQuotaExhausted = errors.New("monthly quota exhausted")

// MonthlyQuota counts calls per calendar month and resets when the month changes.
type MonthlyQuota struct {
	limit int

	mu    sync.Mutex
	count int
	month time.Month
	year  int
}

// NewMonthlyQuota returns a quota; limit <= 0 means unlimited.
func NewMonthlyQuota(limit int) *MonthlyQuota {
	return &MonthlyQuota{limit: limit}
}

// Take consumes one call at now, or returns ErrQuotaExhausted.
func (m *MonthlyQuota) Take(now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Year() != m.year || now.Month() != m.month {
		m.year, m.month, m.count = now.Year(), now.Month(), 0
	}
	if m.limit > 0 && m.count >= m.limit {
		return m.count, ErrQuotaExhausted
	}
	m.count++
	return m.count, nil
}

// Used returns the calls counted in the current month.
func (m *MonthlyQuota) Used() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// Limit returns the configured monthly budget.
func (m *MonthlyQuota) Limit() int {
	return m.limit
}
