package scanner

import (
	"context"
	"fmt"
	"sync"

	"NewsDesk/internal/domain"
)

// Request carries all parameters required to execute a scan.
type Request struct {
	Source domain.FeedSource
	// Limit caps the number of entries returned; zero means no cap.
	Limit int
}

// Scanner captures a single feed strategy implementation (RSS, HTML listing, etc.).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.RawEntry, error)
}

// Registry keeps a mapping from source kinds to their implementations.
type Registry struct {
	mu       sync.RWMutex
	scanners map[string]Scanner
}

// NewRegistry builds a registry with the given scanners.
func NewRegistry(scanners ...Scanner) *Registry {
	r := &Registry{scanners: map[string]Scanner{}}
	for _, s := range scanners {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}
