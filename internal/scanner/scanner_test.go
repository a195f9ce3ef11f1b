package scanner

import (
	"context"
	"testing"

	"NewsDesk/internal/domain"
)

type namedScanner string

func (n namedScanner) Name() string { return string(n) }

func (n namedScanner) Scan(context.Context, Request) ([]domain.RawEntry, error) {
	return []domain.RawEntry{{Title: string(n)}}, nil
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(namedScanner("rss"))
	reg.Register(namedScanner("html"))

	s, err := reg.Resolve("html")
	if err != nil {
		t.Fatalf("unexpected resolve error: %v", err)
	}
	if s.Name() != "html" {
		t.Fatalf("unexpected scanner %s", s.Name())
	}
	if _, err := reg.Resolve("atom"); err == nil {
		t.Fatalf("expected error for unregistered kind")
	}
}
