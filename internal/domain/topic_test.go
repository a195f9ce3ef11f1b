package domain

import "testing"

func TestSortAndReindex(t *testing.T) {
	t.Parallel()

	in := []Topic{
		{ID: 9, Title: "middle", DateOccurred: "2025-03-09"},
		{ID: 4, Title: "undated"},
		{ID: 2, Title: "newest", DateOccurred: "2025-03-10"},
		{ID: 7, Title: "oldest", DateOccurred: "2025-03-07"},
	}

	out := SortAndReindex(in)

	wantOrder := []string{"newest", "middle", "oldest", "undated"}
	for i, topic := range out {
		if topic.Title != wantOrder[i] {
			t.Fatalf("position %d: expected %s, got %s", i, wantOrder[i], topic.Title)
		}
		if topic.ID != i+1 {
			t.Fatalf("position %d: expected id %d, got %d", i, i+1, topic.ID)
		}
	}
	if in[0].ID != 9 {
		t.Fatalf("input slice must not be mutated")
	}
}

func TestDefaultTopics(t *testing.T) {
	t.Parallel()

	topics := DefaultTopics("2025-03-10")
	if len(topics) != 10 {
		t.Fatalf("expected 10 default topics, got %d", len(topics))
	}
	for i, topic := range topics {
		if topic.ID != i+1 || topic.DateOccurred != "2025-03-10" {
			t.Fatalf("unexpected default topic: %+v", topic)
		}
	}
}

func TestBackfill(t *testing.T) {
	t.Parallel()

	cached := []Topic{{ID: 1, Title: "one"}, {ID: 3, Title: "three"}}
	out := Backfill(cached, 6, "2025-03-10")

	if len(out) != 6 {
		t.Fatalf("expected 6 topics, got %d", len(out))
	}
	seen := map[int]bool{}
	for _, topic := range out {
		if seen[topic.ID] {
			t.Fatalf("duplicate id %d after backfill", topic.ID)
		}
		seen[topic.ID] = true
	}
	if out[0].Title != "one" || out[1].Title != "three" {
		t.Fatalf("cached topics must keep their position")
	}

	full := DefaultTopics("2025-03-10")
	if got := Backfill(full, 6, "2025-03-10"); len(got) != 10 {
		t.Fatalf("backfill must not trim, got %d", len(got))
	}
}
