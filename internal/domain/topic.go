package domain

import (
	"sort"
	"time"
)

// DateLayout is the calendar-day key used across topics and the archive.
const DateLayout = "2006-01-02"

// Topic is one LLM-identified news cluster for a given day.
type Topic struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	Icon         string `json:"icon"`
	DateOccurred string `json:"dateOccurred,omitempty"`
}

// TopicList is what the presentation layer receives for a day.
type TopicList struct {
	Topics        []Topic `json:"topics"`
	IsFromArchive bool    `json:"isFromArchive"`
}

// SortAndReindex orders topics by DateOccurred descending, undated ones last,
// then assigns ids 1..N following the new order.
func SortAndReindex(topics []Topic) []Topic {
	out := make([]Topic, len(topics))
	copy(out, topics)

	sort.SliceStable(out, func(i, j int) bool {
		di, okI := parseDay(out[i].DateOccurred)
		dj, okJ := parseDay(out[j].DateOccurred)
		switch {
		case okI && okJ:
			return di.After(dj)
		case okI:
			return true
		default:
			return false
		}
	})

	for i := range out {
		out[i].ID = i + 1
	}
	return out
}

func parseDay(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		if len(value) >= len(DateLayout) {
			t, err = time.Parse(DateLayout, value[:len(DateLayout)])
		}
		if err != nil {
			return time.Time{}, false
		}
	}
	return t, true
}

// DefaultTopics returns the static topic set used when extraction fails.
func DefaultTopics(day string) []Topic {
	base := []Topic{
		{Title: "Russia-Ukraine war: latest developments", Summary: "The current state of the war in Ukraine and how the international community is responding.", Icon: "fa-fighter-jet"},
		{Title: "Middle East ceasefire and peace talks", Summary: "Recent negotiations between Israel and Palestinian factions and the role of regional mediators.", Icon: "fa-dove"},
		{Title: "US-China economic rivalry deepens", Summary: "Trade disputes and the contest for technological leadership between Washington and Beijing.", Icon: "fa-chart-line"},
		{Title: "European Union energy policy shift", Summary: "The EU's new measures for the clean-energy transition and their global impact.", Icon: "fa-leaf"},
		{Title: "Political instability and coups in Africa", Summary: "Recent unrest and military takeovers in West Africa and the international reaction.", Icon: "fa-exclamation-triangle"},
		{Title: "Global climate policy response", Summary: "The latest climate agreements and the state of international cooperation on emissions.", Icon: "fa-cloud-sun"},
		{Title: "Korean Peninsula security", Summary: "North Korean weapons tests and the diplomatic response from Seoul, Washington and Tokyo.", Icon: "fa-shield-alt"},
		{Title: "United Nations reform debate", Summary: "Calls to reshape the Security Council and the effectiveness of multilateral institutions.", Icon: "fa-landmark"},
		{Title: "Global migration pressures", Summary: "Refugee flows, border policy and burden-sharing disputes among receiving states.", Icon: "fa-users"},
		{Title: "Nuclear non-proliferation at risk", Summary: "Arms-control treaties under strain and new concerns about nuclear programs.", Icon: "fa-atom"},
	}
	for i := range base {
		base[i].ID = i + 1
		base[i].DateOccurred = day
	}
	return base
}

// Backfill appends default topics whose ids are not already used until floor is reached.
func Backfill(topics []Topic, floor int, day string) []Topic {
	if len(topics) >= floor {
		return topics
	}
	used := make(map[int]struct{}, len(topics))
	for _, t := range topics {
		used[t.ID] = struct{}{}
	}
	out := append([]Topic(nil), topics...)
	for _, d := range DefaultTopics(day) {
		if len(out) >= floor {
			break
		}
		if _, ok := used[d.ID]; ok {
			continue
		}
		out = append(out, d)
	}
	return out
}
