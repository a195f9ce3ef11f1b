package domain

import "time"

// Stats summarizes what happened on an archived day.
type Stats struct {
	TopicsGenerated   int       `json:"topicsGenerated"`
	ArticlesGenerated int       `json:"articlesGenerated"`
	RSSRatio          float64   `json:"rssRatio"`
	CreatedAt         time.Time `json:"createdAt"`
}

// ArchiveRecord is the unit of persistence, one per calendar date.
type ArchiveRecord struct {
	Date               string               `json:"date"`
	Topics             []Topic              `json:"topics"`
	Articles           map[int]*Article     `json:"articles"`
	ArticlesV2         map[int]*Article     `json:"articlesV2"`
	YoutubeScripts     map[int]*VideoScript `json:"youtubeScripts"`
	GeneratingArticles map[string]bool      `json:"generatingArticles"`
	Stats              Stats                `json:"stats"`
}

// NewArchiveRecord returns an empty record with initialized maps.
func NewArchiveRecord(date string, now time.Time) *ArchiveRecord {
	r := &ArchiveRecord{Date: date, Stats: Stats{CreatedAt: now}}
	r.EnsureMaps()
	return r
}

// EnsureMaps initializes nil maps, e.g. after decoding an older document.
func (r *ArchiveRecord) EnsureMaps() {
	if r.Articles == nil {
		r.Articles = map[int]*Article{}
	}
	if r.ArticlesV2 == nil {
		r.ArticlesV2 = map[int]*Article{}
	}
	if r.YoutubeScripts == nil {
		r.YoutubeScripts = map[int]*VideoScript{}
	}
	if r.GeneratingArticles == nil {
		r.GeneratingArticles = map[string]bool{}
	}
}

// Lookup returns the stored article for a variant, if any.
func (r *ArchiveRecord) Lookup(v Variant, topicID int) (Article, bool) {
	switch v {
	case VariantStandard:
		if a, ok := r.Articles[topicID]; ok && a != nil {
			return *a, true
		}
	case VariantInformal:
		if a, ok := r.ArticlesV2[topicID]; ok && a != nil {
			return *a, true
		}
	case VariantVideoScript:
		if s, ok := r.YoutubeScripts[topicID]; ok && s != nil {
			return s.Article, true
		}
	}
	return Article{}, false
}

// ArticleCount counts generated entries across every variant.
func (r *ArchiveRecord) ArticleCount() int {
	return len(r.Articles) + len(r.ArticlesV2) + len(r.YoutubeScripts)
}

// ArchiveSummary is one line of the archive listing.
type ArchiveSummary struct {
	Date     string `json:"date"`
	Topics   int    `json:"topics"`
	Articles int    `json:"articles"`
}
