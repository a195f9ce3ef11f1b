package domain

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"
)

// MinContentLength is the character count a generated body must exceed to count as real content.
const MinContentLength = 500

// Variant is one of the article styles generated per topic.
type Variant string

const (
	VariantStandard    Variant = "standard"
	VariantInformal    Variant = "informal"
	VariantVideoScript Variant = "videoScript"
)

// Variants lists every supported variant.
var Variants = []Variant{VariantStandard, VariantInformal, VariantVideoScript}

// ParseVariant maps a path or query value to a Variant.
func ParseVariant(value string) (Variant, error) {
	switch value {
	case "standard", "v1":
		return VariantStandard, nil
	case "informal", "mz", "v2":
		return VariantInformal, nil
	case "videoScript", "video", "youtube":
		return VariantVideoScript, nil
	default:
		return "", fmt.Errorf("unknown variant %q", value)
	}
}

// FlagKey is the in-flight flag key for a (variant, topic) pair.
func FlagKey(v Variant, topicID int) string {
	return string(v) + ":" + strconv.Itoa(topicID)
}

// RelatedNews is a compact reference to source material behind an article.
type RelatedNews struct {
	Title  string `json:"title"`
	Source string `json:"source"`
	Time   string `json:"time"`
	URL    string `json:"url,omitempty"`
}

// Article is the shape shared by every generated variant.
type Article struct {
	Title           string        `json:"title"`
	Content         string        `json:"content"`
	RelatedNews     []RelatedNews `json:"relatedNews"`
	GeneratedAt     time.Time     `json:"generatedAt"`
	Completed       bool          `json:"completed"`
	IsErrorFallback bool          `json:"isErrorFallback"`
	Variant         Variant       `json:"variant"`
}

// Cacheable reports whether the article may be served without regenerating.
// Fallbacks are stored for status reporting but always regenerated.
func (a Article) Cacheable() bool {
	return a.Completed && !a.IsErrorFallback && utf8.RuneCountInString(a.Content) > MinContentLength
}

// State maps the article onto the generation state machine.
func (a Article) State() GenerationState {
	switch {
	case !a.Completed:
		return StateGenerating
	case a.IsErrorFallback:
		return StateCompletedWithFallback
	default:
		return StateCompleted
	}
}

// VideoScript extends Article with cooperative progress reporting.
type VideoScript struct {
	Article
	Progress int    `json:"progress"`
	Status   string `json:"status"`
}

// GenerationState is the per (date, topic, variant) lifecycle.
type GenerationState string

const (
	StateAbsent                GenerationState = "absent"
	StateGenerating            GenerationState = "generating"
	StateCompleted             GenerationState = "completed"
	StateCompletedWithFallback GenerationState = "completedWithFallback"
)

// GenerationStatus is what a polling client receives.
type GenerationStatus struct {
	Completed bool            `json:"completed"`
	Progress  int             `json:"progress"`
	Status    string          `json:"status"`
	State     GenerationState `json:"state"`
}

// Video progress checkpoints.
const (
	ProgressPreparing  = 0
	ProgressKeywords   = 10
	ProgressContext    = 25
	ProgressPrompt     = 50
	ProgressGenerating = 75
	ProgressFinalizing = 95
	ProgressDone       = 100
)

// ProgressLabel names a progress checkpoint.
func ProgressLabel(progress int) string {
	switch progress {
	case ProgressPreparing:
		return "preparing"
	case ProgressKeywords:
		return "deriving keywords"
	case ProgressContext:
		return "gathering context"
	case ProgressPrompt:
		return "preparing prompt"
	case ProgressGenerating:
		return "generating script"
	case ProgressFinalizing:
		return "finalizing"
	case ProgressDone:
		return "completed"
	default:
		return "in progress"
	}
}
