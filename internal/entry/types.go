// Package entry defines the weaklog domain model and the entry store:
// markdown documents with frontmatter metadata, advanced through a fixed
// five-stage workflow by atomic metadata-then-relocate transitions.
package entry

import (
	"errors"
	"time"
	"unicode/utf8"
)

// ErrEmptyContent is returned when an operation receives blank content.
var ErrEmptyContent = errors.New("entry: content is empty")

// Status is an entry's workflow stage. Exactly one physical location
// corresponds to each status; StatusReadyForTriage is a logical state
// only (the document stays in the cooling location).
type Status string

const (
	StatusRaw            Status = "raw"
	StatusCooling        Status = "cooling"
	StatusReadyForTriage Status = "ready-for-triage"
	StatusTriaged        Status = "triaged"
	StatusSynthesized    Status = "synthesized"
	StatusPublished      Status = "published"
	StatusRejected       Status = "rejected"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusRaw, StatusCooling, StatusReadyForTriage, StatusTriaged,
		StatusSynthesized, StatusPublished, StatusRejected:
		return true
	}
	return false
}

// Entry is the unit of work.
type Entry struct {
	ID           string
	Content      string // immutable after creation
	CreatedAt    time.Time
	CooldownDays int
	Status       Status
	Triage       *TriageResult
	Guide        *SynthesisGuide
	PublishedAt  time.Time // zero until published
	Path         string    // current vault-relative location
}

// Recommendation is the triage verdict, derived from the score.
type Recommendation string

const (
	RecommendAdopt  Recommendation = "adopt"
	RecommendReview Recommendation = "review"
	RecommendReject Recommendation = "reject"
)

// Check is one named triage criterion with a short human-readable reason.
type Check struct {
	Pass   bool   `json:"pass"`
	Reason string `json:"reason"`
}

// Checks are the four fixed triage criteria.
type Checks struct {
	HasSpecifics    Check `json:"hasSpecifics"`
	CanBeCorePhrase Check `json:"canBeCorePhrase"`
	IsTransferable  Check `json:"isTransferable"`
	IsNonHarmful    Check `json:"isNonHarmful"`
}

// Passed counts the passing checks.
func (c Checks) Passed() int {
	n := 0
	for _, ck := range [4]Check{c.HasSpecifics, c.CanBeCorePhrase, c.IsTransferable, c.IsNonHarmful} {
		if ck.Pass {
			n++
		}
	}
	return n
}

// TriageResult is the evaluator output. Score and recommendation are
// always recomputed from the checks, never trusted from model output.
type TriageResult struct {
	Checks         Checks         `json:"checks"`
	Score          int            `json:"score"`
	Recommendation Recommendation `json:"recommendation"`
	CoreQuestion   string         `json:"coreQuestion"`
	Timestamp      time.Time      `json:"timestamp"`
}

// RecommendationFor derives the verdict from a score: 4 adopt, 2-3
// review, 0-1 reject.
func RecommendationFor(score int) Recommendation {
	switch {
	case score >= 4:
		return RecommendAdopt
	case score >= 2:
		return RecommendReview
	default:
		return RecommendReject
	}
}

// Tone is the suggested writing register for synthesis.
type Tone string

const (
	ToneReflective  Tone = "reflective"
	ToneAnalytical  Tone = "analytical"
	ToneExploratory Tone = "exploratory"
)

// NormalizeTone maps unrecognized or missing tones to reflective.
func NormalizeTone(s string) Tone {
	switch Tone(s) {
	case ToneAnalytical, ToneExploratory:
		return Tone(s)
	default:
		return ToneReflective
	}
}

// SynthesisGuide is the generator output: 3-5 deepening questions plus a
// suggested tone.
type SynthesisGuide struct {
	Questions     []string  `json:"questions"`
	SuggestedTone Tone      `json:"suggestedTone"`
	Timestamp     time.Time `json:"timestamp"`
}

// TruncateRunes shortens s to at most max runes, preserving multi-byte
// characters.
func TruncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
