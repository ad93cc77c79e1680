// Package synthesis turns triaged entries into deepening questions and
// first drafts.
package synthesis

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"weaklog/internal/entry"
	"weaklog/internal/logging"
	"weaklog/internal/provider"
)

const (
	minQuestions = 3
	maxQuestions = 5
)

// QA pairs a guide question with the author's answer.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Generator produces synthesis guides and draft text through an LLM.
type Generator struct {
	client provider.Client
	now    func() time.Time
	log    *zap.Logger
}

func New(client provider.Client) *Generator {
	return &Generator{
		client: client,
		now:    time.Now,
		log:    logging.Get(logging.CategorySynthesis),
	}
}

type guideResponse struct {
	Questions     []string `json:"questions"`
	SuggestedTone string   `json:"suggestedTone"`
}

// Generate builds a synthesis guide for a triaged entry. A response
// with fewer than three usable questions degrades to a stock question
// set; transport failures propagate.
func (g *Generator) Generate(ctx context.Context, content string, tr *entry.TriageResult, language string) (*entry.SynthesisGuide, error) {
	if strings.TrimSpace(content) == "" {
		return nil, entry.ErrEmptyContent
	}
	system, user := buildGuidePrompts(content, tr, language)
	raw, err := g.client.Complete(ctx, system, user, provider.CallOptions{
		Temperature: 0.7,
		Timeout:     provider.DefaultGenTimeout,
	})
	if err != nil {
		return nil, err
	}

	// A question count outside [3,5] means the model ignored the
	// instructions; the whole list is suspect, so fall back rather than
	// trim.
	var resp guideResponse
	perr := provider.ExtractJSON(raw, &resp)
	questions := cleanQuestions(resp.Questions)
	tone := entry.NormalizeTone(resp.SuggestedTone)
	if perr != nil || len(resp.Questions) < minQuestions || len(resp.Questions) > maxQuestions || len(questions) < minQuestions {
		g.log.Warn("unusable guide response, using stock questions",
			zap.String("model", g.client.Model()),
			zap.Int("usable", len(questions)),
			zap.NamedError("parse_error", perr))
		// The fallback is fully deterministic: a tone parsed out of an
		// otherwise unusable response is not trusted either.
		questions = fallbackQuestions(language)
		tone = entry.ToneReflective
	}

	return &entry.SynthesisGuide{
		Questions:     questions,
		SuggestedTone: tone,
		Timestamp:     g.now().UTC().Truncate(time.Second),
	}, nil
}

// SuggestDraft composes a first draft from the entry, its triage
// result, and the author's answers. The draft is free prose; the only
// validation is that something came back.
func (g *Generator) SuggestDraft(ctx context.Context, content string, tr *entry.TriageResult, tone entry.Tone, answers []QA, language string) (string, error) {
	system, user := buildDraftPrompts(content, tr, entry.NormalizeTone(string(tone)), answers, language)
	raw, err := g.client.Complete(ctx, system, user, provider.CallOptions{
		Temperature: 0.8,
		MaxTokens:   4096,
		Timeout:     provider.DefaultGenTimeout,
	})
	if err != nil {
		return "", err
	}
	draft := strings.TrimSpace(raw)
	if draft == "" {
		return "", fmt.Errorf("synthesis: %s returned an empty draft", g.client.Model())
	}
	return draft, nil
}

// cleanQuestions strips list markers the model sneaks in ("1. ", "- ",
// "* ") and drops blank lines.
func cleanQuestions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, q := range in {
		q = strings.TrimSpace(q)
		q = strings.TrimLeftFunc(q, func(r rune) bool {
			return unicode.IsDigit(r) || r == '.' || r == ')' || r == '-' || r == '*' || r == ' '
		})
		if q == "" {
			continue
		}
		out = append(out, q)
	}
	return out
}
