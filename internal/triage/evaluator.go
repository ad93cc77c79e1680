// Package triage scores cooled entries for publication potential.
package triage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"weaklog/internal/entry"
	"weaklog/internal/logging"
	"weaklog/internal/provider"
)

// fallbackQuestionRunes is how much of the entry survives into the core
// question when the model response cannot be parsed. Leaves room for
// the ellipsis within the 40-rune core question limit.
const fallbackQuestionRunes = 37

// Evaluator runs the four-check editorial evaluation through an LLM.
type Evaluator struct {
	client provider.Client
	now    func() time.Time
	log    *zap.Logger
}

func New(client provider.Client) *Evaluator {
	return &Evaluator{
		client: client,
		now:    time.Now,
		log:    logging.Get(logging.CategoryTriage),
	}
}

// response is the wire shape the model is asked to produce. Checks is a
// pointer so an absent object is distinguishable from four zero-value
// checks; both required fields must be present for the response to
// count as structurally valid.
type response struct {
	Checks       *entry.Checks `json:"checks"`
	CoreQuestion string        `json:"coreQuestion"`
}

// Evaluate scores content. Transport failures (auth, rate limit,
// network) propagate to the caller; a response that cannot be parsed
// degrades to a conservative fallback result instead, so a chatty
// model never blocks the workflow.
func (ev *Evaluator) Evaluate(ctx context.Context, content, language string) (*entry.TriageResult, error) {
	if isBlank(content) {
		return nil, entry.ErrEmptyContent
	}

	system, user := buildPrompts(content, language)
	raw, err := ev.client.Complete(ctx, system, user, provider.CallOptions{
		Temperature: 0.2,
		Timeout:     provider.DefaultEvalTimeout,
	})
	if err != nil {
		return nil, err
	}

	var resp response
	if perr := provider.ExtractJSON(raw, &resp); perr != nil || resp.Checks == nil || resp.CoreQuestion == "" {
		ev.log.Warn("unparseable triage response, using fallback",
			zap.String("model", ev.client.Model()),
			zap.NamedError("parse_error", perr))
		return ev.fallback(content, language), nil
	}

	score := resp.Checks.Passed()
	result := &entry.TriageResult{
		Checks:         *resp.Checks,
		Score:          score,
		Recommendation: entry.RecommendationFor(score),
		CoreQuestion:   entry.TruncateRunes(resp.CoreQuestion, 40),
		Timestamp:      ev.now().UTC().Truncate(time.Second),
	}
	ev.log.Info("triage evaluated",
		zap.Int("score", result.Score),
		zap.String("recommendation", string(result.Recommendation)))
	return result, nil
}

// fallback marks every editorial check failed but assumes the content
// is safe, landing the entry in the manual-review band rather than
// silently rejecting it.
func (ev *Evaluator) fallback(content, language string) *entry.TriageResult {
	failed, safe := fallbackReasons(language)
	question := entry.TruncateRunes(content, fallbackQuestionRunes)
	if question != content {
		question += "…"
	}
	return &entry.TriageResult{
		Checks: entry.Checks{
			HasSpecifics:    entry.Check{Pass: false, Reason: failed},
			CanBeCorePhrase: entry.Check{Pass: false, Reason: failed},
			IsTransferable:  entry.Check{Pass: false, Reason: failed},
			IsNonHarmful:    entry.Check{Pass: true, Reason: safe},
		},
		Score:          1,
		Recommendation: entry.RecommendReview,
		CoreQuestion:   question,
		Timestamp:      ev.now().UTC().Truncate(time.Second),
	}
}

func isBlank(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}
