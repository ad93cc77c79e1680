package triage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"weaklog/internal/entry"
	"weaklog/internal/provider"
)

// scriptedClient returns canned completions in order.
type scriptedClient struct {
	responses []string
	errs      []error
	calls     int
	lastUser  string
}

func (c *scriptedClient) Initialize() error { return nil }

func (c *scriptedClient) Complete(_ context.Context, _, user string, _ provider.CallOptions) (string, error) {
	i := c.calls
	c.calls++
	c.lastUser = user
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i < len(c.responses) {
		return c.responses[i], nil
	}
	return "", errors.New("script exhausted")
}

func (c *scriptedClient) TestConnection(context.Context) error       { return nil }
func (c *scriptedClient) AvailableModels(context.Context) []string   { return nil }
func (c *scriptedClient) Model() string                              { return "scripted" }
func (c *scriptedClient) SetModel(string)                            {}
func (c *scriptedClient) Initialized() bool                          { return true }

func newTestEvaluator(client provider.Client) *Evaluator {
	return &Evaluator{
		client: client,
		now:    func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) },
		log:    zap.NewNop(),
	}
}

const allPass = `{"checks":{
  "hasSpecifics":{"pass":true,"reason":"names a real meeting"},
  "canBeCorePhrase":{"pass":true,"reason":"one-line insight"},
  "isTransferable":{"pass":true,"reason":"common pattern"},
  "isNonHarmful":{"pass":true,"reason":"no names, no blame"}},
  "coreQuestion":"Why do I wait for permission to speak?"}`

func TestEvaluateFullPass(t *testing.T) {
	client := &scriptedClient{responses: []string{allPass}}
	ev := newTestEvaluator(client)

	res, err := ev.Evaluate(context.Background(), "I stayed silent in the planning meeting again", "en")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Score)
	assert.Equal(t, entry.RecommendAdopt, res.Recommendation)
	assert.Equal(t, "Why do I wait for permission to speak?", res.CoreQuestion)
	assert.True(t, res.Checks.IsNonHarmful.Pass)
	assert.Contains(t, client.lastUser, "planning meeting")
}

func TestEvaluateScoreRecomputedFromChecks(t *testing.T) {
	// Model claims nothing about the score; two failed checks must land
	// the entry in the review band no matter what.
	resp := `Here is my evaluation: {"checks":{
	  "hasSpecifics":{"pass":true,"reason":"ok"},
	  "canBeCorePhrase":{"pass":false,"reason":"too diffuse"},
	  "isTransferable":{"pass":false,"reason":"too personal"},
	  "isNonHarmful":{"pass":true,"reason":"ok"}},
	  "coreQuestion":"What am I avoiding?"}`
	ev := newTestEvaluator(&scriptedClient{responses: []string{resp}})

	res, err := ev.Evaluate(context.Background(), "some cooled entry", "en")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Score)
	assert.Equal(t, entry.RecommendReview, res.Recommendation)
}

func TestEvaluateUnparseableFallsBack(t *testing.T) {
	ev := newTestEvaluator(&scriptedClient{responses: []string{"I cannot evaluate this entry, sorry."}})

	content := "I keep avoiding hard conversations at work because I fear conflict"
	res, err := ev.Evaluate(context.Background(), content, "en")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Score)
	assert.Equal(t, entry.RecommendReview, res.Recommendation)
	assert.False(t, res.Checks.HasSpecifics.Pass)
	assert.Equal(t, "analysis failed", res.Checks.HasSpecifics.Reason)
	assert.False(t, res.Checks.CanBeCorePhrase.Pass)
	assert.False(t, res.Checks.IsTransferable.Pass)
	assert.True(t, res.Checks.IsNonHarmful.Pass)
	assert.Equal(t, "assumed safe", res.Checks.IsNonHarmful.Reason)

	want := string([]rune(content)[:37]) + "…"
	assert.Equal(t, want, res.CoreQuestion)
}

func TestEvaluateFallbackShortContentNoEllipsis(t *testing.T) {
	ev := newTestEvaluator(&scriptedClient{responses: []string{"not json"}})

	res, err := ev.Evaluate(context.Background(), "short entry", "en")
	require.NoError(t, err)
	assert.Equal(t, "short entry", res.CoreQuestion)
}

func TestEvaluateMissingChecksFallsBack(t *testing.T) {
	// A response with a core question but no checks object must never
	// read as four failed checks and auto-reject.
	ev := newTestEvaluator(&scriptedClient{responses: []string{`{"coreQuestion":"What am I avoiding?"}`}})

	res, err := ev.Evaluate(context.Background(), "an entry about something real", "en")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Score)
	assert.Equal(t, entry.RecommendReview, res.Recommendation)
	assert.Equal(t, "analysis failed", res.Checks.HasSpecifics.Reason)
	assert.True(t, res.Checks.IsNonHarmful.Pass)
}

func TestEvaluateMissingCoreQuestionFallsBack(t *testing.T) {
	// Parseable JSON without the required field is still unusable.
	resp := `{"checks":{"hasSpecifics":{"pass":true,"reason":"ok"},
	  "canBeCorePhrase":{"pass":true,"reason":"ok"},
	  "isTransferable":{"pass":true,"reason":"ok"},
	  "isNonHarmful":{"pass":true,"reason":"ok"}}}`
	ev := newTestEvaluator(&scriptedClient{responses: []string{resp}})

	res, err := ev.Evaluate(context.Background(), "an entry about something real", "en")
	require.NoError(t, err)
	assert.Equal(t, entry.RecommendReview, res.Recommendation)
	assert.Equal(t, 1, res.Score)
}

func TestEvaluateJapaneseFallbackReasons(t *testing.T) {
	ev := newTestEvaluator(&scriptedClient{responses: []string{"まったくJSONではない応答"}})

	res, err := ev.Evaluate(context.Background(), "会議でまた黙ってしまった", "ja")
	require.NoError(t, err)
	assert.Equal(t, "解析に失敗しました", res.Checks.HasSpecifics.Reason)
	assert.Equal(t, "安全と仮定します", res.Checks.IsNonHarmful.Reason)
}

func TestEvaluateTransportErrorPropagates(t *testing.T) {
	wantErr := errors.New("rate limited")
	ev := newTestEvaluator(&scriptedClient{errs: []error{wantErr}})

	_, err := ev.Evaluate(context.Background(), "some entry", "en")
	assert.ErrorIs(t, err, wantErr)
}

func TestEvaluateBlankContent(t *testing.T) {
	ev := newTestEvaluator(&scriptedClient{})
	for _, blank := range []string{"", "   ", "\n\t  \r\n"} {
		_, err := ev.Evaluate(context.Background(), blank, "en")
		assert.ErrorIs(t, err, entry.ErrEmptyContent)
	}
	assert.Zero(t, ev.client.(*scriptedClient).calls)
}

func TestEvaluateCoreQuestionTruncated(t *testing.T) {
	long := strings.Repeat("why ", 20)
	resp := `{"checks":{"hasSpecifics":{"pass":true,"reason":"ok"},
	  "canBeCorePhrase":{"pass":true,"reason":"ok"},
	  "isTransferable":{"pass":true,"reason":"ok"},
	  "isNonHarmful":{"pass":true,"reason":"ok"}},
	  "coreQuestion":"` + long + `"}`
	ev := newTestEvaluator(&scriptedClient{responses: []string{resp}})

	res, err := ev.Evaluate(context.Background(), "an entry", "en")
	require.NoError(t, err)
	assert.Len(t, []rune(res.CoreQuestion), 40)
}

func TestBuildPromptsLanguageSelection(t *testing.T) {
	sysEN, userEN := buildPrompts("body", "en")
	assert.Contains(t, sysEN, "editorial triage")
	assert.Contains(t, userEN, "body")

	sysJA, userJA := buildPrompts("本文", "ja")
	assert.Contains(t, sysJA, "トリアージ")
	assert.Contains(t, userJA, "本文")
}
