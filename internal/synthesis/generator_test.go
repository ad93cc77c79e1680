package synthesis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"weaklog/internal/entry"
	"weaklog/internal/provider"
)

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

func (c *scriptedClient) TestConnection(context.Context) error     { return nil }
func (c *scriptedClient) AvailableModels(context.Context) []string { return nil }
func (c *scriptedClient) Model() string                            { return "scripted" }
func (c *scriptedClient) SetModel(string)                          {}
func (c *scriptedClient) Initialized() bool                        { return true }

func newTestGenerator(client provider.Client) *Generator {
	return &Generator{
		client: client,
		now:    func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) },
		log:    zap.NewNop(),
	}
}

func sampleTriage() *entry.TriageResult {
	return &entry.TriageResult{
		Checks: entry.Checks{
			HasSpecifics:   entry.Check{Pass: true, Reason: "names a real meeting"},
			IsTransferable: entry.Check{Pass: true, Reason: "common pattern"},
		},
		Score:          4,
		Recommendation: entry.RecommendAdopt,
		CoreQuestion:   "Why do I wait for permission to speak?",
	}
}

func TestGenerateGuide(t *testing.T) {
	resp := `{"questions":[
	  "When did you first notice this pattern?",
	  "What does staying silent protect you from?",
	  "Who taught you that speaking up is risky?",
	  "What would change if you spoke first tomorrow?"],
	  "suggestedTone":"exploratory"}`
	client := &scriptedClient{responses: []string{resp}}
	g := newTestGenerator(client)

	guide, err := g.Generate(context.Background(), "the entry body", sampleTriage(), "en")
	require.NoError(t, err)
	assert.Len(t, guide.Questions, 4)
	assert.Equal(t, entry.ToneExploratory, guide.SuggestedTone)
	assert.Contains(t, client.lastUser, "Why do I wait for permission to speak?")
	assert.Contains(t, client.lastUser, "contains concrete specifics")
	// Per-check reasons are signals for the author, not prompt material.
	assert.NotContains(t, client.lastUser, "names a real meeting")
}

func TestGenerateStripsListMarkers(t *testing.T) {
	resp := `{"questions":[
	  "1. When did it start?",
	  "- What does it cost you?",
	  "* Who else sees it?",
	  "2) What would you tell a friend?"],
	  "suggestedTone":"reflective"}`
	g := newTestGenerator(&scriptedClient{responses: []string{resp}})

	guide, err := g.Generate(context.Background(), "body", sampleTriage(), "en")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"When did it start?",
		"What does it cost you?",
		"Who else sees it?",
		"What would you tell a friend?",
	}, guide.Questions)
}

func TestGenerateTooFewQuestionsFallsBack(t *testing.T) {
	resp := `{"questions":["Only one?","  "],"suggestedTone":"analytical"}`
	g := newTestGenerator(&scriptedClient{responses: []string{resp}})

	guide, err := g.Generate(context.Background(), "body", sampleTriage(), "en")
	require.NoError(t, err)
	assert.Equal(t, fallbackQuestions("en"), guide.Questions)
	// The fallback guide is fully deterministic, tone included.
	assert.Equal(t, entry.ToneReflective, guide.SuggestedTone)
}

func TestGenerateUnparseableFallsBack(t *testing.T) {
	g := newTestGenerator(&scriptedClient{responses: []string{"no json here"}})

	guide, err := g.Generate(context.Background(), "body", sampleTriage(), "ja")
	require.NoError(t, err)
	assert.Equal(t, fallbackQuestions("ja"), guide.Questions)
	assert.Equal(t, entry.ToneReflective, guide.SuggestedTone)
}

func TestGenerateTooManyQuestionsFallsBack(t *testing.T) {
	resp := `{"questions":["q1?","q2?","q3?","q4?","q5?","q6?","q7?"],"suggestedTone":"reflective"}`
	g := newTestGenerator(&scriptedClient{responses: []string{resp}})

	guide, err := g.Generate(context.Background(), "body", sampleTriage(), "en")
	require.NoError(t, err)
	assert.Equal(t, fallbackQuestions("en"), guide.Questions)
}

func TestGenerateBlankContent(t *testing.T) {
	g := newTestGenerator(&scriptedClient{})

	_, err := g.Generate(context.Background(), "   \n", sampleTriage(), "en")
	assert.ErrorIs(t, err, entry.ErrEmptyContent)
}

func TestGenerateUnknownToneNormalized(t *testing.T) {
	resp := `{"questions":["q1?","q2?","q3?"],"suggestedTone":"sardonic"}`
	g := newTestGenerator(&scriptedClient{responses: []string{resp}})

	guide, err := g.Generate(context.Background(), "body", sampleTriage(), "en")
	require.NoError(t, err)
	assert.Equal(t, entry.ToneReflective, guide.SuggestedTone)
}

func TestGenerateTransportErrorPropagates(t *testing.T) {
	wantErr := errors.New("unreachable")
	g := newTestGenerator(&scriptedClient{errs: []error{wantErr}})

	_, err := g.Generate(context.Background(), "body", sampleTriage(), "en")
	assert.ErrorIs(t, err, wantErr)
}

func TestSuggestDraft(t *testing.T) {
	client := &scriptedClient{responses: []string{"  A draft about speaking up.  \n"}}
	g := newTestGenerator(client)

	answers := []QA{
		{Question: "When did it start?", Answer: "My first job, I think."},
		{Question: "What does it cost you?", Answer: "Ideas die in my notebook."},
	}
	draft, err := g.SuggestDraft(context.Background(), "the entry", sampleTriage(), entry.ToneAnalytical, answers, "en")
	require.NoError(t, err)
	assert.Equal(t, "A draft about speaking up.", draft)
	assert.Contains(t, client.lastUser, "Ideas die in my notebook.")
	assert.Contains(t, client.lastUser, "analytical")
}

func TestSuggestDraftEmptyResponse(t *testing.T) {
	g := newTestGenerator(&scriptedClient{responses: []string{"   \n"}})

	_, err := g.SuggestDraft(context.Background(), "the entry", sampleTriage(), entry.ToneReflective, nil, "en")
	assert.ErrorContains(t, err, "empty draft")
}
