// Package workflow orchestrates the entry lifecycle: capture, cooldown,
// triage, synthesis, publish.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"weaklog/internal/cooldown"
	"weaklog/internal/entry"
	"weaklog/internal/logging"
	"weaklog/internal/synthesis"
	"weaklog/internal/triage"
)

const (
	minContentRunes = 10
	minCooldownDays = 1
	maxCooldownDays = 365
)

var (
	ErrContentTooShort    = errors.New("workflow: content is shorter than 10 characters")
	ErrCooldownOutOfRange = fmt.Errorf("workflow: cooldown days must be between %d and %d", minCooldownDays, maxCooldownDays)
	ErrNotReady           = errors.New("workflow: entry is still cooling down")
	ErrWrongStage         = errors.New("workflow: entry is not in the required stage")
	ErrNoAnswers          = errors.New("workflow: at least one question must be answered")
)

// Notifier receives user-facing progress messages. The CLI renders
// them in color; tests record them.
type Notifier interface {
	Info(msg string)
	Success(msg string)
	Failure(msg string)
}

// nopNotifier keeps the orchestrator usable without a UI attached.
type nopNotifier struct{}

func (nopNotifier) Info(string)    {}
func (nopNotifier) Success(string) {}
func (nopNotifier) Failure(string) {}

// Orchestrator drives entries through the five stages. Every stage
// change goes through here; nothing else moves documents.
type Orchestrator struct {
	store    *entry.Store
	sched    *cooldown.Scheduler
	triage   *triage.Evaluator
	synth    *synthesis.Generator
	notify   Notifier
	language string
	now      func() time.Time
	log      *zap.Logger
}

func New(store *entry.Store, sched *cooldown.Scheduler, ev *triage.Evaluator, gen *synthesis.Generator, language string) *Orchestrator {
	return &Orchestrator{
		store:    store,
		sched:    sched,
		triage:   ev,
		synth:    gen,
		notify:   nopNotifier{},
		language: language,
		now:      time.Now,
		log:      logging.Get(logging.CategoryWorkflow),
	}
}

// SetNotifier attaches a UI sink. Pass nil to detach.
func (o *Orchestrator) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	o.notify = n
}

// Create captures a new entry and starts its cooldown. The document is
// written to raw, immediately moved to cooling, and registered with the
// scheduler.
func (o *Orchestrator) Create(content string, cooldownDays int) (*entry.Entry, error) {
	if utf8.RuneCountInString(strings.TrimSpace(content)) < minContentRunes {
		return nil, ErrContentTooShort
	}
	if cooldownDays < minCooldownDays || cooldownDays > maxCooldownDays {
		return nil, ErrCooldownOutOfRange
	}

	e, err := o.store.Create(content, cooldownDays)
	if err != nil {
		return nil, o.fail("create entry", err)
	}
	e, err = o.store.Transition(e, entry.StatusCooling)
	if err != nil {
		return nil, o.fail("move entry into cooldown", err)
	}
	if err := o.sched.Register(e.ID, e.Path, e.CreatedAt, e.CooldownDays); err != nil {
		return nil, o.fail("register cooldown", err)
	}

	o.notify.Success(fmt.Sprintf("Entry %s saved. It unlocks for triage in %d day(s).", e.ID, e.CooldownDays))
	return e, nil
}

// CheckReadiness reconciles the cooldown index against the vault and
// reports how many entries are ready for triage.
func (o *Orchestrator) CheckReadiness() (cooldown.Summary, error) {
	pruned, err := o.sched.ValidateAndClean(func(p string) bool {
		e, rerr := o.store.Read(p)
		return rerr == nil && e != nil
	})
	if err != nil {
		return cooldown.Summary{}, o.fail("reconcile cooldown index", err)
	}
	if pruned > 0 {
		o.log.Info("cooldown index reconciled", zap.Int("pruned", pruned))
	}
	summary, err := o.sched.CheckStatus()
	if err != nil {
		return cooldown.Summary{}, o.fail("check cooldown status", err)
	}
	o.notify.Info(summary.Message())
	return summary, nil
}

// Triage evaluates a cooled entry. The result is written into the
// document but the entry stays in cooling until the author decides to
// adopt, reject, or revisit it.
func (o *Orchestrator) Triage(ctx context.Context, id string) (*entry.Entry, error) {
	e, err := o.cooled(id)
	if err != nil {
		return nil, o.fail("triage "+id, err)
	}
	result, err := o.triage.Evaluate(ctx, e.Content, o.language)
	if err != nil {
		return nil, o.fail("triage "+id, err)
	}
	if err := o.store.SetTriage(e, *result); err != nil {
		return nil, o.fail("record triage for "+id, err)
	}
	o.notify.Success(fmt.Sprintf("Triage for %s: score %d/4, recommendation %s.", e.ID, result.Score, result.Recommendation))
	return e, nil
}

// TriageOutcome is delivered by TriageAsync when the evaluation
// settles.
type TriageOutcome struct {
	Entry *entry.Entry
	Err   error
}

// TriageAsync runs Triage in the background and delivers the outcome on
// the returned channel. The channel is buffered so an abandoned caller
// never blocks the evaluation goroutine.
func (o *Orchestrator) TriageAsync(ctx context.Context, id string) <-chan TriageOutcome {
	out := make(chan TriageOutcome, 1)
	go func() {
		e, err := o.Triage(ctx, id)
		out <- TriageOutcome{Entry: e, Err: err}
	}()
	return out
}

// Adopt promotes a triaged-while-cooling entry to the triaged stage.
func (o *Orchestrator) Adopt(id string) (*entry.Entry, error) {
	e, err := o.decided(id)
	if err != nil {
		return nil, o.fail("adopt "+id, err)
	}
	e, err = o.store.Transition(e, entry.StatusTriaged)
	if err != nil {
		return nil, o.fail("adopt "+id, err)
	}
	if err := o.sched.Unregister(id); err != nil {
		return nil, o.fail("adopt "+id, err)
	}
	o.notify.Success(fmt.Sprintf("Entry %s adopted. Run synthesize when you are ready.", id))
	return e, nil
}

// Reject archives an entry. The document, triage result included, is
// preserved under the archive area rather than deleted.
func (o *Orchestrator) Reject(id string) (*entry.Entry, error) {
	e, err := o.decided(id)
	if err != nil {
		return nil, o.fail("reject "+id, err)
	}
	e.Status = entry.StatusRejected
	e, err = o.store.Archive(e)
	if err != nil {
		return nil, o.fail("reject "+id, err)
	}
	if err := o.sched.Unregister(id); err != nil {
		return nil, o.fail("reject "+id, err)
	}
	o.notify.Success(fmt.Sprintf("Entry %s archived.", id))
	return e, nil
}

// ReviewLater acknowledges a triage result without acting on it. The
// entry stays in cooling with its result recorded; nothing moves.
func (o *Orchestrator) ReviewLater(id string) error {
	e, err := o.decided(id)
	if err != nil {
		return o.fail("defer "+id, err)
	}
	o.log.Info("decision deferred", zap.String("id", e.ID))
	o.notify.Info(fmt.Sprintf("Entry %s kept for later review.", id))
	return nil
}

// Synthesize generates the deepening-question guide for an adopted
// entry.
func (o *Orchestrator) Synthesize(ctx context.Context, id string) (*entry.Entry, error) {
	e, err := o.inStage(id, entry.StatusTriaged)
	if err != nil {
		return nil, o.fail("synthesize "+id, err)
	}
	guide, err := o.synth.Generate(ctx, e.Content, e.Triage, o.language)
	if err != nil {
		return nil, o.fail("synthesize "+id, err)
	}
	if err := o.store.SetGuide(e, *guide); err != nil {
		return nil, o.fail("record guide for "+id, err)
	}
	o.notify.Success(fmt.Sprintf("Guide for %s ready: %d question(s), %s tone.", id, len(guide.Questions), guide.SuggestedTone))
	return e, nil
}

// GenerateDraft turns the author's answers into a first draft, appends
// it to the document, and promotes the entry to synthesized.
func (o *Orchestrator) GenerateDraft(ctx context.Context, id string, answers []synthesis.QA) (*entry.Entry, error) {
	e, err := o.inStage(id, entry.StatusTriaged)
	if err != nil {
		return nil, o.fail("draft "+id, err)
	}
	if e.Guide == nil {
		return nil, o.fail("draft "+id, fmt.Errorf("%w: run synthesize first", ErrWrongStage))
	}
	answered := answers[:0:0]
	for _, qa := range answers {
		if strings.TrimSpace(qa.Answer) != "" {
			answered = append(answered, qa)
		}
	}
	if len(answered) == 0 {
		return nil, o.fail("draft "+id, ErrNoAnswers)
	}

	draft, err := o.synth.SuggestDraft(ctx, e.Content, e.Triage, e.Guide.SuggestedTone, answered, o.language)
	if err != nil {
		return nil, o.fail("draft "+id, err)
	}

	e.Content = composeDraftDocument(e.Content, answered, draft)
	e, err = o.store.Transition(e, entry.StatusSynthesized)
	if err != nil {
		return nil, o.fail("draft "+id, err)
	}
	o.notify.Success(fmt.Sprintf("Draft for %s written. Edit it, then publish.", id))
	return e, nil
}

// Publish stamps the publication time and moves the entry to its final
// stage.
func (o *Orchestrator) Publish(id string) (*entry.Entry, error) {
	e, err := o.inStage(id, entry.StatusSynthesized)
	if err != nil {
		return nil, o.fail("publish "+id, err)
	}
	e.PublishedAt = o.now().UTC().Truncate(time.Second)
	e, err = o.store.Transition(e, entry.StatusPublished)
	if err != nil {
		return nil, o.fail("publish "+id, err)
	}
	o.notify.Success(fmt.Sprintf("Entry %s published.", id))
	return e, nil
}

// Status lists entries per stage for the status display.
func (o *Orchestrator) Status() (map[entry.Status][]*entry.Entry, error) {
	out := make(map[entry.Status][]*entry.Entry)
	for _, st := range []entry.Status{
		entry.StatusCooling, entry.StatusTriaged, entry.StatusSynthesized, entry.StatusPublished,
	} {
		list, err := o.store.List(st)
		if err != nil {
			return nil, o.fail("list entries", err)
		}
		out[st] = list
	}
	return out, nil
}

// cooled fetches an entry that is in cooling and past its cooldown.
func (o *Orchestrator) cooled(id string) (*entry.Entry, error) {
	e, err := o.store.Find(id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("workflow: %s is unreadable", id)
	}
	if e.Status != entry.StatusCooling {
		return nil, fmt.Errorf("%w: %s is %s, expected cooling", ErrWrongStage, id, e.Status)
	}
	for _, c := range o.sched.Ready() {
		if c.WeaklogID == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotReady, id)
}

// decided fetches a cooling entry that already carries a triage result,
// the precondition for adopt, reject, and review-later.
func (o *Orchestrator) decided(id string) (*entry.Entry, error) {
	e, err := o.store.Find(id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("workflow: %s is unreadable", id)
	}
	if e.Status != entry.StatusCooling {
		return nil, fmt.Errorf("%w: %s is %s, expected cooling", ErrWrongStage, id, e.Status)
	}
	if e.Triage == nil {
		return nil, fmt.Errorf("%w: %s has no triage result yet", ErrWrongStage, id)
	}
	return e, nil
}

func (o *Orchestrator) inStage(id string, want entry.Status) (*entry.Entry, error) {
	e, err := o.store.Find(id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("workflow: %s is unreadable", id)
	}
	if e.Status != want {
		return nil, fmt.Errorf("%w: %s is %s, expected %s", ErrWrongStage, id, e.Status, want)
	}
	return e, nil
}

// fail logs and notifies exactly once per failed operation, then hands
// the error back unchanged for the caller to wrap or test against.
func (o *Orchestrator) fail(op string, err error) error {
	o.log.Error(op+" failed", zap.Error(err))
	o.notify.Failure(fmt.Sprintf("Could not %s: %v", op, err))
	return err
}

// composeDraftDocument lays out the final document body: the original
// entry, the Q&A session, then the generated draft.
func composeDraftDocument(original string, answers []synthesis.QA, draft string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(original, "\n"))
	b.WriteString("\n\n## Deepening\n\n")
	for _, qa := range answers {
		fmt.Fprintf(&b, "**Q: %s**\n\n%s\n\n", qa.Question, qa.Answer)
	}
	b.WriteString("## Draft\n\n")
	b.WriteString(strings.TrimSpace(draft))
	b.WriteString("\n")
	return b.String()
}
