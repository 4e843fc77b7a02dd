// Package batch posts a list of records through one logged in session.
package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"blogposter/internal/browser"
	"blogposter/internal/components/assert"
	"blogposter/internal/components/chrono"
	"blogposter/internal/components/telemetry"
	"blogposter/internal/generator"
	"blogposter/internal/post"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("blogposter/batch")

const (
	report_run      = "orchestrator.run"
	report_generate = "orchestrator.generate"
	report_submit   = "orchestrator.submit"
	report_record   = "orchestrator.record"
	report_close    = "orchestrator.close"
	report_outcomes = "orchestrator.outcomes"
)

const (
	// MinPostInterval is the shortest pause allowed between two submissions,
	// anything faster gets the account flagged.
	MinPostInterval     = 10 * time.Second
	DefaultPostInterval = 20 * time.Second
)

var (
	// ErrSessionLost is returned by Run when a submission left the session
	// logged out or the browser gone.
	ErrSessionLost = errors.New("session lost")
	// ErrHalted is the error of the records that were never attempted because
	// the batch stopped early.
	ErrHalted = errors.New("batch halted before this record")
	// ErrNoGenerator is the cause of a skip when a record has no body and no
	// TextGenerator was given.
	ErrNoGenerator = errors.New("record has no body and no text generator is configured")
)

type Authenticator interface {
	Authenticate(ctx context.Context, launcher browser.Launcher, creds post.Credentials) (browser.Session, error)
}

type Submitter interface {
	Submit(ctx context.Context, session browser.Session, record post.Record) post.Outcome
}

// Prompter builds the generation prompt for a record without a body.
type Prompter interface {
	Prompt(ctx context.Context, record post.Record) (string, error)
}

// Recorder persists the progress of a run, see store.Store.
type Recorder interface {
	BeginRun(ctx context.Context, runID string, startedAt time.Time, total int) error
	RecordOutcome(ctx context.Context, runID string, index int, outcome post.Outcome, at time.Time) error
	EndRun(ctx context.Context, runID string, finishedAt time.Time, runErr error) error
}

type Options struct {
	// PostInterval is the pause between two submissions, it is raised to
	// MinPostInterval when lower. Zero means DefaultPostInterval.
	PostInterval time.Duration
	// SubmitAttempts is how many times a record is submitted. A record is only
	// submitted again when it failed before anything was published.
	SubmitAttempts int
	// DecorateTitle submits post.Record.DecoratedTitle instead of the title.
	DecorateTitle bool
}

func (o Options) withDefaults() Options {
	if o.PostInterval == 0 {
		o.PostInterval = DefaultPostInterval
	}
	if o.PostInterval < MinPostInterval {
		o.PostInterval = MinPostInterval
	}
	if o.SubmitAttempts <= 0 {
		o.SubmitAttempts = 1
	}
	return o
}

type Orchestrator struct {
	auth     Authenticator
	submit   Submitter
	prompter Prompter
	recorder Recorder
	opts     Options
	clock    chrono.API
	tel      telemetry.API
}

func NewOrchestrator(
	auth Authenticator,
	submit Submitter,
	prompter Prompter,
	opts Options,
	clock chrono.API,
	tel telemetry.API,
) Orchestrator {
	assert.NotNil(auth)
	assert.NotNil(submit)
	assert.NotNil(prompter)
	assert.NotNil(clock)
	assert.NotNil(tel)

	opts = opts.withDefaults()
	assert.Positive("post interval", opts.PostInterval)

	return Orchestrator{
		auth:     auth,
		submit:   submit,
		prompter: prompter,
		opts:     opts,
		clock:    clock,
		tel:      telemetry.NewScopedAPI("batch", tel),
	}
}

// WithRecorder returns a copy of o that reports its progress to r.
func (o Orchestrator) WithRecorder(r Recorder) Orchestrator {
	o.recorder = r
	return o
}

// run is the state of a single call to Run.
type run struct {
	id        string
	session   browser.Session
	gen       generator.TextGenerator
	submitted int
}

// Run logs in once and then processes the records in order. Records without
// a body get one from gen first, those for which nothing usable comes back
// are skipped. Submissions are spaced by the post interval.
//
// A failed record does not stop the batch, a lost session does: the records
// after it are returned as skipped with ErrHalted and Run returns
// ErrSessionLost. When authentication fails no outcome is returned and the
// error is the *post.AuthError. The session is closed before Run returns.
func (o Orchestrator) Run(
	ctx context.Context,
	records []post.Record,
	creds post.Credentials,
	launcher browser.Launcher,
	gen generator.TextGenerator,
) ([]post.Outcome, error) {
	return o.RunAs(ctx, o.NewRunID(), records, creds, launcher, gen)
}

// RunAs is Run under a run id chosen by the caller, it is the id the
// recorder and the reports see.
func (o Orchestrator) RunAs(
	ctx context.Context,
	runID string,
	records []post.Record,
	creds post.Credentials,
	launcher browser.Launcher,
	gen generator.TextGenerator,
) (outcomes []post.Outcome, err error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run", runID),
		attribute.Int("records", len(records)),
	)

	r := &run{id: runID, gen: gen}
	o.begin(ctx, r, len(records))
	defer func() {
		o.end(ctx, r, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	session, err := o.auth.Authenticate(ctx, launcher, creds)
	if err != nil {
		o.tel.ReportBroken(report_run, err, r.id)
		return nil, err
	}
	r.session = session
	defer func() {
		closeErr := session.Close()
		if closeErr != nil {
			o.tel.ReportWarning(report_close, closeErr)
		}
	}()

	outcomes = make([]post.Outcome, 0, len(records))
	for i, record := range records {
		if ctxErr := ctx.Err(); ctxErr != nil {
			outcomes = append(outcomes, o.halted(ctx, r, records[i:], len(outcomes), ctxErr)...)
			return outcomes, ctxErr
		}

		outcome := o.process(ctx, r, record)
		o.record(ctx, r, i, outcome)
		outcomes = append(outcomes, outcome)

		if outcome.SessionLost {
			err = fmt.Errorf("%w: record %d (%q) failed at %s", ErrSessionLost, i, record.Title, outcome.FailedStage)
			outcomes = append(outcomes, o.halted(ctx, r, records[i+1:], len(outcomes), ErrHalted)...)
			return outcomes, err
		}
	}

	o.report(outcomes)
	return outcomes, nil
}

// process produces the outcome of a single record.
func (o Orchestrator) process(ctx context.Context, r *run, record post.Record) post.Outcome {
	if record.HasBody() && strings.Contains(record.Body, generator.ErrorMarker) {
		// left behind by a generate pass that failed for this record
		err := &post.GenerationError{Title: record.Title, Output: record.Body}
		o.tel.ReportWarning(report_generate, err)
		return post.Outcome{Record: record, Status: post.StatusSkipped, Err: err}
	}
	if !record.HasBody() {
		body, err := o.generate(ctx, r, record)
		if err != nil {
			o.tel.ReportWarning(report_generate, err)
			return post.Outcome{Record: record, Status: post.StatusSkipped, Err: err}
		}
		record = record.WithBody(body)
	}

	submitted := record
	if o.opts.DecorateTitle {
		submitted.Title = record.DecoratedTitle()
	}

	var outcome post.Outcome
	for attempt := 1; attempt <= o.opts.SubmitAttempts; attempt++ {
		err := o.pace(ctx, r)
		if err != nil {
			outcome = post.Outcome{
				Record:      record,
				Status:      post.StatusFailed,
				FailedStage: post.StageNone,
				Err:         fmt.Errorf("wait before submitting: %w", err),
				Attempts:    attempt - 1,
			}
			break
		}

		outcome = o.submit.Submit(ctx, r.session, submitted)
		outcome.Attempts = attempt
		r.submitted++

		if !retryable(outcome) || ctx.Err() != nil {
			break
		}
		o.tel.ReportWarning(report_submit, fmt.Errorf("retrying after %s: %w", outcome.FailedStage, outcome.Err), record.Title, attempt)
	}

	outcome.Record = record
	return outcome
}

func (o Orchestrator) generate(ctx context.Context, r *run, record post.Record) (string, error) {
	if r.gen == nil {
		return "", &post.GenerationError{Title: record.Title, Err: ErrNoGenerator}
	}
	prompt, err := o.prompter.Prompt(ctx, record)
	if err != nil {
		return "", &post.GenerationError{Title: record.Title, Err: fmt.Errorf("build prompt: %w", err)}
	}
	text, err := r.gen.Generate(ctx, prompt)
	return generator.Validate(record.Title, text, err)
}

// retryable reports whether submitting again cannot publish the same post a
// second time: the failure must have happened before the publish stage.
func retryable(outcome post.Outcome) bool {
	if outcome.Succeeded() || outcome.SessionLost {
		return false
	}
	return outcome.FailedStage != post.StageNone && outcome.FailedStage < post.StagePublish
}

// pace waits out the post interval before every submission but the first.
func (o Orchestrator) pace(ctx context.Context, r *run) error {
	if r.submitted == 0 {
		return nil
	}
	o.tel.ReportDebug("pacing", o.opts.PostInterval.String())
	return o.clock.Sleep(ctx, o.opts.PostInterval)
}

func (o Orchestrator) halted(ctx context.Context, r *run, rest []post.Record, offset int, cause error) []post.Outcome {
	out := make([]post.Outcome, len(rest))
	for i, record := range rest {
		out[i] = post.Outcome{Record: record, Status: post.StatusSkipped, Err: cause}
		o.record(ctx, r, offset+i, out[i])
	}
	return out
}

func (o Orchestrator) report(outcomes []post.Outcome) {
	var succeeded, failed, skipped int64
	for _, outcome := range outcomes {
		switch outcome.Status {
		case post.StatusSucceeded:
			succeeded++
		case post.StatusFailed:
			failed++
		case post.StatusSkipped:
			skipped++
		}
	}
	o.tel.ReportCount(report_outcomes+".succeeded", succeeded)
	o.tel.ReportCount(report_outcomes+".failed", failed)
	o.tel.ReportCount(report_outcomes+".skipped", skipped)
}

// NewRunID returns a fresh id for RunAs.
func (o Orchestrator) NewRunID() string {
	id, err := random.String(8)
	if err != nil {
		return o.clock.Now().Format("20060102150405")
	}
	return id
}

func (o Orchestrator) begin(ctx context.Context, r *run, total int) {
	o.tel.ReportDebug("run started", r.id, total)
	if o.recorder == nil {
		return
	}
	err := o.recorder.BeginRun(ctx, r.id, o.clock.Now(), total)
	if err != nil {
		o.tel.ReportBroken(report_record, fmt.Errorf("begin run: %w", err), r.id)
	}
}

func (o Orchestrator) record(ctx context.Context, r *run, index int, outcome post.Outcome) {
	if o.recorder == nil {
		return
	}
	err := o.recorder.RecordOutcome(context.WithoutCancel(ctx), r.id, index, outcome, o.clock.Now())
	if err != nil {
		o.tel.ReportBroken(report_record, err, r.id, index)
	}
}

func (o Orchestrator) end(ctx context.Context, r *run, runErr error) {
	if o.recorder == nil {
		return
	}
	err := o.recorder.EndRun(context.WithoutCancel(ctx), r.id, o.clock.Now(), runErr)
	if err != nil {
		o.tel.ReportBroken(report_record, fmt.Errorf("end run: %w", err), r.id)
	}
}
