// Package workflow drives an authenticated session through the platform's
// editor to publish a single post.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"blogposter/internal/browser"
	"blogposter/internal/components/assert"
	"blogposter/internal/components/chrono"
	"blogposter/internal/components/telemetry"
	"blogposter/internal/platform"
	"blogposter/internal/post"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("blogposter/workflow")

const (
	report_submit   = "submitter.submit"
	report_snapshot = "submitter.snapshot"
)

// Submitter publishes posts. A Submitter holds no per-post state, so the
// same value may be used for every record of a batch.
type Submitter struct {
	site   platform.Site
	opts   Options
	clock  chrono.API
	waiter browser.Waiter
	tel    telemetry.API
}

func NewSubmitter(site platform.Site, opts Options, clock chrono.API, tel telemetry.API) Submitter {
	assert.NotNil(clock)
	assert.NotNil(tel)
	assert.NotEmptyStr(site.EditorURL)

	return Submitter{
		site:   site,
		opts:   opts.withDefaults(),
		clock:  clock,
		waiter: browser.Waiter{Clock: clock},
		tel:    telemetry.NewScopedAPI("workflow", tel),
	}
}

// submission is the state shared by the stages of one Submit call.
type submission struct {
	session browser.Session
	record  post.Record
	postURL string
}

type stageFunc func(ctx context.Context, sub *submission) post.StageResult

func (s Submitter) stages() []struct {
	id  post.Stage
	run stageFunc
} {
	return []struct {
		id  post.Stage
		run stageFunc
	}{
		{post.StageNavigateEditor, s.navigateEditor},
		{post.StageDismissTransients, s.dismissTransients},
		{post.StageEnterTitle, s.enterTitle},
		{post.StageEnterBody, s.enterBody},
		{post.StageAttachImages, s.attachImages},
		{post.StagePublish, s.publish},
		{post.StageConfirmPublished, s.confirmPublished},
	}
}

// Submit runs every stage in order and stops at the first one that fails.
// Whatever happens, the session is switched back to the top level document
// before returning. Submit never retries the whole sequence, calling it again
// for the same record starts over from a fresh editor.
func (s Submitter) Submit(ctx context.Context, session browser.Session, record post.Record) post.Outcome {
	ctx, span := tracer.Start(ctx, "Submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("title", record.Title),
		attribute.Int("images", len(record.Images)),
	)

	sub := &submission{session: session, record: record}
	outcome := post.Outcome{Record: record, Status: post.StatusSucceeded}

	for _, st := range s.stages() {
		res := s.runStage(ctx, st.id, st.run, sub)
		outcome.Stages = append(outcome.Stages, res)
		if res.Status != post.StageFailed {
			continue
		}

		outcome.Status = post.StatusFailed
		outcome.FailedStage = st.id
		outcome.Err = res.Err
		outcome.SessionLost = s.sessionLost(ctx, session, res.Err)
		outcome.Diagnostic = s.snapshot(ctx, session, st.id)
		outcome.Stages[len(outcome.Stages)-1].Diagnostic = outcome.Diagnostic

		s.tel.ReportBroken(report_submit, fmt.Errorf("%s: %w", st.id, res.Err), record.Title)
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, st.id.String())
		break
	}

	outcome.Stages = append(outcome.Stages, s.exitContext(ctx, sub))
	if outcome.Succeeded() {
		outcome.PostURL = sub.postURL
		s.tel.ReportDebug("published", record.Title, sub.postURL)
	}
	return outcome
}

func (s Submitter) runStage(ctx context.Context, id post.Stage, run stageFunc, sub *submission) post.StageResult {
	ctx, span := tracer.Start(ctx, id.String())
	defer span.End()

	res := run(ctx, sub)
	res.Stage = id
	span.SetAttributes(
		attribute.String("status", res.Status.String()),
		attribute.Int("attempts", res.Attempts),
	)
	if res.Err != nil {
		span.RecordError(res.Err)
	}
	if res.Status == post.StageFailed {
		span.SetStatus(codes.Error, "stage failed")
	}
	return res
}

// exitContext runs on every path, a failure here does not change the outcome.
func (s Submitter) exitContext(ctx context.Context, sub *submission) post.StageResult {
	res := post.StageResult{Stage: post.StageExitContext, Status: post.StageSucceeded, Attempts: 1}
	// a cancelled batch still needs the session left at the top level
	err := sub.session.ExitFrame(context.WithoutCancel(ctx))
	if err != nil {
		res.Status = post.StageFailed
		res.Err = err
		s.tel.ReportWarning(report_submit, fmt.Errorf("exit editor frame: %w", err))
	}
	return res
}

// sessionLost reports whether err or the page the browser ended up on means
// the session can no longer publish.
func (s Submitter) sessionLost(ctx context.Context, session browser.Session, err error) bool {
	if errors.Is(err, browser.ErrSessionClosed) {
		return true
	}
	url, urlErr := session.URL(context.WithoutCancel(ctx))
	if urlErr != nil {
		return errors.Is(urlErr, browser.ErrSessionClosed)
	}
	return s.site.IsLoginPage(url)
}

// snapshot captures the screen and returns the path written, or "" when the
// capture failed.
func (s Submitter) snapshot(ctx context.Context, session browser.Session, stage post.Stage) string {
	name := fmt.Sprintf(
		"error_screenshot_%s_%s.png",
		s.clock.Now().Format("20060102_150405"),
		stage,
	)
	path := filepath.Join(s.opts.SnapshotDir, name)
	err := session.Snapshot(context.WithoutCancel(ctx), path)
	if err != nil {
		s.tel.ReportWarning(report_snapshot, err, path)
		return ""
	}
	return path
}
