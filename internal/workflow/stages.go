package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"blogposter/internal/browser"
	"blogposter/internal/post"
	"blogposter/pkg/textutil"
)

const (
	report_dismiss_transients = "submitter.dismiss-transients"
	report_attach_images      = "submitter.attach-images"
)

func failed(attempts int, err error) post.StageResult {
	return post.StageResult{Status: post.StageFailed, Attempts: attempts, Err: err}
}

func succeeded(attempts int) post.StageResult {
	return post.StageResult{Status: post.StageSucceeded, Attempts: attempts}
}

// lookupErr turns a lookup that ran out of time into a *post.StageTimeoutError
// and leaves every other error as it is.
func lookupErr(stage post.Stage, waiting string, timeout time.Duration, err error) error {
	if errors.Is(err, browser.ErrNotFound) {
		return &post.StageTimeoutError{Stage: stage, Waiting: waiting, Timeout: timeout, Err: err}
	}
	return fmt.Errorf("%s: %w", waiting, err)
}

func (s Submitter) find(ctx context.Context, sub *submission, stage post.Stage, waiting string, candidates browser.Candidates) (browser.Element, error) {
	el, _, err := s.waiter.FirstMatch(ctx, sub.session, candidates, s.opts.ElementTimeout)
	if err != nil {
		return nil, lookupErr(stage, waiting, s.opts.ElementTimeout, err)
	}
	return el, nil
}

func (s Submitter) navigateEditor(ctx context.Context, sub *submission) post.StageResult {
	err := sub.session.ExitFrame(ctx)
	if err != nil {
		return failed(1, err)
	}
	err = sub.session.Navigate(ctx, s.site.EditorURL)
	if err != nil {
		return failed(1, fmt.Errorf("open editor: %w", err))
	}
	_, err = s.waiter.EnterFirstFrame(ctx, sub.session, s.site.EditorFrame, s.opts.ElementTimeout)
	if err != nil {
		return failed(1, lookupErr(post.StageNavigateEditor, "editor frame", s.opts.ElementTimeout, err))
	}
	return succeeded(1)
}

// dismissTransients closes the "resume draft" and help dialogs when they show
// up. Nothing here can fail the submission.
func (s Submitter) dismissTransients(ctx context.Context, sub *submission) post.StageResult {
	dismissed := 0
	for _, candidates := range []browser.Candidates{s.site.DraftCancel, s.site.HelpClose} {
		el, by, err := s.waiter.FirstMatch(ctx, sub.session, candidates, s.opts.TransientTimeout)
		if err != nil {
			if !errors.Is(err, browser.ErrNotFound) {
				s.tel.ReportWarning(report_dismiss_transients, err)
			}
			continue
		}
		err = el.Click(ctx)
		if err != nil {
			s.tel.ReportWarning(report_dismiss_transients, fmt.Errorf("click %s: %w", by, err))
			continue
		}
		dismissed++
	}
	if dismissed == 0 {
		return post.StageResult{Status: post.StageSkipped, Attempts: 1}
	}
	return succeeded(1)
}

// enterTitle replaces the title field's contents and polls until the field
// renders the same text, ignoring emphasis markers and whitespace.
func (s Submitter) enterTitle(ctx context.Context, sub *submission) post.StageResult {
	title := sub.record.Title
	var lastErr error
	for attempt := 1; attempt <= s.opts.TitleAttempts; attempt++ {
		field, err := s.find(ctx, sub, post.StageEnterTitle, "title field", s.site.Title)
		if err != nil {
			return failed(attempt, err)
		}
		err = field.Click(ctx)
		if err == nil {
			err = field.SelectAll(ctx)
		}
		if err == nil {
			err = field.Insert(ctx, title, s.opts.InputMode)
		}
		if err != nil {
			return failed(attempt, fmt.Errorf("enter title: %w", err))
		}

		rendered := ""
		ok, err := s.waiter.Until(ctx, s.opts.VerifyTimeout, func(ctx context.Context) (bool, error) {
			text, err := field.Text(ctx)
			if err != nil {
				return false, err
			}
			rendered = text
			return textutil.EchoMatches(title, text), nil
		})
		if err != nil {
			return failed(attempt, fmt.Errorf("read back title: %w", err))
		}
		if ok {
			return succeeded(attempt)
		}
		lastErr = &post.VerificationError{Stage: post.StageEnterTitle, Expected: title, Actual: rendered}
	}
	return failed(s.opts.TitleAttempts, lastErr)
}

func (s Submitter) enterBody(ctx context.Context, sub *submission) post.StageResult {
	region, err := s.find(ctx, sub, post.StageEnterBody, "body region", s.site.Body)
	if err != nil {
		return failed(1, err)
	}
	err = region.Click(ctx)
	if err == nil {
		err = region.SelectAll(ctx)
	}
	if err == nil {
		err = region.Insert(ctx, sub.record.Body, s.opts.InputMode)
	}
	if err != nil {
		return failed(1, fmt.Errorf("enter body: %w", err))
	}

	err = s.clock.Sleep(ctx, s.opts.BodySettle(sub.record.Body))
	if err != nil {
		return failed(1, fmt.Errorf("settle after body: %w", err))
	}
	return succeeded(1)
}

// attachImages uploads images one at a time, in order, each one confirmed by
// the count of rendered images going up.
func (s Submitter) attachImages(ctx context.Context, sub *submission) post.StageResult {
	images := sub.record.Images
	if len(images) == 0 {
		return post.StageResult{Status: post.StageSkipped}
	}

	partial := &post.PartialAttachmentError{}
	for _, path := range images {
		err := s.attachImage(ctx, sub, path)
		if errors.Is(err, browser.ErrSessionClosed) || ctx.Err() != nil {
			return failed(len(images), err)
		}
		if err != nil {
			s.tel.ReportWarning(report_attach_images, err, path)
			partial.Failed = append(partial.Failed, path)
			partial.Errs = append(partial.Errs, err)
			continue
		}
		partial.Attached++
	}

	if len(partial.Failed) == 0 {
		return succeeded(len(images))
	}
	res := post.StageResult{Status: post.StageDegraded, Attempts: len(images), Err: partial}
	switch s.opts.ImagePolicy {
	case AllImages:
		res.Status = post.StageFailed
	case AtLeastOne:
		if partial.Attached == 0 {
			res.Status = post.StageFailed
		}
	}
	return res
}

func (s Submitter) attachImage(ctx context.Context, sub *submission, path string) error {
	_, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("image %s: %w", path, err)
	}

	before, err := browser.CountMax(ctx, sub.session, s.site.RenderedImages)
	if err != nil {
		return err
	}

	input, err := s.fileInput(ctx, sub)
	if err != nil {
		return err
	}
	err = input.SetFiles(ctx, []string{path})
	if err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}

	ok, err := s.waiter.Until(ctx, s.opts.ImageTimeout, func(ctx context.Context) (bool, error) {
		n, err := browser.CountMax(ctx, sub.session, s.site.RenderedImages)
		return n > before, err
	})
	if err != nil {
		return err
	}
	if !ok {
		return &post.StageTimeoutError{
			Stage:   post.StageAttachImages,
			Waiting: fmt.Sprintf("%s to render", path),
			Timeout: s.opts.ImageTimeout,
		}
	}
	return nil
}

// fileInput finds the hidden file input, opening the image toolbar first if
// the editor has not created the input yet.
func (s Submitter) fileInput(ctx context.Context, sub *submission) (browser.Element, error) {
	input, _, err := s.waiter.FirstMatch(ctx, sub.session, s.site.FileInput, s.opts.TransientTimeout)
	if err == nil {
		return input, nil
	}
	if !errors.Is(err, browser.ErrNotFound) {
		return nil, err
	}

	button, _, err := s.waiter.FirstMatch(ctx, sub.session, s.site.ImageButton, s.opts.TransientTimeout)
	if err != nil {
		return nil, lookupErr(post.StageAttachImages, "image toolbar button", s.opts.TransientTimeout, err)
	}
	err = button.Click(ctx)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, sub, post.StageAttachImages, "file input", s.site.FileInput)
}

// publish clicks the trigger and then the confirm control of the panel it
// opens. The panel renders asynchronously so the two are looked up separately.
func (s Submitter) publish(ctx context.Context, sub *submission) post.StageResult {
	trigger, err := s.find(ctx, sub, post.StagePublish, "publish trigger", s.site.PublishTrigger)
	if err != nil {
		return failed(1, err)
	}
	err = trigger.Click(ctx)
	if err != nil {
		return failed(1, fmt.Errorf("click publish trigger: %w", err))
	}

	confirm, err := s.find(ctx, sub, post.StagePublish, "publish confirmation", s.site.PublishConfirm)
	if err != nil {
		return failed(1, err)
	}
	err = confirm.Click(ctx)
	if err != nil {
		return failed(1, fmt.Errorf("click publish confirmation: %w", err))
	}
	return succeeded(1)
}

// confirmPublished waits for the post view page, the only signal that the post
// actually went out.
func (s Submitter) confirmPublished(ctx context.Context, sub *submission) post.StageResult {
	ok, err := s.waiter.Until(ctx, s.opts.ConfirmTimeout, func(ctx context.Context) (bool, error) {
		url, err := sub.session.URL(ctx)
		if err != nil {
			return false, err
		}
		if s.site.IsPostView(url) {
			sub.postURL = url
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return failed(1, fmt.Errorf("read location: %w", err))
	}
	if !ok {
		return failed(1, &post.StageTimeoutError{
			Stage:   post.StageConfirmPublished,
			Waiting: "post view page",
			Timeout: s.opts.ConfirmTimeout,
		})
	}
	return succeeded(1)
}
