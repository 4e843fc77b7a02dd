package post

import (
	"errors"
	"fmt"
	"time"

	"github.com/antzucaro/matchr"
)

// AuthError means the platform did not accept the credentials or asked for
// extra verification. It ends the batch.
type AuthError struct {
	Reason string
	// URL is where the browser was when the step gave up.
	URL string
	Err error
}

// AuthReasonRejected is the reason given when the login page never went away.
const AuthReasonRejected = "invalid-credentials-or-challenge"

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("authentication failed: %s", e.Reason)
	if e.URL != "" {
		msg += fmt.Sprintf(" (at %s)", e.URL)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// StageTimeoutError is a bounded wait that ran out.
type StageTimeoutError struct {
	Stage   Stage
	Waiting string
	Timeout time.Duration
	Err     error
}

func (e *StageTimeoutError) Error() string {
	msg := fmt.Sprintf("%s: timed out after %s waiting for %s", e.Stage, e.Timeout, e.Waiting)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StageTimeoutError) Unwrap() error {
	return e.Err
}

// VerificationError means the text read back from a field is not what was
// entered into it.
type VerificationError struct {
	Stage    Stage
	Expected string
	Actual   string
}

// Similarity is the Jaro-Winkler similarity between what was expected and what
// the field rendered, it helps tell a truncated paste from a wrong field.
func (e *VerificationError) Similarity() float64 {
	return matchr.JaroWinkler(e.Expected, e.Actual, false)
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf(
		"%s: rendered text %q does not match %q (similarity %.2f)",
		e.Stage, e.Actual, e.Expected, e.Similarity(),
	)
}

// PartialAttachmentError lists the images that did not attach. It never fails
// a record on its own.
type PartialAttachmentError struct {
	Failed   []string
	Attached int
	Errs     []error
}

func (e *PartialAttachmentError) Error() string {
	return fmt.Sprintf(
		"%d of %d images failed to attach: %v",
		len(e.Failed), len(e.Failed)+e.Attached, errors.Join(e.Errs...),
	)
}

func (e *PartialAttachmentError) Unwrap() []error {
	return e.Errs
}

// GenerationError means the text generator returned nothing usable, the record
// is skipped rather than failed.
type GenerationError struct {
	Title string
	// Output is what the generator returned, if anything.
	Output string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generate body for %q: %s", e.Title, e.Err.Error())
	}
	return fmt.Sprintf("generate body for %q: no usable content", e.Title)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
