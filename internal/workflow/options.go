package workflow

import (
	"fmt"
	"strings"
	"time"

	"blogposter/internal/browser"
)

// ImagePolicy decides how many images must attach for a post to go ahead.
type ImagePolicy int

const (
	// AtLeastOne publishes when one or more images attached, or none were
	// requested.
	AtLeastOne ImagePolicy = iota
	// BestEffort publishes no matter how many images attached.
	BestEffort
	// AllImages refuses to publish unless every image attached.
	AllImages
)

func (p ImagePolicy) String() string {
	switch p {
	case BestEffort:
		return "best-effort"
	case AllImages:
		return "all"
	}
	return "at-least-one"
}

func ParseImagePolicy(s string) (ImagePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "at-least-one":
		return AtLeastOne, nil
	case "best-effort":
		return BestEffort, nil
	case "all":
		return AllImages, nil
	}
	return AtLeastOne, fmt.Errorf("unknown image policy %q", s)
}

type Options struct {
	InputMode   browser.InputMode
	ImagePolicy ImagePolicy

	// ElementTimeout bounds every lookup of a required control.
	ElementTimeout time.Duration
	// TransientTimeout bounds the wait for each dismissable dialog.
	TransientTimeout time.Duration
	// VerifyTimeout bounds how long the title is polled for the echo.
	VerifyTimeout time.Duration
	// TitleAttempts is how many times the title is entered before a mismatch
	// is reported.
	TitleAttempts int
	// ImageTimeout bounds the wait for each image to render.
	ImageTimeout time.Duration
	// ConfirmTimeout bounds the wait for the post view page, it is the
	// longest wait of the workflow.
	ConfirmTimeout time.Duration

	// The body settle delay is BodySettleBase plus BodySettlePerKRune for
	// every thousand runes of body, never more than BodySettleMax.
	BodySettleBase     time.Duration
	BodySettlePerKRune time.Duration
	BodySettleMax      time.Duration

	// SnapshotDir is where screenshots of failed submissions go.
	SnapshotDir string
}

func (o Options) withDefaults() Options {
	if o.ElementTimeout <= 0 {
		o.ElementTimeout = 15 * time.Second
	}
	if o.TransientTimeout <= 0 {
		o.TransientTimeout = time.Second
	}
	if o.VerifyTimeout <= 0 {
		o.VerifyTimeout = 2 * time.Second
	}
	if o.TitleAttempts <= 0 {
		o.TitleAttempts = 2
	}
	if o.ImageTimeout <= 0 {
		o.ImageTimeout = 20 * time.Second
	}
	if o.ConfirmTimeout <= 0 {
		o.ConfirmTimeout = 30 * time.Second
	}
	if o.BodySettleBase <= 0 {
		o.BodySettleBase = 2 * time.Second
	}
	if o.BodySettlePerKRune <= 0 {
		o.BodySettlePerKRune = time.Second
	}
	if o.BodySettleMax <= 0 {
		o.BodySettleMax = 15 * time.Second
	}
	if o.SnapshotDir == "" {
		o.SnapshotDir = "."
	}
	return o
}

// BodySettle is the delay after pasting a body of the given text.
func (o Options) BodySettle(body string) time.Duration {
	runes := len([]rune(body))
	settle := o.BodySettleBase + time.Duration(runes)*o.BodySettlePerKRune/1000
	return min(settle, o.BodySettleMax)
}
