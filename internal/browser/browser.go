// Package browser describes the capabilities the posting workflow needs from
// an automated browser, independent of the driver behind it.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by Session.Find when nothing matches a locator.
	ErrNotFound = errors.New("element not found")
	// ErrSessionClosed is returned by every operation once the underlying
	// browser went away, the session cannot be used again.
	ErrSessionClosed = errors.New("browser session closed")
)

// InputMode is how text gets into a field.
type InputMode int

const (
	// InputPaste delivers the whole text as a single paste, the target
	// platform rejects fast synthetic keystrokes but accepts pastes.
	InputPaste InputMode = iota
	// InputType inserts the text one character at a time, pausing between
	// characters. Hangul has no key codes, so no key events are sent.
	InputType
)

func (m InputMode) String() string {
	if m == InputType {
		return "type"
	}
	return "paste"
}

// ParseInputMode parses "paste" or "type", an empty string is paste.
func ParseInputMode(s string) (InputMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "paste":
		return InputPaste, nil
	case "type":
		return InputType, nil
	}
	return InputPaste, fmt.Errorf("unknown input mode %q", s)
}

// Element is a resolved node in the current document context.
type Element interface {
	Click(ctx context.Context) error
	// SelectAll selects the existing contents of an editable element so that
	// the next Insert replaces them.
	SelectAll(ctx context.Context) error
	// Insert puts text at the caret of a focused element.
	Insert(ctx context.Context, text string, mode InputMode) error
	// Text returns the rendered text of the element.
	Text(ctx context.Context) (string, error)
	// SetFiles hands filesystem paths to a file input.
	SetFiles(ctx context.Context, paths []string) error
}

// Session is one browser context. It is used by a single caller at a time.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// URL returns the location of the top level document.
	URL(ctx context.Context) (string, error)
	// Find resolves a locator once without waiting, it returns ErrNotFound
	// when nothing matches.
	Find(ctx context.Context, loc Locator) (Element, error)
	// Count returns how many elements currently match the locator.
	Count(ctx context.Context, loc Locator) (int, error)
	// EnterFrame switches lookups into the document of the frame element the
	// locator resolves to.
	EnterFrame(ctx context.Context, loc Locator) error
	// ExitFrame switches lookups back to the top level document, it is a
	// no-op when already there.
	ExitFrame(ctx context.Context) error
	// Snapshot writes a screenshot of the current screen to path.
	Snapshot(ctx context.Context, path string) error
	// Close releases the browser, it is safe to call more than once.
	Close() error
}

// Launcher opens fresh sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}
