// Package generator drafts post bodies with a generative text API.
package generator

import (
	"context"
	"fmt"
	"strings"

	"blogposter/internal/post"
)

// TextGenerator turns a prompt into text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrorMarker prefixes text that reports a failure instead of content. Some
// generators return it in place of an error, such text is never posted.
const ErrorMarker = "❌"

// Validate checks generated text for a record and returns it trimmed, or a
// *post.GenerationError when there is nothing usable in it.
func Validate(title, text string, err error) (string, error) {
	if err != nil {
		return "", &post.GenerationError{Title: title, Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" || strings.Contains(text, ErrorMarker) {
		return "", &post.GenerationError{Title: title, Output: text}
	}
	return text, nil
}

// Mode selects the kind of post that is generated.
type Mode int

const (
	// ModeArticle writes a long form article from crawled references.
	ModeArticle Mode = iota
	// ModePromo writes a one or two sentence promotion.
	ModePromo
)

func (m Mode) String() string {
	if m == ModePromo {
		return "promo"
	}
	return "article"
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "article":
		return ModeArticle, nil
	case "promo":
		return ModePromo, nil
	}
	return ModeArticle, fmt.Errorf("unknown generation mode %q", s)
}
