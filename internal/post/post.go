// Package post holds the records that flow through a batch and the outcomes
// that come back out of it.
package post

import (
	"fmt"
	"strings"
)

// Record is one post to publish. Body may be empty until a generator fills it
// in, after that the record is not modified again.
type Record struct {
	Title         string
	Body          string
	ReferenceURLs []string
	// Images are filesystem paths, attached in order.
	Images     []string
	ReferralID string
}

// HasBody reports whether the record carries text that can be submitted as is.
func (r Record) HasBody() bool {
	return strings.TrimSpace(r.Body) != ""
}

// WithBody returns a copy of r with its body replaced.
func (r Record) WithBody(body string) Record {
	r.Body = body
	r.ReferenceURLs = append([]string(nil), r.ReferenceURLs...)
	r.Images = append([]string(nil), r.Images...)
	return r
}

// noReferral is what the source spreadsheets put in the referral column when
// there is none.
const noReferral = "없음"

// HasReferral reports whether the record has a usable referral id.
func (r Record) HasReferral() bool {
	id := strings.TrimSpace(r.ReferralID)
	return id != "" && id != noReferral
}

// DecoratedTitle returns the title wrapped in emphasis markers with the
// referral id appended, which is how promotional posts are titled.
func (r Record) DecoratedTitle() string {
	if r.HasReferral() {
		return fmt.Sprintf("**%s** (추천인: %s)", r.Title, strings.TrimSpace(r.ReferralID))
	}
	return fmt.Sprintf("**%s**", r.Title)
}

// Credentials are supplied once per batch by the caller and never stored.
type Credentials struct {
	Identifier string
	Secret     string
}

func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Identifier: %q, Secret: <redacted>}", c.Identifier)
}
