package browser

import (
	"fmt"
	"strings"
)

// LocatorKind selects how a Locator's query is interpreted.
type LocatorKind int

const (
	CSS LocatorKind = iota
	XPath
	// Text matches elements selected by the CSS query whose text matches the
	// regular expression in Pattern.
	Text
)

// Locator is one way of finding an element.
type Locator struct {
	Kind    LocatorKind
	Query   string
	Pattern string
}

// ByCSS, ByXPath and ByText construct locators of the corresponding kind.
func ByCSS(query string) Locator {
	return Locator{Kind: CSS, Query: query}
}

func ByXPath(query string) Locator {
	return Locator{Kind: XPath, Query: query}
}

func ByText(query, pattern string) Locator {
	return Locator{Kind: Text, Query: query, Pattern: pattern}
}

func (l Locator) String() string {
	switch l.Kind {
	case XPath:
		return "xpath:" + l.Query
	case Text:
		return fmt.Sprintf("text:%s|%s", l.Query, l.Pattern)
	}
	return l.Query
}

// ParseLocator is the inverse of Locator.String. A string without a known
// prefix is a CSS selector.
//
//	"button.publish"                  -> CSS
//	"xpath://button[@id='publish']"   -> XPath
//	"text:button|^발행$"              -> Text
func ParseLocator(s string) (Locator, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Locator{}, fmt.Errorf("empty locator")
	}
	switch {
	case strings.HasPrefix(s, "xpath:"):
		return ByXPath(strings.TrimPrefix(s, "xpath:")), nil
	case strings.HasPrefix(s, "text:"):
		query, pattern, ok := strings.Cut(strings.TrimPrefix(s, "text:"), "|")
		if !ok || query == "" || pattern == "" {
			return Locator{}, fmt.Errorf("text locator %q must look like text:<css>|<regex>", s)
		}
		return ByText(query, pattern), nil
	}
	return ByCSS(s), nil
}

// Candidates is an ordered list of alternative locators for the same element,
// the first one that resolves wins.
type Candidates []Locator

// ParseCandidates parses each string with ParseLocator.
func ParseCandidates(values []string) (Candidates, error) {
	out := make(Candidates, 0, len(values))
	for _, v := range values {
		loc, err := ParseLocator(v)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, nil
}

func (c Candidates) String() string {
	parts := make([]string, len(c))
	for i, l := range c {
		parts[i] = l.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
