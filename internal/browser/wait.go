package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blogposter/internal/components/chrono"
)

// DefaultPollInterval is how often bounded waits re-check their condition.
const DefaultPollInterval = 250 * time.Millisecond

// Waiter polls conditions against a clock. The zero Interval means
// DefaultPollInterval.
type Waiter struct {
	Clock    chrono.API
	Interval time.Duration
}

func (w Waiter) interval() time.Duration {
	if w.Interval <= 0 {
		return DefaultPollInterval
	}
	return w.Interval
}

// Until calls cond until it reports true, returns an error or timeout elapses.
// cond is always called at least once. It returns false without an error
// when time ran out.
func (w Waiter) Until(ctx context.Context, timeout time.Duration, cond func(ctx context.Context) (bool, error)) (bool, error) {
	deadline := w.Clock.Now().Add(timeout)
	for {
		ok, err := cond(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		remaining := deadline.Sub(w.Clock.Now())
		if remaining <= 0 {
			return false, nil
		}
		err = w.Clock.Sleep(ctx, min(w.interval(), remaining))
		if err != nil {
			return false, err
		}
	}
}

// FirstMatch tries every candidate in order on each poll and returns the
// first element that resolves together with the locator that found it.
// Errors other than ErrNotFound stop the search immediately. When nothing
// resolves within timeout the returned error wraps ErrNotFound.
func (w Waiter) FirstMatch(ctx context.Context, s Session, candidates Candidates, timeout time.Duration) (Element, Locator, error) {
	if len(candidates) == 0 {
		return nil, Locator{}, fmt.Errorf("no locator candidates: %w", ErrNotFound)
	}

	var found Element
	var foundBy Locator
	ok, err := w.Until(ctx, timeout, func(ctx context.Context) (bool, error) {
		for _, loc := range candidates {
			el, err := s.Find(ctx, loc)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return false, fmt.Errorf("find %s: %w", loc, err)
			}
			found = el
			foundBy = loc
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return nil, Locator{}, err
	}
	if !ok {
		return nil, Locator{}, fmt.Errorf("none of %s within %s: %w", candidates, timeout, ErrNotFound)
	}
	return found, foundBy, nil
}

// EnterFirstFrame switches into the first frame among candidates that
// resolves within timeout.
func (w Waiter) EnterFirstFrame(ctx context.Context, s Session, candidates Candidates, timeout time.Duration) (Locator, error) {
	_, loc, err := w.FirstMatch(ctx, s, candidates, timeout)
	if err != nil {
		return Locator{}, err
	}
	return loc, s.EnterFrame(ctx, loc)
}

// CountMax returns the largest Count among candidates. Candidates for the
// same kind of element often overlap, so the counts are not summed.
func CountMax(ctx context.Context, s Session, candidates Candidates) (int, error) {
	best := 0
	for _, loc := range candidates {
		n, err := s.Count(ctx, loc)
		if err != nil {
			return 0, fmt.Errorf("count %s: %w", loc, err)
		}
		best = max(best, n)
	}
	return best, nil
}
