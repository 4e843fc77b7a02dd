package browser_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"blogposter/internal/browser"
	"blogposter/internal/browser/browsertest"
	"blogposter/internal/components/chrono"

	"github.com/stretchr/testify/require"
)

func cssCandidates(queries ...string) browser.Candidates {
	out := make(browser.Candidates, len(queries))
	for i, q := range queries {
		out[i] = browser.ByCSS(q)
	}
	return out
}

func TestParseLocator(t *testing.T) {
	testCases := []struct {
		in       string
		expected browser.Locator
		err      bool
	}{
		{in: ".se-title-text", expected: browser.ByCSS(".se-title-text")},
		{in: "xpath://button[1]", expected: browser.ByXPath("//button[1]")},
		{in: "text:button|^발행$", expected: browser.ByText("button", "^발행$")},
		{in: "text:button", err: true},
		{in: "  ", err: true},
	}

	for _, test := range testCases {
		loc, err := browser.ParseLocator(test.in)
		if test.err {
			require.Error(t, err, test.in)
			continue
		}
		require.NoError(t, err, test.in)
		require.Equal(t, test.expected, loc)

		roundTrip, err := browser.ParseLocator(loc.String())
		require.NoError(t, err)
		require.Equal(t, loc, roundTrip)
	}
}

func TestParseInputMode(t *testing.T) {
	mode, err := browser.ParseInputMode("")
	require.NoError(t, err)
	require.Equal(t, browser.InputPaste, mode)

	mode, err = browser.ParseInputMode("TYPE")
	require.NoError(t, err)
	require.Equal(t, browser.InputType, mode)

	_, err = browser.ParseInputMode("telepathy")
	require.Error(t, err)
}

func newWaiter() (browser.Waiter, *chrono.FakeClock) {
	clock := chrono.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	return browser.Waiter{Clock: clock, Interval: 100 * time.Millisecond}, clock
}

func TestFirstMatchPrefersEarlierCandidates(t *testing.T) {
	ctx := context.Background()
	waiter, _ := newWaiter()
	session := browsertest.NewSession("about:blank")
	second := session.Add(browser.ByCSS("#second"), nil)
	session.Add(browser.ByCSS("#third"), nil)

	el, loc, err := waiter.FirstMatch(ctx, session, cssCandidates("#first", "#second", "#third"), time.Second)
	require.NoError(t, err)
	require.Equal(t, browser.ByCSS("#second"), loc)
	require.Same(t, second, el)
}

func TestFirstMatchTimesOut(t *testing.T) {
	ctx := context.Background()
	waiter, clock := newWaiter()
	session := browsertest.NewSession("about:blank")

	start := clock.Now()
	_, _, err := waiter.FirstMatch(ctx, session, cssCandidates("#missing"), time.Second)
	require.ErrorIs(t, err, browser.ErrNotFound)
	require.Equal(t, time.Second, clock.Now().Sub(start))
}

func TestFirstMatchStopsOnSessionLoss(t *testing.T) {
	ctx := context.Background()
	waiter, clock := newWaiter()
	session := browsertest.NewSession("about:blank")
	session.Kill()

	_, _, err := waiter.FirstMatch(ctx, session, cssCandidates("#a", "#b"), time.Minute)
	require.ErrorIs(t, err, browser.ErrSessionClosed)
	require.Empty(t, clock.Sleeps())
}

func TestUntilSeesLateCondition(t *testing.T) {
	ctx := context.Background()
	waiter, _ := newWaiter()

	calls := 0
	ok, err := waiter.Until(ctx, time.Second, func(context.Context) (bool, error) {
		calls++
		return calls == 4, nil
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 4, calls)

	boom := errors.New("boom")
	_, err = waiter.Until(ctx, time.Second, func(context.Context) (bool, error) {
		return false, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestUntilZeroTimeoutChecksOnce(t *testing.T) {
	waiter, clock := newWaiter()
	calls := 0
	ok, err := waiter.Until(context.Background(), 0, func(context.Context) (bool, error) {
		calls++
		return false, nil
	})
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, calls)
	require.Empty(t, clock.Sleeps())
}

func TestUntilHonoursCancellation(t *testing.T) {
	waiter, _ := newWaiter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := waiter.Until(ctx, time.Minute, func(context.Context) (bool, error) {
		return false, nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCountMax(t *testing.T) {
	session := browsertest.NewSession("about:blank")
	session.SetCount(browser.ByCSS("img.a"), 2)
	session.SetCount(browser.ByCSS("img.b"), 3)

	n, err := browser.CountMax(context.Background(), session, cssCandidates("img.a", "img.b", "img.c"))
	require.NoError(t, err)
	require.Equal(t, 3, n)
}
