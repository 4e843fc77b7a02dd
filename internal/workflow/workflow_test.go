package workflow

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"blogposter/internal/browser"
	"blogposter/internal/browser/browsertest"
	"blogposter/internal/components/chrono"
	"blogposter/internal/components/telemetry"
	"blogposter/internal/platform"
	"blogposter/internal/post"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type harness struct {
	submitter Submitter
	fake      *browsertest.Platform
	clock     *chrono.FakeClock
	tel       *telemetry.RecordingAPI
}

func newHarness(t *testing.T, opts Options) harness {
	t.Helper()
	site := platform.Default()
	clock := chrono.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	tel := &telemetry.RecordingAPI{}
	if opts.SnapshotDir == "" {
		opts.SnapshotDir = "shots"
	}
	fake := browsertest.NewPlatform(site)
	fake.Session.SetURL(browsertest.HomeURL)
	return harness{
		submitter: NewSubmitter(site, opts, clock, tel),
		fake:      fake,
		clock:     clock,
		tel:       tel,
	}
}

func (h harness) submit(record post.Record) post.Outcome {
	return h.submitter.Submit(context.Background(), h.fake.Session, record)
}

func images(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(out[i], []byte("png"), 0644))
	}
	return out
}

func stageStatuses(outcome post.Outcome) map[post.Stage]post.StageStatus {
	out := map[post.Stage]post.StageStatus{}
	for _, res := range outcome.Stages {
		out[res.Stage] = res.Status
	}
	return out
}

func TestSubmitResponsiveDriver(t *testing.T) {
	h := newHarness(t, Options{})

	outcome := h.submit(post.Record{Title: "Hello", Body: "World"})
	require.True(t, outcome.Succeeded(), outcome.Err)
	require.Equal(t, post.StageNone, outcome.FailedStage)
	require.Empty(t, outcome.Diagnostic)
	require.Equal(t, "https://blog.naver.com/PostView.naver?blogId=tester&logNo=1", outcome.PostURL)

	require.Equal(t, "Hello", h.fake.Title.Content())
	require.Equal(t, "World", h.fake.Body.Content())
	require.Equal(t, 1, h.fake.Posts())
	require.Empty(t, h.fake.Session.Snapshots())
	require.Empty(t, h.fake.Session.Frame())

	expected := map[post.Stage]post.StageStatus{
		post.StageNavigateEditor:    post.StageSucceeded,
		post.StageDismissTransients: post.StageSkipped,
		post.StageEnterTitle:        post.StageSucceeded,
		post.StageEnterBody:         post.StageSucceeded,
		post.StageAttachImages:      post.StageSkipped,
		post.StagePublish:           post.StageSucceeded,
		post.StageConfirmPublished:  post.StageSucceeded,
		post.StageExitContext:       post.StageSucceeded,
	}
	require.Empty(t, cmp.Diff(expected, stageStatuses(outcome)))

	var order []post.Stage
	for _, res := range outcome.Stages {
		order = append(order, res.Stage)
	}
	require.Equal(t, []post.Stage{
		post.StageNavigateEditor,
		post.StageDismissTransients,
		post.StageEnterTitle,
		post.StageEnterBody,
		post.StageAttachImages,
		post.StagePublish,
		post.StageConfirmPublished,
		post.StageExitContext,
	}, order)
}

func TestSubmitTruncatedTitleEcho(t *testing.T) {
	h := newHarness(t, Options{})
	h.fake.Title.Echo = func(string) string { return "Hell" }

	outcome := h.submit(post.Record{Title: "Hello", Body: "World"})
	require.False(t, outcome.Succeeded())
	require.Equal(t, post.StageEnterTitle, outcome.FailedStage)
	require.NotEmpty(t, outcome.Diagnostic)
	require.True(t, strings.HasPrefix(filepath.Base(outcome.Diagnostic), "error_screenshot_"))
	require.Equal(t, []string{outcome.Diagnostic}, h.fake.Session.Snapshots())

	var verifyErr *post.VerificationError
	require.ErrorAs(t, outcome.Err, &verifyErr)
	require.Equal(t, "Hell", verifyErr.Actual)

	res, ok := outcome.Stage(post.StageEnterTitle)
	require.True(t, ok)
	require.Equal(t, 2, res.Attempts)
	require.Equal(t, outcome.Diagnostic, res.Diagnostic)

	// nothing after the title ran, but the frame was still left
	_, ranBody := outcome.Stage(post.StageEnterBody)
	require.False(t, ranBody)
	require.Equal(t, 0, h.fake.Publish.Clicks())
	exit, ok := outcome.Stage(post.StageExitContext)
	require.True(t, ok)
	require.True(t, exit.Succeeded())
	require.Empty(t, h.fake.Session.Frame())
	require.False(t, outcome.SessionLost)
	require.Len(t, h.tel.Reports("broken"), 1)
}

func TestSubmitTitleEmphasisInsensitive(t *testing.T) {
	testCases := []struct {
		title string
		echo  func(string) string
	}{
		{
			title: "**Hello** (추천인: abc)",
			echo:  func(s string) string { return strings.ReplaceAll(s, "**", "") },
		},
		{
			title: "Hello",
			echo:  func(s string) string { return "**" + s + "**" },
		},
		{
			title: "Hello   big\tworld",
			echo:  func(s string) string { return " Hello big world\n" },
		},
	}

	for _, test := range testCases {
		h := newHarness(t, Options{})
		h.fake.Title.Echo = test.echo
		outcome := h.submit(post.Record{Title: test.title, Body: "World"})
		require.True(t, outcome.Succeeded(), test.title)
	}
}

func TestSubmitTitleRetriedOnce(t *testing.T) {
	h := newHarness(t, Options{})
	attempt := 0
	h.fake.Title.OnClick = func(*browsertest.Session) { attempt++ }
	// the first paste is dropped by the editor for the whole verify window
	h.fake.Title.Echo = func(s string) string {
		if attempt == 1 {
			return ""
		}
		return s
	}

	outcome := h.submit(post.Record{Title: "Hello", Body: "World"})
	require.True(t, outcome.Succeeded(), outcome.Err)
	res, _ := outcome.Stage(post.StageEnterTitle)
	require.Equal(t, 2, res.Attempts)
	require.Len(t, h.fake.Title.Inserts(), 2)
}

func TestSubmitPartialImages(t *testing.T) {
	h := newHarness(t, Options{})
	paths := images(t, "first.png", "second.png")
	h.fake.FailImages[paths[1]] = true

	outcome := h.submit(post.Record{Title: "Hello", Body: "World", Images: paths})
	require.True(t, outcome.Succeeded(), outcome.Err)

	res, ok := outcome.Stage(post.StageAttachImages)
	require.True(t, ok)
	require.Equal(t, post.StageDegraded, res.Status)
	var partial *post.PartialAttachmentError
	require.ErrorAs(t, res.Err, &partial)
	require.Equal(t, []string{paths[1]}, partial.Failed)
	require.Equal(t, 1, partial.Attached)

	// images go in one at a time in the order given
	require.Equal(t, [][]string{{paths[0]}, {paths[1]}}, h.fake.FileInput.Uploads())
	require.Equal(t, 1, h.fake.Posts())
	require.Len(t, h.tel.Reports("warning"), 1)
}

func TestSubmitImageWaitCountsRenderedImages(t *testing.T) {
	h := newHarness(t, Options{ImagePolicy: BestEffort, ImageTimeout: 3 * time.Second})
	paths := images(t, "a.png")
	// the upload is accepted but nothing renders, time passing is not enough
	h.fake.FileInput.OnSetFiles = func(*browsertest.Session, []string) error { return nil }

	outcome := h.submit(post.Record{Title: "Hello", Body: "World", Images: paths})
	require.True(t, outcome.Succeeded())
	res, _ := outcome.Stage(post.StageAttachImages)
	require.Equal(t, post.StageDegraded, res.Status)

	var timeout *post.StageTimeoutError
	require.ErrorAs(t, res.Err, &timeout)
	require.Equal(t, 3*time.Second, timeout.Timeout)
}

func TestSubmitImagePolicies(t *testing.T) {
	testCases := []struct {
		policy    ImagePolicy
		fail      []int
		succeeded bool
	}{
		{policy: AtLeastOne, fail: []int{0, 1}, succeeded: false},
		{policy: AtLeastOne, fail: []int{0}, succeeded: true},
		{policy: BestEffort, fail: []int{0, 1}, succeeded: true},
		{policy: AllImages, fail: []int{1}, succeeded: false},
		{policy: AllImages, fail: nil, succeeded: true},
	}

	for _, test := range testCases {
		h := newHarness(t, Options{ImagePolicy: test.policy})
		paths := images(t, "a.png", "b.png")
		for _, i := range test.fail {
			h.fake.FailImages[paths[i]] = true
		}

		outcome := h.submit(post.Record{Title: "Hello", Body: "World", Images: paths})
		require.Equal(t, test.succeeded, outcome.Succeeded(), "%s %v", test.policy, test.fail)
		if !test.succeeded {
			require.Equal(t, post.StageAttachImages, outcome.FailedStage)
			require.NotEmpty(t, outcome.Diagnostic)
			require.Equal(t, 0, h.fake.Publish.Clicks())
		}
	}
}

func TestSubmitMissingImageFile(t *testing.T) {
	h := newHarness(t, Options{})
	paths := append(images(t, "a.png"), filepath.Join(t.TempDir(), "missing.png"))

	outcome := h.submit(post.Record{Title: "Hello", Body: "World", Images: paths})
	require.True(t, outcome.Succeeded())
	require.Len(t, h.fake.FileInput.Uploads(), 1)
}

func TestSubmitOpensImageToolbarForFileInput(t *testing.T) {
	h := newHarness(t, Options{})
	site := h.fake.Site
	h.fake.Session.Remove(site.FileInput[0])
	frame := site.EditorFrame[0].String()
	h.fake.Session.Add(site.ImageButton[0], &browsertest.Element{
		Frame: frame,
		OnClick: func(s *browsertest.Session) {
			s.Add(site.FileInput[0], h.fake.FileInput)
		},
	})

	outcome := h.submit(post.Record{Title: "Hello", Body: "World", Images: images(t, "a.png")})
	require.True(t, outcome.Succeeded(), outcome.Err)
	res, _ := outcome.Stage(post.StageAttachImages)
	require.Equal(t, post.StageSucceeded, res.Status)
}

func TestSubmitRetryStartsClean(t *testing.T) {
	h := newHarness(t, Options{})
	site := h.fake.Site
	h.fake.Session.Remove(site.Body[0])

	first := h.submit(post.Record{Title: "Hello", Body: "World"})
	require.Equal(t, post.StageEnterBody, first.FailedStage)
	var timeout *post.StageTimeoutError
	require.ErrorAs(t, first.Err, &timeout)

	h.fake.Session.Add(site.Body[0], h.fake.Body)
	h.fake.Body.SetContent("leftover draft")

	second := h.submit(post.Record{Title: "Hello", Body: "World"})
	require.True(t, second.Succeeded(), second.Err)
	require.Equal(t, "Hello", h.fake.Title.Content())
	require.Equal(t, "World", h.fake.Body.Content())
	require.Equal(t, 1, h.fake.Posts())
}

func TestSubmitBodyReplacesExistingContent(t *testing.T) {
	h := newHarness(t, Options{})
	h.fake.Session.OnNavigate = func(s *browsertest.Session, url string) {
		s.SetURL(url)
		h.fake.Body.SetContent("restored draft")
	}

	outcome := h.submit(post.Record{Title: "Hello", Body: "World"})
	require.True(t, outcome.Succeeded())
	require.Equal(t, "World", h.fake.Body.Content())
}

func TestSubmitBodySettleScalesWithLength(t *testing.T) {
	opts := Options{}.withDefaults()
	require.Equal(t, 2*time.Second, opts.BodySettle(""))
	require.Equal(t, 4*time.Second, opts.BodySettle(strings.Repeat("가", 2000)))
	require.Equal(t, 15*time.Second, opts.BodySettle(strings.Repeat("a", 100_000)))

	h := newHarness(t, Options{})
	body := strings.Repeat("a", 3000)
	outcome := h.submit(post.Record{Title: "Hello", Body: body})
	require.True(t, outcome.Succeeded())
	require.Contains(t, h.clock.Sleeps(), 5*time.Second)
}

func TestSubmitDismissesTransients(t *testing.T) {
	h := newHarness(t, Options{})
	site := h.fake.Site
	frame := site.EditorFrame[0].String()
	draft := h.fake.Session.Add(site.DraftCancel[0], &browsertest.Element{Frame: frame})
	help := h.fake.Session.Add(site.HelpClose[0], &browsertest.Element{Frame: frame})

	outcome := h.submit(post.Record{Title: "Hello", Body: "World"})
	require.True(t, outcome.Succeeded())
	require.Equal(t, 1, draft.Clicks())
	require.Equal(t, 1, help.Clicks())
	res, _ := outcome.Stage(post.StageDismissTransients)
	require.Equal(t, post.StageSucceeded, res.Status)
}

func TestSubmitUsesLaterCandidates(t *testing.T) {
	h := newHarness(t, Options{})
	site := h.fake.Site
	h.fake.Session.Remove(site.Title[0])
	h.fake.Session.Add(site.Title[2], h.fake.Title)
	h.fake.Session.Remove(site.PublishTrigger[0])
	h.fake.Session.Add(site.PublishTrigger[3], h.fake.Publish)

	outcome := h.submit(post.Record{Title: "Hello", Body: "World"})
	require.True(t, outcome.Succeeded(), outcome.Err)
}

func TestSubmitPublishNeverConfirmed(t *testing.T) {
	h := newHarness(t, Options{ConfirmTimeout: 40 * time.Second})
	h.fake.Confirm.OnClick = func(*browsertest.Session) {}

	outcome := h.submit(post.Record{Title: "Hello", Body: "World"})
	require.Equal(t, post.StageConfirmPublished, outcome.FailedStage)
	var timeout *post.StageTimeoutError
	require.ErrorAs(t, outcome.Err, &timeout)
	require.Equal(t, 40*time.Second, timeout.Timeout)
	require.Empty(t, outcome.PostURL)
	require.NotEmpty(t, outcome.Diagnostic)
}

func TestSubmitConfirmationPanelMissing(t *testing.T) {
	h := newHarness(t, Options{})
	h.fake.Publish.OnClick = func(*browsertest.Session) {}

	outcome := h.submit(post.Record{Title: "Hello", Body: "World"})
	require.Equal(t, post.StagePublish, outcome.FailedStage)
	require.Equal(t, 1, h.fake.Publish.Clicks())
}

func TestSubmitSessionLost(t *testing.T) {
	h := newHarness(t, Options{})
	h.fake.Publish.OnClick = func(s *browsertest.Session) { s.Kill() }

	outcome := h.submit(post.Record{Title: "Hello", Body: "World"})
	require.False(t, outcome.Succeeded())
	require.True(t, outcome.SessionLost)
	require.ErrorIs(t, outcome.Err, browser.ErrSessionClosed)
	require.Empty(t, outcome.Diagnostic)
	require.Len(t, h.tel.Reports("warning"), 2)
}

func TestSubmitRedirectedToLogin(t *testing.T) {
	h := newHarness(t, Options{})
	h.fake.Session.OnNavigate = func(s *browsertest.Session, url string) {
		s.SetURL(h.fake.Site.LoginURL)
	}
	h.fake.Session.Remove(h.fake.Site.EditorFrame[0])

	outcome := h.submit(post.Record{Title: "Hello", Body: "World"})
	require.Equal(t, post.StageNavigateEditor, outcome.FailedStage)
	require.True(t, outcome.SessionLost)
	require.NotEmpty(t, outcome.Diagnostic)
}

func TestSubmitCancelled(t *testing.T) {
	h := newHarness(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := h.submitter.Submit(ctx, h.fake.Session, post.Record{Title: "Hello", Body: "World"})
	require.Equal(t, post.StageNavigateEditor, outcome.FailedStage)
	require.ErrorIs(t, outcome.Err, context.Canceled)
	exit, _ := outcome.Stage(post.StageExitContext)
	require.True(t, exit.Succeeded())
}
