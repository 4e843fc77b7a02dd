package rodbrowser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"blogposter/internal/browser"
	"blogposter/internal/components/chrono"
	"blogposter/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

const testPage = `<!doctype html>
<html><body>
<div id="title" contenteditable="true">old title</div>
<button class="publish">발행</button>
<input type="file" id="upload">
<iframe id="inner" srcdoc="<p class='inside'>hello frame</p>"></iframe>
</body></html>`

// Launches a real browser, so it only runs when asked to.
func TestSessionAgainstLocalPage(t *testing.T) {
	if os.Getenv("BLOGPOSTER_BROWSER_TEST") == "" {
		t.Skip("set BLOGPOSTER_BROWSER_TEST=1 to run against a real browser")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/html; charset=utf-8")
		fmt.Fprint(w, testPage)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	clock, err := chrono.NewStandardImpl("")
	require.NoError(t, err)
	launcher := NewLauncher(Options{Headless: true, NoSandbox: true}, &telemetry.RecordingAPI{}, clock)

	session, err := launcher.Launch(ctx)
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Navigate(ctx, srv.URL))
	url, err := session.URL(ctx)
	require.NoError(t, err)
	require.Contains(t, url, srv.URL)

	_, err = session.Find(ctx, browser.ByCSS("#missing"))
	require.ErrorIs(t, err, browser.ErrNotFound)

	title, err := session.Find(ctx, browser.ByCSS("#title"))
	require.NoError(t, err)
	require.NoError(t, title.Click(ctx))
	require.NoError(t, title.SelectAll(ctx))
	require.NoError(t, title.Insert(ctx, "새 제목", browser.InputPaste))
	text, err := title.Text(ctx)
	require.NoError(t, err)
	require.Equal(t, "새 제목", text)
	require.NoError(t, title.Insert(ctx, "끝", browser.InputType))
	text, err = title.Text(ctx)
	require.NoError(t, err)
	require.Equal(t, "새 제목끝", text)

	_, err = session.Find(ctx, browser.ByText("button", "^발행$"))
	require.NoError(t, err)

	n, err := session.Count(ctx, browser.ByCSS("button, input"))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.NoError(t, session.EnterFrame(ctx, browser.ByCSS("#inner")))
	inside, err := session.Find(ctx, browser.ByCSS(".inside"))
	require.NoError(t, err)
	text, err = inside.Text(ctx)
	require.NoError(t, err)
	require.Equal(t, "hello frame", text)
	require.NoError(t, session.ExitFrame(ctx))

	shot := filepath.Join(t.TempDir(), "shots", "page.png")
	require.NoError(t, session.Snapshot(ctx, shot))
	_, err = os.Stat(shot)
	require.NoError(t, err)

	require.NoError(t, session.Close())
	_, err = session.URL(ctx)
	require.ErrorIs(t, err, browser.ErrSessionClosed)
}
