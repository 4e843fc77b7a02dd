package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"blogposter/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

const page = `<!doctype html>
<html>
<head><title>ignored title</title><style>body { color: red; }</style></head>
<body>
  <script>var tracking = true;</script>
  <h1>  앱테크   추천 </h1>
  <p>첫 번째 문단</p>
  <noscript>enable js</noscript>
  <div><span>두 번째</span> 문단</div>
</body>
</html>`

func TestFetchStripsScriptsAndStyles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	client := NewClient(Options{}, &telemetry.RecordingAPI{})
	text, err := client.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "앱테크 추천\n첫 번째 문단\n두 번째\n문단", text)
}

func TestFetchTruncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body><p>%s</p></body></html>", strings.Repeat("가", 3000))
	}))
	defer srv.Close()

	client := NewClient(Options{MaxChars: 100}, &telemetry.RecordingAPI{})
	text, err := client.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, 100, len([]rune(text)))
}

func TestTextReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tel := &telemetry.RecordingAPI{}
	client := NewClient(Options{}, tel)
	require.NotPanics(t, func() {
		require.Empty(t, client.Text(context.Background(), srv.URL))
	})

	warnings := tel.Reports("warning")
	require.NotEmpty(t, warnings)
	require.Equal(t, "scraper: client.text", warnings[len(warnings)-1].ID)
}
