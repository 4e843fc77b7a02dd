package platform

import (
	"testing"

	"blogposter/internal/browser"

	"github.com/stretchr/testify/require"
)

func TestResolveDefaults(t *testing.T) {
	site := Default()
	require.Equal(t, browser.ByCSS("#mainFrame"), site.EditorFrame[0])
	require.Equal(t, browser.ByText("button", "^발행$"), site.PublishTrigger[3])
	require.Equal(t, browser.ByXPath("//div[contains(@class,'se-title-text')]"), site.Title[2])
}

func TestResolveOverrides(t *testing.T) {
	cfg := Config{
		RootDomain: "example.com",
		Selectors: SelectorConfig{
			Title: []string{"#title"},
		},
	}
	site, err := cfg.Resolve()
	require.NoError(t, err)
	require.Equal(t, "example.com", site.RootDomain)
	require.Equal(t, browser.Candidates{browser.ByCSS("#title")}, site.Title)
	// untouched fields keep their defaults
	require.Equal(t, DefaultConfig().LoginURL, site.LoginURL)
	require.Len(t, site.Body, 3)
}

func TestResolveRejectsBadLocators(t *testing.T) {
	_, err := Config{Selectors: SelectorConfig{Body: []string{"text:nopattern"}}}.Resolve()
	require.ErrorContains(t, err, "selectors.body")

	_, err = Config{PostViewPattern: "("}.Resolve()
	require.ErrorContains(t, err, "post_view_pattern")
}

func TestURLPredicates(t *testing.T) {
	site := Default()

	testCases := []struct {
		url      string
		loggedIn bool
		postView bool
	}{
		{url: "https://nid.naver.com/nidlogin.login?mode=form", loggedIn: false},
		{url: "https://www.naver.com/", loggedIn: true},
		{url: "https://example.com/", loggedIn: false},
		{url: "https://blog.naver.com/PostView.naver?blogId=me&logNo=1", loggedIn: true, postView: true},
		{url: "https://blog.naver.com/me/223456789", loggedIn: true, postView: true},
		{url: "https://blog.naver.com/GoBlogWrite.naver", loggedIn: true},
	}

	for _, test := range testCases {
		require.Equal(t, test.loggedIn, site.IsLoggedIn(test.url), test.url)
		require.Equal(t, test.postView, site.IsPostView(test.url), test.url)
	}
}
