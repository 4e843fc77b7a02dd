// Package platform describes the blog platform posts are published to: where
// its pages live and how to find the controls on them.
package platform

import (
	"fmt"
	"regexp"
	"strings"

	"blogposter/internal/browser"

	"dario.cat/mergo"
)

// Config is the json5 form of a Site, every empty field falls back to the
// built in defaults.
type Config struct {
	LoginURL        string `json:"login_url"`
	EditorURL       string `json:"editor_url"`
	RootDomain      string `json:"root_domain"`
	LoginPathMarker string `json:"login_path_marker"`
	PostViewPattern string `json:"post_view_pattern"`

	Selectors SelectorConfig `json:"selectors"`
}

// SelectorConfig holds candidate locators in the string form accepted by
// browser.ParseLocator, most likely first.
type SelectorConfig struct {
	LoginIdentifier []string `json:"login_identifier"`
	LoginSecret     []string `json:"login_secret"`
	LoginSubmit     []string `json:"login_submit"`

	EditorFrame    []string `json:"editor_frame"`
	DraftCancel    []string `json:"draft_cancel"`
	HelpClose      []string `json:"help_close"`
	Title          []string `json:"title"`
	Body           []string `json:"body"`
	ImageButton    []string `json:"image_button"`
	FileInput      []string `json:"file_input"`
	RenderedImages []string `json:"rendered_images"`
	PublishTrigger []string `json:"publish_trigger"`
	PublishConfirm []string `json:"publish_confirm"`
}

// Site is a resolved Config.
type Site struct {
	LoginURL        string
	EditorURL       string
	RootDomain      string
	LoginPathMarker string
	PostView        *regexp.Regexp

	LoginIdentifier browser.Candidates
	LoginSecret     browser.Candidates
	LoginSubmit     browser.Candidates

	EditorFrame    browser.Candidates
	DraftCancel    browser.Candidates
	HelpClose      browser.Candidates
	Title          browser.Candidates
	Body           browser.Candidates
	ImageButton    browser.Candidates
	FileInput      browser.Candidates
	RenderedImages browser.Candidates
	PublishTrigger browser.Candidates
	PublishConfirm browser.Candidates
}

// DefaultConfig targets the Naver blog SmartEditor.
func DefaultConfig() Config {
	return Config{
		LoginURL:        "https://nid.naver.com/nidlogin.login",
		EditorURL:       "https://blog.naver.com/GoBlogWrite.naver",
		RootDomain:      "naver.com",
		LoginPathMarker: "nidlogin",
		PostViewPattern: `PostView\.naver|blog\.naver\.com/[^/?#]+/\d+`,
		Selectors: SelectorConfig{
			LoginIdentifier: []string{"#id", "input[name='id']"},
			LoginSecret:     []string{"#pw", "input[name='pw']"},
			LoginSubmit:     []string{"#log\\.login", "button[type='submit']", "text:button|^로그인$"},

			EditorFrame: []string{"#mainFrame", "iframe[name='mainFrame']"},
			DraftCancel: []string{".se-popup-button-cancel"},
			HelpClose:   []string{".se-help-panel-close-button"},
			Title: []string{
				".se-title-text",
				".se-documentTitle .se-text-paragraph",
				"xpath://div[contains(@class,'se-title-text')]",
			},
			Body: []string{
				".se-component.se-text.se-l-default",
				".se-main-container .se-text-paragraph",
				".se-main-container",
			},
			ImageButton: []string{".se-image-toolbar-button", "button[data-name='image']"},
			FileInput:   []string{"input[type='file'][accept*='image']", "input[type='file']"},
			RenderedImages: []string{
				".se-main-container .se-component.se-image img",
				"img.se-image-resource",
			},
			PublishTrigger: []string{
				"button[class*='publish']",
				".btn_publish",
				"#publish_top_btn",
				"text:button|^발행$",
			},
			PublishConfirm: []string{
				"div[class*='layer_popup'] button[class*='btn_apply']",
				".btn_apply[type='button']",
				"button[class*='confirm_btn']",
				"text:div[class*='layer_popup'] button|^발행$",
			},
		},
	}
}

// Resolve fills empty fields of c from DefaultConfig and parses it.
func (c Config) Resolve() (Site, error) {
	err := mergo.Merge(&c, DefaultConfig())
	if err != nil {
		return Site{}, err
	}

	postView, err := regexp.Compile(c.PostViewPattern)
	if err != nil {
		return Site{}, fmt.Errorf("post_view_pattern: %w", err)
	}
	site := Site{
		LoginURL:        c.LoginURL,
		EditorURL:       c.EditorURL,
		RootDomain:      c.RootDomain,
		LoginPathMarker: c.LoginPathMarker,
		PostView:        postView,
	}

	sel := c.Selectors
	fields := []struct {
		name   string
		values []string
		target *browser.Candidates
	}{
		{"login_identifier", sel.LoginIdentifier, &site.LoginIdentifier},
		{"login_secret", sel.LoginSecret, &site.LoginSecret},
		{"login_submit", sel.LoginSubmit, &site.LoginSubmit},
		{"editor_frame", sel.EditorFrame, &site.EditorFrame},
		{"draft_cancel", sel.DraftCancel, &site.DraftCancel},
		{"help_close", sel.HelpClose, &site.HelpClose},
		{"title", sel.Title, &site.Title},
		{"body", sel.Body, &site.Body},
		{"image_button", sel.ImageButton, &site.ImageButton},
		{"file_input", sel.FileInput, &site.FileInput},
		{"rendered_images", sel.RenderedImages, &site.RenderedImages},
		{"publish_trigger", sel.PublishTrigger, &site.PublishTrigger},
		{"publish_confirm", sel.PublishConfirm, &site.PublishConfirm},
	}
	for _, f := range fields {
		candidates, err := browser.ParseCandidates(f.values)
		if err != nil {
			return Site{}, fmt.Errorf("selectors.%s: %w", f.name, err)
		}
		*f.target = candidates
	}
	return site, nil
}

// Default returns the resolved DefaultConfig.
func Default() Site {
	site, err := DefaultConfig().Resolve()
	if err != nil {
		panic(err)
	}
	return site
}

// IsLoggedIn reports whether url is on the platform and off its login page.
func (s Site) IsLoggedIn(url string) bool {
	return strings.Contains(url, s.RootDomain) && !s.IsLoginPage(url)
}

// IsLoginPage reports whether url is the login page, which is where the
// platform sends a session that expired.
func (s Site) IsLoginPage(url string) bool {
	return strings.Contains(url, s.LoginPathMarker)
}

// IsPostView reports whether url is the permanent page of a published post.
func (s Site) IsPostView(url string) bool {
	return s.PostView.MatchString(url)
}
