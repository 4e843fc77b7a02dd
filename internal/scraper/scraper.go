// Package scraper fetches the readable text of reference pages.
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"blogposter/internal/components/assert"
	"blogposter/internal/components/telemetry"
	"blogposter/pkg/htmlutil"
	"blogposter/pkg/textutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_text = "client.text"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

type Options struct {
	// MaxChars caps the text returned per page, counted in runes.
	MaxChars int
	Timeout  time.Duration
}

type Client struct {
	http     *resty.Client
	maxChars int
	tel      telemetry.API
}

func NewClient(opts Options, tel telemetry.API) *Client {
	assert.NotNil(tel)
	if opts.MaxChars <= 0 {
		opts.MaxChars = 1500
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	tel = telemetry.NewScopedAPI("scraper", tel)

	httpClient := resty.New()
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	httpClient.SetHeader("user-agent", userAgent)
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))

	// 2 requests max per second
	rateLimiter := rate.NewLimiter(2, 2)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, "blogposter/scraper/http", tel)

	return &Client{
		http:     httpClient,
		maxChars: opts.MaxChars,
		tel:      tel,
	}
}

// Fetch returns the text of the page at url with scripts and styles removed,
// one text node per line.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return "", err
	}
	if res.IsError() {
		return "", fmt.Errorf("status %s", res.Status())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	var text string
	for _, node := range root.Nodes {
		text += htmlutil.GetTextLines(node)
	}
	return textutil.Truncate(text, c.maxChars), nil
}

// Text is Fetch that reports failures instead of returning them, a page that
// cannot be read contributes nothing.
func (c *Client) Text(ctx context.Context, url string) string {
	text, err := c.Fetch(ctx, url)
	if err != nil {
		c.tel.ReportWarning(report_client_text, fmt.Errorf("fetch %s: %w", url, err))
		return ""
	}
	return text
}
