package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"blogposter/internal/components/assert"
	"blogposter/internal/components/telemetry"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_gemini_generate = "gemini.generate"
)

// ErrNoContent is returned when the API answered without any text, retrying
// the same prompt does not help.
var ErrNoContent = errors.New("gemini: no usable content")

// DefaultBaseURL is the Generative Language API.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

type GeminiOptions struct {
	BaseURL string
	APIKey  string
	Model   string

	MaxOutputTokens int
	Temperature     float64
	// TrimQuotes removes double quotes from the output, promotions come back
	// wrapped in them.
	TrimQuotes bool

	// RequestsPerSecond limits calls to the API.
	RequestsPerSecond float64
	// MaxRetries below zero disables retries, zero means the default.
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	Timeout       time.Duration
}

// ArticleDefaults and PromoDefaults are the generation settings of each Mode.
func ArticleDefaults() GeminiOptions {
	return GeminiOptions{MaxOutputTokens: 1000, Temperature: 0.7}
}

func PromoDefaults() GeminiOptions {
	return GeminiOptions{MaxOutputTokens: 150, Temperature: 0.6, TrimQuotes: true}
}

func (o GeminiOptions) withDefaults() GeminiOptions {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.Model == "" {
		o.Model = "gemini-1.5-flash"
	}
	if o.MaxOutputTokens <= 0 {
		o.MaxOutputTokens = ArticleDefaults().MaxOutputTokens
	}
	if o.Temperature <= 0 {
		o.Temperature = ArticleDefaults().Temperature
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 0.5
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = 2
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 2 * time.Second
	}
	if o.MaxRetryDelay < o.RetryDelay {
		o.MaxRetryDelay = 30 * time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	return o
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// StatusError is a non 2xx answer from the API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini: status %d: %s", e.Code, e.Message)
}

func (e *StatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Gemini is a TextGenerator backed by the Gemini generateContent endpoint.
type Gemini struct {
	http     *resty.Client
	opts     GeminiOptions
	executor failsafe.Executor[string]
	tel      telemetry.API
}

func NewGemini(opts GeminiOptions, tel telemetry.API) (*Gemini, error) {
	assert.NotNil(tel)
	opts = opts.withDefaults()
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}

	tel = telemetry.NewScopedAPI("gemini", tel)

	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(opts.BaseURL, "/"))
	client.SetHeader("x-goog-api-key", opts.APIKey)
	client.SetHeader("content-type", "application/json")
	client.SetTimeout(opts.Timeout)

	limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, "blogposter/gemini/http", tel)

	retry := retrypolicy.NewBuilder[string]().
		WithBackoff(opts.RetryDelay, opts.MaxRetryDelay).
		WithMaxRetries(opts.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(_ string, err error) bool {
			if err == nil || errors.Is(err, ErrNoContent) {
				return false
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return false
			}
			var status *StatusError
			if errors.As(err, &status) {
				return status.retryable()
			}
			return true
		}).
		ReturnLastFailure().
		Build()

	return &Gemini{
		http:     client,
		opts:     opts,
		executor: failsafe.With[string](retry),
		tel:      tel,
	}, nil
}

// Generate calls the API, retrying transport errors, rate limiting and server
// errors with backoff.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := g.executor.WithContext(ctx).Get(func() (string, error) {
		return g.generateOnce(ctx, prompt)
	})
	if err != nil {
		g.tel.ReportWarning(report_gemini_generate, err)
		return "", err
	}
	if g.opts.TrimQuotes {
		text = strings.ReplaceAll(text, `"`, "")
	}
	return strings.TrimSpace(text), nil
}

func (g *Gemini) generateOnce(ctx context.Context, prompt string) (string, error) {
	var out generateResponse
	var failure apiError
	res, err := g.http.R().
		SetContext(ctx).
		SetPathParam("model", g.opts.Model).
		SetBody(generateRequest{
			Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
			GenerationConfig: generationConfig{
				MaxOutputTokens: g.opts.MaxOutputTokens,
				Temperature:     g.opts.Temperature,
			},
		}).
		SetResult(&out).
		SetError(&failure).
		Post("/v1beta/models/{model}:generateContent")
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if res.IsError() {
		msg := failure.Error.Message
		if msg == "" {
			msg = res.Status()
		}
		return "", &StatusError{Code: res.StatusCode(), Message: msg}
	}

	if out.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked: %s", ErrNoContent, out.PromptFeedback.BlockReason)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrNoContent)
	}
	var text strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return text.String(), nil
}
