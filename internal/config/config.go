// Package config reads config.json5 and turns it into the options of every
// component.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"blogposter/internal/auth"
	"blogposter/internal/batch"
	"blogposter/internal/browser"
	"blogposter/internal/browser/rodbrowser"
	"blogposter/internal/generator"
	"blogposter/internal/notify"
	"blogposter/internal/platform"
	"blogposter/internal/post"
	"blogposter/internal/scraper"
	"blogposter/internal/store"
	"blogposter/internal/workflow"
	"blogposter/pkg/configutil"
)

const (
	EnvIdentifier = "BLOGPOSTER_IDENTIFIER"
	EnvSecret     = "BLOGPOSTER_SECRET"
	EnvGeminiKey  = "GEMINI_API_KEY"
)

type CredentialsConfig struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

type BrowserConfig struct {
	Headless    bool   `json:"headless"`
	ControlURL  string `json:"control_url"`
	BinPath     string `json:"bin_path"`
	UserDataDir string `json:"user_data_dir"`
	UserAgent   string `json:"user_agent"`
	NoSandbox   bool   `json:"no_sandbox"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	TypeDelay   string `json:"type_delay"`
}

type AuthConfig struct {
	ElementTimeout string `json:"element_timeout"`
	LoginTimeout   string `json:"login_timeout"`
	SettleDelay    string `json:"settle_delay"`
}

type WorkflowConfig struct {
	// InputMode is "paste" or "type".
	InputMode string `json:"input_mode"`
	// ImagePolicy is "at-least-one", "best-effort" or "all".
	ImagePolicy string `json:"image_policy"`
	BoldTitle   bool   `json:"bold_title"`

	ElementTimeout     string `json:"element_timeout"`
	TransientTimeout   string `json:"transient_timeout"`
	VerifyTimeout      string `json:"verify_timeout"`
	TitleAttempts      int    `json:"title_attempts"`
	ImageTimeout       string `json:"image_timeout"`
	ConfirmTimeout     string `json:"confirm_timeout"`
	BodySettleBase     string `json:"body_settle_base"`
	BodySettlePerKRune string `json:"body_settle_per_k_rune"`
	BodySettleMax      string `json:"body_settle_max"`
	SnapshotDir        string `json:"snapshot_dir"`
}

type BatchConfig struct {
	PostInterval   string `json:"post_interval"`
	SubmitAttempts int    `json:"submit_attempts"`
}

type GeminiConfig struct {
	APIKey string `json:"api_key"`
	// Mode is "article" or "promo".
	Mode              string  `json:"mode"`
	BaseURL           string  `json:"base_url"`
	Model             string  `json:"model"`
	MaxOutputTokens   int     `json:"max_output_tokens"`
	Temperature       float64 `json:"temperature"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	MaxRetries        int     `json:"max_retries"`
	Timeout           string  `json:"timeout"`
}

type ScraperConfig struct {
	MaxChars int    `json:"max_chars"`
	Timeout  string `json:"timeout"`
}

type Config struct {
	Credentials CredentialsConfig `json:"credentials"`

	// Timezone is an IANA name, empty is Asia/Seoul.
	Timezone string            `json:"timezone"`
	Platform platform.Config   `json:"platform"`
	Browser  BrowserConfig     `json:"browser"`
	Auth     AuthConfig        `json:"auth"`
	Workflow WorkflowConfig    `json:"workflow"`
	Batch    BatchConfig       `json:"batch"`
	Gemini   GeminiConfig      `json:"gemini"`
	Scraper  ScraperConfig     `json:"scraper"`
	Database store.Config      `json:"database"`
	Smtp     notify.SmtpConfig `json:"smtp"`
	ReportTo []string          `json:"report_to"`
}

// Load reads the config at path (merged with its .local variant) and applies
// the environment overrides. A missing file is not an error, everything then
// comes from the defaults and the environment.
func Load(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	configutil.OverrideFromEnv(&c.Credentials.Identifier, EnvIdentifier)
	configutil.OverrideFromEnv(&c.Credentials.Secret, EnvSecret)
	configutil.OverrideFromEnv(&c.Gemini.APIKey, EnvGeminiKey)
}

func (c Config) PostCredentials() post.Credentials {
	return post.Credentials{
		Identifier: strings.TrimSpace(c.Credentials.Identifier),
		Secret:     c.Credentials.Secret,
	}
}

// duration parses an optional duration field, empty is zero.
func duration(field, value string) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

// durations parses every field into its target and returns the first error.
type durations []struct {
	field  string
	value  string
	target *time.Duration
}

func (ds durations) parse() error {
	for _, d := range ds {
		parsed, err := duration(d.field, d.value)
		if err != nil {
			return err
		}
		*d.target = parsed
	}
	return nil
}

func (c Config) Site() (platform.Site, error) {
	return c.Platform.Resolve()
}

func (c Config) InputMode() (browser.InputMode, error) {
	return browser.ParseInputMode(c.Workflow.InputMode)
}

func (c Config) BrowserOptions() (rodbrowser.Options, error) {
	opts := rodbrowser.Options{
		Headless:    c.Browser.Headless,
		ControlURL:  c.Browser.ControlURL,
		BinPath:     c.Browser.BinPath,
		UserDataDir: c.Browser.UserDataDir,
		UserAgent:   c.Browser.UserAgent,
		NoSandbox:   c.Browser.NoSandbox,
		Width:       c.Browser.Width,
		Height:      c.Browser.Height,
	}
	err := durations{
		{"browser.type_delay", c.Browser.TypeDelay, &opts.TypeDelay},
	}.parse()
	return opts, err
}

func (c Config) AuthOptions() (auth.Options, error) {
	mode, err := c.InputMode()
	if err != nil {
		return auth.Options{}, err
	}
	opts := auth.Options{InputMode: mode}
	err = durations{
		{"auth.element_timeout", c.Auth.ElementTimeout, &opts.ElementTimeout},
		{"auth.login_timeout", c.Auth.LoginTimeout, &opts.LoginTimeout},
		{"auth.settle_delay", c.Auth.SettleDelay, &opts.SettleDelay},
	}.parse()
	return opts, err
}

func (c Config) WorkflowOptions() (workflow.Options, error) {
	mode, err := c.InputMode()
	if err != nil {
		return workflow.Options{}, err
	}
	policy, err := workflow.ParseImagePolicy(c.Workflow.ImagePolicy)
	if err != nil {
		return workflow.Options{}, err
	}
	opts := workflow.Options{
		InputMode:     mode,
		ImagePolicy:   policy,
		TitleAttempts: c.Workflow.TitleAttempts,
		SnapshotDir:   c.Workflow.SnapshotDir,
	}
	err = durations{
		{"workflow.element_timeout", c.Workflow.ElementTimeout, &opts.ElementTimeout},
		{"workflow.transient_timeout", c.Workflow.TransientTimeout, &opts.TransientTimeout},
		{"workflow.verify_timeout", c.Workflow.VerifyTimeout, &opts.VerifyTimeout},
		{"workflow.image_timeout", c.Workflow.ImageTimeout, &opts.ImageTimeout},
		{"workflow.confirm_timeout", c.Workflow.ConfirmTimeout, &opts.ConfirmTimeout},
		{"workflow.body_settle_base", c.Workflow.BodySettleBase, &opts.BodySettleBase},
		{"workflow.body_settle_per_k_rune", c.Workflow.BodySettlePerKRune, &opts.BodySettlePerKRune},
		{"workflow.body_settle_max", c.Workflow.BodySettleMax, &opts.BodySettleMax},
	}.parse()
	return opts, err
}

func (c Config) BatchOptions() (batch.Options, error) {
	opts := batch.Options{
		SubmitAttempts: c.Batch.SubmitAttempts,
		DecorateTitle:  c.Workflow.BoldTitle,
	}
	err := durations{
		{"batch.post_interval", c.Batch.PostInterval, &opts.PostInterval},
	}.parse()
	return opts, err
}

func (c Config) GenerationMode() (generator.Mode, error) {
	return generator.ParseMode(c.Gemini.Mode)
}

// GeminiOptions starts from the defaults of the generation mode and applies
// every field that is set.
func (c Config) GeminiOptions() (generator.GeminiOptions, error) {
	mode, err := c.GenerationMode()
	if err != nil {
		return generator.GeminiOptions{}, err
	}
	opts := generator.ArticleDefaults()
	if mode == generator.ModePromo {
		opts = generator.PromoDefaults()
	}

	opts.APIKey = c.Gemini.APIKey
	opts.BaseURL = c.Gemini.BaseURL
	opts.Model = c.Gemini.Model
	opts.RequestsPerSecond = c.Gemini.RequestsPerSecond
	opts.MaxRetries = c.Gemini.MaxRetries
	if c.Gemini.MaxOutputTokens > 0 {
		opts.MaxOutputTokens = c.Gemini.MaxOutputTokens
	}
	if c.Gemini.Temperature > 0 {
		opts.Temperature = c.Gemini.Temperature
	}
	err = durations{
		{"gemini.timeout", c.Gemini.Timeout, &opts.Timeout},
	}.parse()
	return opts, err
}

func (c Config) ScraperOptions() (scraper.Options, error) {
	opts := scraper.Options{MaxChars: c.Scraper.MaxChars}
	err := durations{
		{"scraper.timeout", c.Scraper.Timeout, &opts.Timeout},
	}.parse()
	return opts, err
}
