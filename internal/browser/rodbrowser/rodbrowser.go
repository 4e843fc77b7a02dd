// Package rodbrowser implements browser.Session on a Chromium instance driven
// through the DevTools protocol by go-rod.
package rodbrowser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"blogposter/internal/browser"
	"blogposter/internal/components/chrono"
	"blogposter/internal/components/telemetry"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

const (
	report_launch = "rodbrowser.launch"
	report_close  = "rodbrowser.close"
)

// DefaultUserAgent is a current desktop Chrome on Windows.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// Options configures the launched browser.
type Options struct {
	Headless bool
	// ControlURL connects to an already running browser instead of launching
	// one.
	ControlURL string
	// BinPath overrides the browser executable, empty lets rod find or
	// download one.
	BinPath string
	// UserDataDir keeps cookies between runs when set.
	UserDataDir string
	UserAgent   string
	NoSandbox   bool
	Width       int
	Height      int
	// TypeDelay is the pause between characters in browser.InputType mode.
	TypeDelay time.Duration
}

// Launcher implements browser.Launcher.
type Launcher struct {
	opts  Options
	tel   telemetry.API
	clock chrono.API
}

func NewLauncher(opts Options, tel telemetry.API, clock chrono.API) Launcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Width <= 0 {
		opts.Width = 1366
	}
	if opts.Height <= 0 {
		opts.Height = 900
	}
	if opts.TypeDelay <= 0 {
		opts.TypeDelay = 80 * time.Millisecond
	}
	return Launcher{
		opts:  opts,
		tel:   telemetry.NewScopedAPI("rodbrowser", tel),
		clock: clock,
	}
}

func (l Launcher) Launch(ctx context.Context) (browser.Session, error) {
	controlURL := l.opts.ControlURL
	var launched *launcher.Launcher
	if controlURL == "" {
		launched = launcher.New().
			Context(ctx).
			Headless(l.opts.Headless).
			Set("disable-blink-features", "AutomationControlled").
			Set("lang", "ko-KR")
		if l.opts.BinPath != "" {
			launched = launched.Bin(l.opts.BinPath)
		}
		if l.opts.UserDataDir != "" {
			launched = launched.UserDataDir(l.opts.UserDataDir)
		}
		if l.opts.NoSandbox {
			launched = launched.NoSandbox(true)
		}
		u, err := launched.Launch()
		if err != nil {
			l.tel.ReportBroken(report_launch, err)
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL)
	err := b.Connect()
	if err != nil {
		if launched != nil {
			launched.Kill()
		}
		l.tel.ReportBroken(report_launch, err)
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	page, err := stealth.Page(b)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      l.opts.UserAgent,
		AcceptLanguage: "ko-KR,ko;q=0.9,en-US;q=0.8",
	})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("set user agent: %w", err)
	}
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  l.opts.Width,
		Height: l.opts.Height,
	})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	l.tel.ReportDebug("browser ready", controlURL)
	return &Session{
		browser:  b,
		launched: launched,
		root:     page,
		current:  page,
		opts:     l.opts,
		tel:      l.tel,
		clock:    l.clock,
	}, nil
}

// Session implements browser.Session.
type Session struct {
	browser  *rod.Browser
	launched *launcher.Launcher
	root     *rod.Page
	current  *rod.Page
	opts     Options
	tel      telemetry.API
	clock    chrono.API

	mutex     sync.Mutex
	closed    bool
	closeOnce sync.Once
}

func (s *Session) page(ctx context.Context) (*rod.Page, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return nil, browser.ErrSessionClosed
	}
	return s.current.Context(ctx), nil
}

// classify turns a driver error into browser.ErrSessionClosed when the page
// is no longer reachable.
func (s *Session) classify(ctx context.Context, err error) error {
	if err == nil || ctx.Err() != nil {
		return err
	}
	var notFound *rod.ElementNotFoundError
	if errors.As(err, &notFound) {
		return browser.ErrNotFound
	}
	alive := s.root.Timeout(5 * time.Second)
	defer alive.CancelTimeout()
	_, infoErr := alive.Info()
	if infoErr != nil {
		s.mutex.Lock()
		s.closed = true
		s.mutex.Unlock()
		return fmt.Errorf("%w: %v", browser.ErrSessionClosed, err)
	}
	return err
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mutex.Lock()
	s.current = s.root
	s.mutex.Unlock()

	page, err := s.page(ctx)
	if err != nil {
		return err
	}
	err = page.Navigate(url)
	if err != nil {
		return s.classify(ctx, err)
	}
	return s.classify(ctx, page.WaitLoad())
}

func (s *Session) URL(ctx context.Context) (string, error) {
	s.mutex.Lock()
	closed := s.closed
	s.mutex.Unlock()
	if closed {
		return "", browser.ErrSessionClosed
	}
	info, err := s.root.Context(ctx).Info()
	if err != nil {
		return "", s.classify(ctx, err)
	}
	return info.URL, nil
}

func (s *Session) Find(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	page, err := s.page(ctx)
	if err != nil {
		return nil, err
	}

	var has bool
	var el *rod.Element
	switch loc.Kind {
	case browser.XPath:
		has, el, err = page.HasX(loc.Query)
	case browser.Text:
		has, el, err = page.HasR(loc.Query, loc.Pattern)
	default:
		has, el, err = page.Has(loc.Query)
	}
	if err != nil {
		return nil, s.classify(ctx, err)
	}
	if !has {
		return nil, browser.ErrNotFound
	}
	return &Element{el: el, session: s}, nil
}

func (s *Session) Count(ctx context.Context, loc browser.Locator) (int, error) {
	page, err := s.page(ctx)
	if err != nil {
		return 0, err
	}

	var els rod.Elements
	switch loc.Kind {
	case browser.XPath:
		els, err = page.ElementsX(loc.Query)
	default:
		els, err = page.Elements(loc.Query)
	}
	if err != nil {
		return 0, s.classify(ctx, err)
	}
	if loc.Kind != browser.Text {
		return len(els), nil
	}

	pattern, err := regexp.Compile(loc.Pattern)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			continue
		}
		if pattern.MatchString(text) {
			n++
		}
	}
	return n, nil
}

func (s *Session) EnterFrame(ctx context.Context, loc browser.Locator) error {
	found, err := s.Find(ctx, loc)
	if err != nil {
		return err
	}
	frame, err := found.(*Element).el.Frame()
	if err != nil {
		return s.classify(ctx, err)
	}
	err = frame.Context(ctx).WaitLoad()
	if err != nil {
		return s.classify(ctx, err)
	}
	s.mutex.Lock()
	s.current = frame
	s.mutex.Unlock()
	return nil
}

func (s *Session) ExitFrame(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return browser.ErrSessionClosed
	}
	s.current = s.root
	return nil
}

func (s *Session) Snapshot(ctx context.Context, path string) error {
	s.mutex.Lock()
	closed := s.closed
	s.mutex.Unlock()
	if closed {
		return browser.ErrSessionClosed
	}

	data, err := s.root.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return s.classify(ctx, err)
	}
	err = os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mutex.Lock()
		s.closed = true
		s.mutex.Unlock()

		err = s.browser.Close()
		if s.launched != nil {
			s.launched.Kill()
			s.launched.Cleanup()
		}
		if err != nil {
			s.tel.ReportWarning(report_close, err)
		}
	})
	return err
}

// Element implements browser.Element.
type Element struct {
	el      *rod.Element
	session *Session
}

func (e *Element) Click(ctx context.Context) error {
	err := e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
	return e.session.classify(ctx, err)
}

func (e *Element) SelectAll(ctx context.Context) error {
	el := e.el.Context(ctx)
	err := el.Focus()
	if err != nil {
		return e.session.classify(ctx, err)
	}
	return e.session.classify(ctx, el.SelectAllText())
}

func (e *Element) Insert(ctx context.Context, text string, mode browser.InputMode) error {
	el := e.el.Context(ctx)
	err := el.Focus()
	if err != nil {
		return e.session.classify(ctx, err)
	}
	page := el.Page()

	if mode == browser.InputPaste {
		return e.session.classify(ctx, page.InsertText(text))
	}
	for _, r := range text {
		err = page.InsertText(string(r))
		if err != nil {
			return e.session.classify(ctx, err)
		}
		err = e.session.clock.Sleep(ctx, e.session.opts.TypeDelay)
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	text, err := e.el.Context(ctx).Text()
	if err != nil {
		return "", e.session.classify(ctx, err)
	}
	return text, nil
}

func (e *Element) SetFiles(ctx context.Context, paths []string) error {
	abs := make([]string, len(paths))
	for i, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		abs[i] = a
	}
	return e.session.classify(ctx, e.el.Context(ctx).SetFiles(abs))
}
