// Package auth logs a browser session into the blog platform.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"blogposter/internal/browser"
	"blogposter/internal/components/assert"
	"blogposter/internal/components/chrono"
	"blogposter/internal/components/telemetry"
	"blogposter/internal/platform"
	"blogposter/internal/post"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("blogposter/auth")

const (
	report_authenticate = "authenticator.authenticate"
	report_login        = "authenticator.login"
)

// Reasons carried by post.AuthError besides post.AuthReasonRejected.
const (
	ReasonMissingCredentials = "missing-credentials"
	ReasonFormUnavailable    = "login-form-unavailable"
)

type Options struct {
	InputMode browser.InputMode
	// ElementTimeout bounds the wait for each login form control.
	ElementTimeout time.Duration
	// LoginTimeout bounds the wait for the platform to leave the login page.
	LoginTimeout time.Duration
	// SettleDelay is waited once before the final check when the first
	// check did not see a logged in page.
	SettleDelay time.Duration
	// FieldPause is waited between filling the two credential fields.
	FieldPause time.Duration
}

func (o Options) withDefaults() Options {
	if o.ElementTimeout <= 0 {
		o.ElementTimeout = 10 * time.Second
	}
	if o.LoginTimeout <= 0 {
		o.LoginTimeout = 10 * time.Second
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = 2 * time.Second
	}
	if o.FieldPause <= 0 {
		o.FieldPause = 500 * time.Millisecond
	}
	return o
}

// Authenticator establishes a logged in session. It does not retry: a failed
// login is reported as a *post.AuthError.
type Authenticator struct {
	site   platform.Site
	opts   Options
	clock  chrono.API
	waiter browser.Waiter
	tel    telemetry.API
}

func NewAuthenticator(site platform.Site, opts Options, clock chrono.API, tel telemetry.API) Authenticator {
	assert.NotNil(clock)
	assert.NotNil(tel)
	assert.NotEmptyStr(site.LoginURL)

	return Authenticator{
		site:   site,
		opts:   opts.withDefaults(),
		clock:  clock,
		waiter: browser.Waiter{Clock: clock},
		tel:    telemetry.NewScopedAPI("auth", tel),
	}
}

// Authenticate launches a session and logs it in. The caller owns the
// returned session and must close it, on failure the session is closed here.
func (a Authenticator) Authenticate(ctx context.Context, launcher browser.Launcher, creds post.Credentials) (browser.Session, error) {
	ctx, span := tracer.Start(ctx, "Authenticate")
	defer span.End()

	if strings.TrimSpace(creds.Identifier) == "" || creds.Secret == "" {
		span.SetStatus(codes.Error, ReasonMissingCredentials)
		return nil, &post.AuthError{Reason: ReasonMissingCredentials}
	}

	session, err := launcher.Launch(ctx)
	if err != nil {
		a.tel.ReportBroken(report_authenticate, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "launch failed")
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	err = a.Login(ctx, session, creds)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		closeErr := session.Close()
		if closeErr != nil {
			a.tel.ReportWarning(report_authenticate, fmt.Errorf("close after failed login: %w", closeErr))
		}
		return nil, err
	}
	return session, nil
}

// Login performs the login form exchange on an existing session.
func (a Authenticator) Login(ctx context.Context, session browser.Session, creds post.Credentials) error {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	err := session.Navigate(ctx, a.site.LoginURL)
	if err != nil {
		a.tel.ReportBroken(report_login, fmt.Errorf("navigate: %w", err))
		return &post.AuthError{Reason: ReasonFormUnavailable, Err: err}
	}

	err = a.fill(ctx, session, a.site.LoginIdentifier, creds.Identifier)
	if err != nil {
		a.tel.ReportBroken(report_login, fmt.Errorf("identifier field: %w", err))
		return &post.AuthError{Reason: ReasonFormUnavailable, Err: err}
	}
	err = a.clock.Sleep(ctx, a.opts.FieldPause)
	if err != nil {
		return err
	}
	err = a.fill(ctx, session, a.site.LoginSecret, creds.Secret)
	if err != nil {
		a.tel.ReportBroken(report_login, fmt.Errorf("secret field: %w", err))
		return &post.AuthError{Reason: ReasonFormUnavailable, Err: err}
	}

	submit, by, err := a.waiter.FirstMatch(ctx, session, a.site.LoginSubmit, a.opts.ElementTimeout)
	if err != nil {
		a.tel.ReportBroken(report_login, fmt.Errorf("submit control: %w", err))
		return &post.AuthError{Reason: ReasonFormUnavailable, Err: err}
	}
	span.SetAttributes(attribute.String("submit_locator", by.String()))
	err = submit.Click(ctx)
	if err != nil {
		a.tel.ReportBroken(report_login, fmt.Errorf("click submit: %w", err))
		return &post.AuthError{Reason: ReasonFormUnavailable, Err: err}
	}

	loggedIn := func(ctx context.Context) (bool, error) {
		url, err := session.URL(ctx)
		if err != nil {
			return false, err
		}
		return a.site.IsLoggedIn(url), nil
	}

	ok, err := a.waiter.Until(ctx, a.opts.LoginTimeout, loggedIn)
	if err != nil {
		return &post.AuthError{Reason: post.AuthReasonRejected, Err: err}
	}
	if !ok {
		a.tel.ReportDebug("login not confirmed yet, settling", a.opts.SettleDelay)
		err = a.clock.Sleep(ctx, a.opts.SettleDelay)
		if err != nil {
			return err
		}
		ok, err = loggedIn(ctx)
		if err != nil {
			return &post.AuthError{Reason: post.AuthReasonRejected, Err: err}
		}
	}
	if !ok {
		url, _ := session.URL(ctx)
		a.tel.ReportWarning(report_login, "still on login page", url)
		return &post.AuthError{Reason: post.AuthReasonRejected, URL: url}
	}

	a.tel.ReportDebug("logged in", creds.Identifier)
	return nil
}

func (a Authenticator) fill(ctx context.Context, session browser.Session, candidates browser.Candidates, value string) error {
	field, _, err := a.waiter.FirstMatch(ctx, session, candidates, a.opts.ElementTimeout)
	if err != nil {
		return err
	}
	err = field.Click(ctx)
	if err != nil {
		return err
	}
	err = field.SelectAll(ctx)
	if err != nil {
		return err
	}
	return field.Insert(ctx, value, a.opts.InputMode)
}
