// Package browsertest provides an in-memory browser.Session whose pages are
// scripted by the test.
package browsertest

import (
	"context"
	"fmt"
	"sync"

	"blogposter/internal/browser"
)

// Element is a scripted element. OnClick and OnSetFiles run with the session
// lock released so they may call back into the Session, Echo does not.
type Element struct {
	// Frame is the key of the frame the element lives in, empty for the top
	// level document.
	Frame string

	// Echo transforms the element's content when it is read back.
	Echo func(content string) string
	// OnClick runs after every click.
	OnClick func(s *Session)
	// OnSetFiles decides whether a file upload succeeds.
	OnSetFiles func(s *Session, paths []string) error
	// ClickErr fails every click.
	ClickErr error

	session  *Session
	content  string
	selected bool
	clicks   int
	inserts  []Insert
	uploads  [][]string
}

// Insert is one call to Element.Insert.
type Insert struct {
	Text string
	Mode browser.InputMode
}

func (e *Element) Click(ctx context.Context) error {
	s := e.session
	if err := s.check(ctx); err != nil {
		return err
	}
	s.mutex.Lock()
	e.clicks++
	s.log("click %s", e.key())
	hook := e.OnClick
	clickErr := e.ClickErr
	s.mutex.Unlock()

	if clickErr != nil {
		return clickErr
	}
	if hook != nil {
		hook(s)
	}
	return nil
}

func (e *Element) SelectAll(ctx context.Context) error {
	s := e.session
	if err := s.check(ctx); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	e.selected = true
	return nil
}

func (e *Element) Insert(ctx context.Context, text string, mode browser.InputMode) error {
	s := e.session
	if err := s.check(ctx); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if e.selected {
		e.content = text
		e.selected = false
	} else {
		e.content += text
	}
	e.inserts = append(e.inserts, Insert{Text: text, Mode: mode})
	s.log("insert %s", e.key())
	return nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	s := e.session
	if err := s.check(ctx); err != nil {
		return "", err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if e.Echo != nil {
		return e.Echo(e.content), nil
	}
	return e.content, nil
}

func (e *Element) SetFiles(ctx context.Context, paths []string) error {
	s := e.session
	if err := s.check(ctx); err != nil {
		return err
	}
	s.mutex.Lock()
	e.uploads = append(e.uploads, append([]string(nil), paths...))
	s.log("upload %v", paths)
	hook := e.OnSetFiles
	s.mutex.Unlock()

	if hook != nil {
		return hook(s, paths)
	}
	return nil
}

// Content returns the element's content without Echo applied.
func (e *Element) Content() string {
	e.session.mutex.Lock()
	defer e.session.mutex.Unlock()
	return e.content
}

// SetContent replaces the element's content.
func (e *Element) SetContent(content string) {
	e.session.mutex.Lock()
	defer e.session.mutex.Unlock()
	e.content = content
}

func (e *Element) Clicks() int {
	e.session.mutex.Lock()
	defer e.session.mutex.Unlock()
	return e.clicks
}

func (e *Element) Inserts() []Insert {
	e.session.mutex.Lock()
	defer e.session.mutex.Unlock()
	return append([]Insert(nil), e.inserts...)
}

func (e *Element) Uploads() [][]string {
	e.session.mutex.Lock()
	defer e.session.mutex.Unlock()
	return append([][]string(nil), e.uploads...)
}

func (e *Element) key() string {
	for key, el := range e.session.elements {
		if el == e {
			return key
		}
	}
	return "<detached>"
}

// Session implements browser.Session over a set of elements keyed by the
// string form of the locator that finds them.
type Session struct {
	// OnNavigate replaces the default behaviour of setting the URL.
	OnNavigate func(s *Session, url string)
	// SnapshotErr fails every snapshot.
	SnapshotErr error

	mutex     sync.Mutex
	url       string
	frame     string
	elements  map[string]*Element
	counts    map[string]int
	closed    bool
	closes    int
	snapshots []string
	events    []string
}

func NewSession(url string) *Session {
	return &Session{
		url:      url,
		elements: map[string]*Element{},
		counts:   map[string]int{},
	}
}

func (s *Session) log(format string, args ...any) {
	s.events = append(s.events, fmt.Sprintf(format, args...))
}

func (s *Session) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return browser.ErrSessionClosed
	}
	return nil
}

// Add makes el findable through loc and returns it.
func (s *Session) Add(loc browser.Locator, el *Element) *Element {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if el == nil {
		el = &Element{}
	}
	el.session = s
	s.elements[loc.String()] = el
	return el
}

// Remove makes loc stop resolving.
func (s *Session) Remove(loc browser.Locator) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.elements, loc.String())
}

// Element returns the element registered for loc or nil.
func (s *Session) Element(loc browser.Locator) *Element {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.elements[loc.String()]
}

// SetCount overrides what Count returns for loc.
func (s *Session) SetCount(loc browser.Locator, n int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.counts[loc.String()] = n
}

// AddCount increments the count for loc.
func (s *Session) AddCount(loc browser.Locator, delta int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.counts[loc.String()] += delta
}

// SetURL moves the session without going through Navigate.
func (s *Session) SetURL(url string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.url = url
}

// Kill simulates the browser going away.
func (s *Session) Kill() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.closed = true
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.mutex.Lock()
	s.log("navigate %s", url)
	hook := s.OnNavigate
	if hook == nil {
		s.url = url
	}
	s.mutex.Unlock()

	if hook != nil {
		hook(s, url)
	}
	return nil
}

func (s *Session) URL(ctx context.Context) (string, error) {
	if err := s.check(ctx); err != nil {
		return "", err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.url, nil
}

func (s *Session) Find(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	el, ok := s.elements[loc.String()]
	if !ok || el.Frame != s.frame {
		return nil, browser.ErrNotFound
	}
	return el, nil
}

func (s *Session) Count(ctx context.Context, loc browser.Locator) (int, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if n, ok := s.counts[loc.String()]; ok {
		return n, nil
	}
	if el, ok := s.elements[loc.String()]; ok && el.Frame == s.frame {
		return 1, nil
	}
	return 0, nil
}

func (s *Session) EnterFrame(ctx context.Context, loc browser.Locator) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	el, ok := s.elements[loc.String()]
	if !ok || el.Frame != s.frame {
		return browser.ErrNotFound
	}
	s.frame = loc.String()
	s.log("enter frame %s", s.frame)
	return nil
}

func (s *Session) ExitFrame(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.frame = ""
	s.log("exit frame")
	return nil
}

func (s *Session) Snapshot(ctx context.Context, path string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.SnapshotErr != nil {
		return s.SnapshotErr
	}
	s.snapshots = append(s.snapshots, path)
	s.log("snapshot %s", path)
	return nil
}

func (s *Session) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.closes++
	s.closed = true
	return nil
}

// Frame returns the key of the frame lookups currently resolve in.
func (s *Session) Frame() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.frame
}

// Closes is how many times Close was called.
func (s *Session) Closes() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.closes
}

func (s *Session) Snapshots() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.snapshots...)
}

// Events is a log of everything done to the session, in order.
func (s *Session) Events() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.events...)
}

// Launcher hands out a prepared session, counting launches.
type Launcher struct {
	Session *Session
	Err     error

	mutex    sync.Mutex
	launches int
}

func (l *Launcher) Launch(ctx context.Context) (browser.Session, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.launches++
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Session, nil
}

func (l *Launcher) Launches() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.launches
}
