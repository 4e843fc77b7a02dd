package browsertest

import (
	"fmt"
	"sync"

	"blogposter/internal/platform"
)

// BlankURL is where a fresh Platform session starts.
const BlankURL = "about:blank"

// Platform is a Session scripted to behave like the blog platform: the first
// candidate of every selector resolves, logging in lands on the home page and
// publishing lands on a new post view page.
type Platform struct {
	Session *Session
	Site    platform.Site

	Identifier *Element
	Secret     *Element
	Submit     *Element

	Frame     *Element
	Title     *Element
	Body      *Element
	FileInput *Element
	Publish   *Element
	Confirm   *Element

	// Accept decides whether a login attempt succeeds, nil accepts everything.
	Accept func(identifier, secret string) bool
	// FailImages lists image paths whose upload never renders.
	FailImages map[string]bool

	mutex sync.Mutex
	posts int
}

// HomeURL is where a successful login lands.
const HomeURL = "https://www.naver.com/"

func NewPlatform(site platform.Site) *Platform {
	s := NewSession(BlankURL)
	p := &Platform{Session: s, Site: site, FailImages: map[string]bool{}}

	p.Identifier = s.Add(site.LoginIdentifier[0], nil)
	p.Secret = s.Add(site.LoginSecret[0], nil)
	p.Submit = s.Add(site.LoginSubmit[0], &Element{OnClick: p.login})

	frameKey := site.EditorFrame[0].String()
	p.Frame = s.Add(site.EditorFrame[0], nil)
	p.Title = s.Add(site.Title[0], &Element{Frame: frameKey})
	p.Body = s.Add(site.Body[0], &Element{Frame: frameKey})
	p.FileInput = s.Add(site.FileInput[0], &Element{Frame: frameKey, OnSetFiles: p.upload})
	p.Publish = s.Add(site.PublishTrigger[0], &Element{Frame: frameKey, OnClick: p.openConfirm})
	p.Confirm = s.Add(site.PublishConfirm[0], &Element{Frame: frameKey, OnClick: p.confirm})
	s.Remove(site.PublishConfirm[0])
	s.SetCount(site.RenderedImages[0], 0)

	s.OnNavigate = p.navigate
	return p
}

func (p *Platform) login(s *Session) {
	if p.Accept != nil && !p.Accept(p.Identifier.Content(), p.Secret.Content()) {
		return
	}
	s.SetURL(HomeURL)
}

func (p *Platform) navigate(s *Session, url string) {
	s.SetURL(url)
	if url != p.Site.EditorURL {
		return
	}
	// a fresh editor every time it is opened
	p.Title.SetContent("")
	p.Body.SetContent("")
	s.Remove(p.Site.PublishConfirm[0])
	s.SetCount(p.Site.RenderedImages[0], 0)
}

func (p *Platform) upload(s *Session, paths []string) error {
	for _, path := range paths {
		if p.FailImages[path] {
			continue
		}
		s.AddCount(p.Site.RenderedImages[0], 1)
	}
	return nil
}

func (p *Platform) openConfirm(s *Session) {
	s.Add(p.Site.PublishConfirm[0], p.Confirm)
}

func (p *Platform) confirm(s *Session) {
	p.mutex.Lock()
	p.posts++
	n := p.posts
	p.mutex.Unlock()

	s.Remove(p.Site.PublishConfirm[0])
	s.SetURL(fmt.Sprintf("https://blog.naver.com/PostView.naver?blogId=tester&logNo=%d", n))
}

// Posts is how many posts were published.
func (p *Platform) Posts() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.posts
}
