package source

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"blogposter/internal/post"

	"github.com/titanous/json5"
)

// Form is the file saved by the submission form: an account and one post to
// write from sample URLs.
type Form struct {
	Identifier string   `json:"naver_id"`
	Secret     string   `json:"naver_pw"`
	Post       FormPost `json:"post_info"`
}

type FormPost struct {
	Title      string   `json:"title"`
	ReferralID string   `json:"referral_id"`
	SampleURLs []string `json:"sample_urls"`
	Images     []string `json:"images,omitempty"`
	Body       string   `json:"body,omitempty"`
}

// ReadForm reads a form file, which may be plain JSON or json5.
func ReadForm(path string) (Form, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Form{}, err
	}
	var form Form
	err = json5.Unmarshal(data, &form)
	if err != nil {
		return Form{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if strings.TrimSpace(form.Post.Title) == "" {
		return Form{}, fmt.Errorf("%s: post_info.title is empty", path)
	}
	return form, nil
}

// WriteForm saves a form file as indented JSON.
func WriteForm(path string, form Form) error {
	data, err := json.MarshalIndent(form, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func (f Form) Credentials() post.Credentials {
	return post.Credentials{Identifier: f.Identifier, Secret: f.Secret}
}

// Records returns the form's post as a single record, empty sample URLs are
// dropped.
func (f Form) Records() []post.Record {
	var urls []string
	for _, u := range f.Post.SampleURLs {
		if strings.TrimSpace(u) != "" {
			urls = append(urls, strings.TrimSpace(u))
		}
	}
	return []post.Record{{
		Title:         strings.TrimSpace(f.Post.Title),
		Body:          f.Post.Body,
		ReferenceURLs: urls,
		Images:        f.Post.Images,
		ReferralID:    strings.TrimSpace(f.Post.ReferralID),
	}}
}
