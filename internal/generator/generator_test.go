package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"blogposter/internal/post"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	testCases := []struct {
		text     string
		err      error
		expected string
		usable   bool
	}{
		{text: "  body  ", expected: "body", usable: true},
		{text: "   ", usable: false},
		{text: "❌ 텍스트 추출 실패", usable: false},
		{text: "fine", err: errors.New("timeout"), usable: false},
	}

	for _, test := range testCases {
		text, err := Validate("title", test.text, test.err)
		if test.usable {
			require.NoError(t, err)
			require.Equal(t, test.expected, text)
			continue
		}
		var genErr *post.GenerationError
		require.ErrorAs(t, err, &genErr, test.text)
		require.Equal(t, "title", genErr.Title)
		if test.err != nil {
			require.ErrorIs(t, err, test.err)
		}
	}
}

type fakeCrawler map[string]string

func (c fakeCrawler) Text(_ context.Context, url string) string {
	return c[url]
}

func TestPrompterArticle(t *testing.T) {
	crawler := fakeCrawler{
		"https://a.example": "first reference",
		"https://b.example": "",
	}
	p := NewPrompter(ModeArticle, crawler)

	prompt, err := p.Prompt(context.Background(), post.Record{
		Title:         "앱테크 추천",
		ReferralID:    "abc",
		ReferenceURLs: []string{"https://a.example", "https://b.example", ""},
	})
	require.NoError(t, err)
	require.Contains(t, prompt, `"앱테크 추천 (추천인: abc)"`)
	require.Contains(t, prompt, "--- 참고 자료 1 ---\nfirst reference")
	require.NotContains(t, prompt, "참고 자료 2")
	require.Contains(t, prompt, `- 추천인 ID: "abc"`)
}

func TestPrompterArticleWithoutReferral(t *testing.T) {
	prompt := ArticlePrompt("주제", "없음", nil)
	require.Contains(t, prompt, `"주제"`)
	require.Contains(t, prompt, `- 추천인 ID: "없음"`)
	require.Contains(t, prompt, "(없음)")
}

func TestPrompterPromo(t *testing.T) {
	p := NewPrompter(ModePromo, nil)

	prompt, err := p.Prompt(context.Background(), post.Record{Title: "패널파워", ReferralID: "partybucket"})
	require.NoError(t, err)
	require.Contains(t, prompt, `"패널파워"`)
	require.Contains(t, prompt, `- 추천인 ID: "partybucket"`)

	prompt, err = p.Prompt(context.Background(), post.Record{Title: "패널파워"})
	require.NoError(t, err)
	require.False(t, strings.Contains(prompt, "- 추천인 ID"))

	_, err = p.Prompt(context.Background(), post.Record{Title: " "})
	require.Error(t, err)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("promo")
	require.NoError(t, err)
	require.Equal(t, ModePromo, mode)
	mode, err = ParseMode("")
	require.NoError(t, err)
	require.Equal(t, ModeArticle, mode)
	_, err = ParseMode("poem")
	require.Error(t, err)
}
