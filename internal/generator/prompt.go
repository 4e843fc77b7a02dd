package generator

import (
	"context"
	"fmt"
	"strings"

	"blogposter/internal/post"
)

// ArticlePrompt asks for a long form post on title, written from the crawled
// reference texts. Empty references are left out.
func ArticlePrompt(title, referralID string, references []string) string {
	record := post.Record{Title: title, ReferralID: referralID}
	topic := title
	referral := "없음"
	if record.HasReferral() {
		topic = fmt.Sprintf("%s (추천인: %s)", title, strings.TrimSpace(referralID))
		referral = strings.TrimSpace(referralID)
	}

	var b strings.Builder
	b.WriteString("당신은 전문 블로그 작가입니다. 다음 정보를 바탕으로 독자에게 유용하고 흥미로운 블로그 포스트를 작성해주세요.\n\n")
	fmt.Fprintf(&b, "### 최종 포스트의 주제\n%q\n\n", topic)
	b.WriteString("### 참고 자료 (웹사이트에서 수집한 내용)\n")
	n := 0
	for _, ref := range references {
		if strings.TrimSpace(ref) == "" {
			continue
		}
		n++
		fmt.Fprintf(&b, "\n--- 참고 자료 %d ---\n%s\n", n, ref)
	}
	if n == 0 {
		b.WriteString("(없음)\n")
	}
	b.WriteString(`
### 작성 지침
1. 참고 자료의 핵심 내용을 종합해서 새로운 글을 작성하고, 내용을 그대로 복사하지 마세요.
2. 서론, 본론(2~3개의 소주제), 결론으로 구성해주세요.
3. 이해하기 쉽고 친근한 어조로 작성해주세요.
4. 추천인 ID가 있다면 글의 마지막에 자연스럽게 언급하며 가입을 권해주세요.
5. 소제목은 ## 또는 ### 마크다운 형식으로 작성해주세요.

`)
	fmt.Fprintf(&b, "### 포함할 정보\n- 추천인 ID: %q\n\n", referral)
	b.WriteString("위 지침에 따라 완성된 블로그 포스트를 작성해주세요.\n")
	return b.String()
}

// PromoPrompt asks for a one or two sentence promotion of title.
func PromoPrompt(title, referralID string) string {
	record := post.Record{Title: title, ReferralID: referralID}

	var b strings.Builder
	b.WriteString("다음 정보를 바탕으로 블로그 포스팅에 사용할 간결하고 매력적인 앱 소개 및 추천인 홍보 문구를 생성해줘.\n")
	fmt.Fprintf(&b, "- 앱 이름 / 주제: %q\n", title)
	if record.HasReferral() {
		fmt.Fprintf(&b, "- 추천인 ID: %q\n", strings.TrimSpace(referralID))
	}
	b.WriteString(`
[요청사항]
1. 앱의 핵심 기능을 한두 문장으로 요약해서 소개해줘.
2. 추천인 ID가 있다면 가입할 때 입력하면 혜택이 있다는 점을 강조해줘.
3. 전체 내용은 1~2개의 문장으로 간결하게 작성해줘.
4. 완성된 한글 문장만 제공하고 다른 설명은 추가하지 마.
`)
	return b.String()
}

// Crawler fetches the readable text of a page, returning "" when it cannot.
type Crawler interface {
	Text(ctx context.Context, url string) string
}

// Prompter builds the prompt for a record according to a Mode.
type Prompter struct {
	mode    Mode
	crawler Crawler
}

// NewPrompter creates a Prompter, crawler may be nil in ModePromo.
func NewPrompter(mode Mode, crawler Crawler) Prompter {
	return Prompter{mode: mode, crawler: crawler}
}

func (p Prompter) Prompt(ctx context.Context, record post.Record) (string, error) {
	if strings.TrimSpace(record.Title) == "" {
		return "", fmt.Errorf("record has no title")
	}
	if p.mode == ModePromo {
		return PromoPrompt(record.Title, record.ReferralID), nil
	}

	var references []string
	for _, url := range record.ReferenceURLs {
		if p.crawler == nil || strings.TrimSpace(url) == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		references = append(references, p.crawler.Text(ctx, url))
	}
	return ArticlePrompt(record.Title, record.ReferralID, references), nil
}
