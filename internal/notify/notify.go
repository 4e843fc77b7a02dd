// Package notify mails a summary of a finished batch.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"blogposter/internal/components/telemetry"
	"blogposter/internal/post"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("blogposter/notify")

const report_send = "notifier.send"

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

func (c SmtpConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Server, c.Port)
}

type Notifier struct {
	config SmtpConfig
	to     []string
	tel    telemetry.API
}

func NewNotifier(config SmtpConfig, to []string, tel telemetry.API) Notifier {
	return Notifier{
		config: config,
		to:     to,
		tel:    telemetry.NewScopedAPI("notify", tel),
	}
}

// Enabled is false when there is no server or nobody to send to.
func (n Notifier) Enabled() bool {
	return n.config.Server != "" && len(n.to) > 0
}

// Summary is what a report is made from.
type Summary struct {
	RunID    string
	Finished time.Time
	Outcomes []post.Outcome
	Err      error
}

func (s Summary) counts() (succeeded, failed, skipped int) {
	for _, o := range s.Outcomes {
		switch o.Status {
		case post.StatusSucceeded:
			succeeded++
		case post.StatusFailed:
			failed++
		case post.StatusSkipped:
			skipped++
		}
	}
	return succeeded, failed, skipped
}

func (s Summary) Subject() string {
	succeeded, failed, skipped := s.counts()
	if s.Err != nil {
		return fmt.Sprintf("[blogposter] batch stopped: %d posted, %d failed, %d skipped", succeeded, failed, skipped)
	}
	return fmt.Sprintf("[blogposter] batch finished: %d posted, %d failed, %d skipped", succeeded, failed, skipped)
}

func (s Summary) Body() string {
	var b strings.Builder
	if s.RunID != "" {
		fmt.Fprintf(&b, "Run %s, finished %s.\n", s.RunID, s.Finished.Format(time.DateTime))
	} else {
		fmt.Fprintf(&b, "Finished %s.\n", s.Finished.Format(time.DateTime))
	}
	if s.Err != nil {
		fmt.Fprintf(&b, "The batch stopped early: %s\n", s.Err)
	}
	b.WriteString("\n")

	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Title", "Status", "Stage", "Detail"})
	for i, o := range s.Outcomes {
		stage := ""
		if o.FailedStage != post.StageNone {
			stage = o.FailedStage.String()
		}
		detail := o.PostURL
		if o.Err != nil {
			detail = o.Err.Error()
		}
		t.AppendRow(table.Row{i + 1, o.Record.Title, o.Status.String(), stage, detail})
	}
	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

// Send mails the summary, it does nothing when the notifier is not Enabled.
func (n Notifier) Send(ctx context.Context, summary Summary) error {
	if !n.Enabled() {
		return nil
	}

	_, span := tracer.Start(ctx, "Send")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("blogposter <%s>", n.config.EmailAddress)
	mail.To = n.to
	mail.Subject = summary.Subject()
	mail.Text = []byte(summary.Body())

	err := mail.Send(
		n.config.addr(),
		smtp.PlainAuth("", n.config.EmailAddress, n.config.Password, n.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(n.config.addr(), nil)
	}
	if err != nil {
		n.tel.ReportBroken(report_send, err, n.config.addr())
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return fmt.Errorf("send report: %w", err)
	}
	return nil
}
