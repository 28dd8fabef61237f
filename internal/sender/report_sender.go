package sender

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/jordan-wright/email"

	"coupon-issuer/internal/config"
	"coupon-issuer/internal/domain"
)

// ReportSender delivers the batch report to an operator. Delivery failures
// are the caller's to log; they never fail the run.
type ReportSender interface {
	SendReport(ctx context.Context, report *domain.BatchReport) error
}

type SMTPReportSender struct {
	cfg config.SMTPConfig
}

func NewSMTPReportSender(cfg config.SMTPConfig) *SMTPReportSender {
	return &SMTPReportSender{cfg: cfg}
}

func (s *SMTPReportSender) SendReport(ctx context.Context, report *domain.BatchReport) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)

	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = strings.Split(s.cfg.To, ",")
	e.Subject = fmt.Sprintf("Coupon issuance %s: %s",
		time.Now().Format("2006-01-02"), report.Summary())
	e.Text = []byte(FormatReport(report))

	return e.Send(addr, auth)
}

// FormatReport renders the report as the same ordered per-coupon lines the
// log carries, plus the summary.
func FormatReport(report *domain.BatchReport) string {
	var b strings.Builder
	for _, res := range report.Results {
		fmt.Fprintf(&b, "[%s] %s (%s): %s\n", res.Outcome, res.Name, res.Type, res.Message)
	}
	fmt.Fprintf(&b, "\n%s\n", report.Summary())
	return b.String()
}
