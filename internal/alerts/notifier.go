package alerts

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/wonny/scout/internal/scan"
	"github.com/wonny/scout/pkg/config"
	"github.com/wonny/scout/pkg/httputil"
	"github.com/wonny/scout/pkg/logger"
)

// Notifier delivers high-conviction signals and risk flags over webhook
// and email. Delivery is best effort; failures are logged and dropped.
type Notifier struct {
	cfg    config.AlertsConfig
	http   *httputil.Client
	logger *logger.Logger
}

func New(cfg *config.Config, log *logger.Logger) *Notifier {
	return &Notifier{
		cfg:    cfg.Alerts,
		http:   httputil.NewWithTimeout(log, 10*time.Second),
		logger: log,
	}
}

// NotifySignals filters for BUY signals at or above the alert score and
// delivers up to ten of them.
func (n *Notifier) NotifySignals(ctx context.Context, signals []scan.Signal) {
	var highs []scan.Signal
	for _, s := range signals {
		if s.Side == scan.SideBuy && s.Score >= n.cfg.MinScore {
			highs = append(highs, s)
		}
	}
	if len(highs) == 0 {
		return
	}
	if len(highs) > 10 {
		highs = highs[:10]
	}

	n.sendWebhook(ctx, map[string]interface{}{
		"type":            "signals",
		"high_conviction": highs,
	})

	lines := []string{"High-conviction BUY signals:"}
	for _, s := range highs {
		reasons := s.Reasons
		if len(reasons) > 3 {
			reasons = reasons[:3]
		}
		lines = append(lines, fmt.Sprintf("- %s score=%g reasons=%s", s.Ticker, s.Score, strings.Join(reasons, "; ")))
	}
	n.sendEmail("Scanner: High-Conviction BUYs", strings.Join(lines, "\n"))
}

// NotifyRiskFlags delivers portfolio risk flags when enabled.
func (n *Notifier) NotifyRiskFlags(ctx context.Context, flags []string) {
	if !n.cfg.SendRiskFlags || len(flags) == 0 {
		return
	}
	n.sendWebhook(ctx, map[string]interface{}{
		"type":  "risk_flags",
		"flags": flags,
	})
	n.sendEmail("Scanner: Portfolio Risk Flags", strings.Join(flags, "\n"))
}

func (n *Notifier) sendWebhook(ctx context.Context, payload map[string]interface{}) {
	if n.cfg.WebhookURL == "" {
		return
	}
	resp, err := n.http.PostJSON(ctx, n.cfg.WebhookURL, payload)
	if err != nil {
		n.logger.WithError(err).Warn("Webhook delivery failed")
		return
	}
	resp.Body.Close()
}

func (n *Notifier) sendEmail(subject, body string) {
	if n.cfg.SMTPHost == "" || n.cfg.EmailTo == "" {
		return
	}

	from := n.cfg.SMTPUser
	if from == "" {
		from = "scanner@localhost"
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		from, n.cfg.EmailTo, subject, body)

	addr := n.cfg.SMTPHost + ":" + n.cfg.SMTPPort
	var auth smtp.Auth
	if n.cfg.SMTPUser != "" && n.cfg.SMTPPass != "" {
		auth = smtp.PlainAuth("", n.cfg.SMTPUser, n.cfg.SMTPPass, n.cfg.SMTPHost)
	}
	if err := smtp.SendMail(addr, auth, from, []string{n.cfg.EmailTo}, []byte(msg)); err != nil {
		n.logger.WithError(err).Warn("Email delivery failed")
	}
}
