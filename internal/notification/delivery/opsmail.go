package delivery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"lead_routing_backend/internal/notification/outbox"
	"lead_routing_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// OpsMailer sends operations alerts (unmatched leads waiting for the
// concierge) straight to the ops mailbox over SMTP.
type OpsMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       string
}

// NewOpsMailer returns nil when no alert mailbox or SMTP host is configured.
func NewOpsMailer(cfg config.NotificationConfig) *OpsMailer {
	if cfg.GetOpsAlertEmail() == "" || cfg.GetSMTPHost() == "" {
		return nil
	}
	return &OpsMailer{
		host:     cfg.GetSMTPHost(),
		port:     cfg.GetSMTPPort(),
		username: cfg.GetSMTPUsername(),
		password: cfg.GetSMTPPassword(),
		from:     cfg.GetSMTPFrom(),
		to:       cfg.GetOpsAlertEmail(),
	}
}

func (m *OpsMailer) Publish(ctx context.Context, rec outbox.Record) (string, error) {
	msg, err := m.message(rec)
	if err != nil {
		return "", err
	}

	opts := []gomail.Option{
		gomail.WithPort(m.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp", addr)
		}),
	}
	if m.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.username),
			gomail.WithPassword(m.password),
		)
	}

	client, err := gomail.NewClient(m.host, opts...)
	if err != nil {
		return "", fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}
	return "smtp:" + rec.ID.String(), nil
}

func (m *OpsMailer) message(rec outbox.Record) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(m.to); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(fmt.Sprintf("[routing] %s %s", rec.Kind, rec.LeadID))

	var body strings.Builder
	fmt.Fprintf(&body, "kind: %s\n", rec.Kind)
	fmt.Fprintf(&body, "lead: %s\n", rec.LeadID)
	fmt.Fprintf(&body, "queued: %s\n", rec.RunAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&body, "payload: %s\n", rec.Payload)
	msg.SetBodyString(gomail.TypeTextPlain, body.String())
	return msg, nil
}
