package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// EmailConfig configures the SMTP-backed email channel.
type EmailConfig struct {
	Host       string   `yaml:"host" env:"SMTP_HOST"`
	Port       int      `yaml:"port" env:"SMTP_PORT" default:"587"`
	Username   string   `yaml:"username" env:"SMTP_USERNAME"`
	Password   string   `yaml:"password" env:"SMTP_PASSWORD"`
	From       string   `yaml:"from" env:"SMTP_FROM"`
	Recipients []string `yaml:"recipients" env:"SMTP_RECIPIENTS"`
}

// sendFunc matches smtp.SendMail, injectable for tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailChannel delivers notifications over SMTP.
type EmailChannel struct {
	config EmailConfig
	send   sendFunc
}

// NewEmailChannel creates the email channel.
func NewEmailChannel(config EmailConfig) *EmailChannel {
	return &EmailChannel{config: config, send: smtp.SendMail}
}

// Name implements Channel.
func (c *EmailChannel) Name() string { return ChannelEmail }

// Send renders the notification as a plain-text message and submits it to
// the configured SMTP relay.
func (c *EmailChannel) Send(ctx context.Context, n Notification) error {
	if c.config.Host == "" || len(c.config.Recipients) == 0 {
		return fmt.Errorf("email channel not configured: host and recipients are required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if c.config.Username != "" {
		auth = smtp.PlainAuth("", c.config.Username, c.config.Password, c.config.Host)
	}
	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)
	if err := c.send(addr, auth, c.config.From, c.config.Recipients, c.render(n)); err != nil {
		return fmt.Errorf("smtp delivery failed: %w", err)
	}
	return nil
}

func (c *EmailChannel) render(n Notification) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", c.config.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(c.config.Recipients, ", "))
	fmt.Fprintf(&b, "Subject: [AdPulse] Alert triggered: %s\r\n", n.RuleName)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "Alert rule %q (%s) triggered at %s.\r\n\r\n", n.RuleName, n.RuleType, n.TriggeredAt.Format("2006-01-02 15:04:05 MST"))
	b.WriteString(n.Message + "\r\n")
	if len(n.Details) > 0 {
		b.WriteString("\r\nDetails:\r\n")
		for k, v := range n.Details {
			fmt.Fprintf(&b, "  %s: %v\r\n", k, v)
		}
	}
	fmt.Fprintf(&b, "\r\nRule ID: %s\r\n", n.RuleID)
	return []byte(b.String())
}
