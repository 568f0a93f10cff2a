package auth

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

// Mailer delivers verification codes to a pending registration's address.
type Mailer interface {
	SendVerification(ctx context.Context, to, nick, code string) error
}

// LogMailer writes verification codes to the log instead of sending mail.
type LogMailer struct {
	log *zerolog.Logger
}

// NewLogMailer creates a mailer for deployments without an SMTP relay.
func NewLogMailer(logger *zerolog.Logger) *LogMailer {
	return &LogMailer{log: logger}
}

// SendVerification logs the code.
func (m *LogMailer) SendVerification(_ context.Context, to, nick, code string) error {
	m.log.Info().Str("to", to).Str("nick", nick).Str("code", code).Msg("verification code issued")
	return nil
}

// SMTPMailer sends verification codes through an SMTP relay.
type SMTPMailer struct {
	host string
	from string
	opts []mail.Option
}

// NewSMTPMailer creates a mailer for the relay at addr (host:port).
// Credentials are optional. timeout bounds dialing and each SMTP exchange.
func NewSMTPMailer(addr, from, username, password string, timeout time.Duration) (*SMTPMailer, error) {
	host, rawPort, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("parse smtp addr: %w", err)
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil {
		return nil, fmt.Errorf("parse smtp port: %w", err)
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if timeout > 0 {
		opts = append(opts, mail.WithTimeout(timeout))
	}
	if username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(username),
			mail.WithPassword(password),
		)
	}

	// Validate the options once so misconfiguration fails at startup.
	if _, err := mail.NewClient(host, opts...); err != nil {
		return nil, fmt.Errorf("init smtp client: %w", err)
	}
	return &SMTPMailer{host: host, from: from, opts: opts}, nil
}

// SendVerification sends a plain text message carrying the code.
func (m *SMTPMailer) SendVerification(ctx context.Context, to, nick, code string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject("Verify " + nick)
	msg.SetBodyString(mail.TypeTextPlain,
		fmt.Sprintf("To finish registering %s, run:\r\n\r\n/verify %s <password>\r\n", nick, code))

	client, err := mail.NewClient(m.host, m.opts...)
	if err != nil {
		return fmt.Errorf("init smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}
	return nil
}

var (
	_ Mailer = (*LogMailer)(nil)
	_ Mailer = (*SMTPMailer)(nil)
)
