package auth

import (
	"context"
	"fmt"
	"net"
	"net/smtp"

	log "github.com/sirupsen/logrus"
)

type Mailer interface {
	SendLoginCode(ctx context.Context, email, code string) error
}

// SMTPMailer delivers login codes over a plain SMTP relay.
type SMTPMailer struct {
	host string
	port string
	from string
}

func NewSMTPMailer(host, port, from string) *SMTPMailer {
	return &SMTPMailer{
		host: host,
		port: port,
		from: from,
	}
}

func (m *SMTPMailer) SendLoginCode(_ context.Context, email, code string) error {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Your pacelog login code\r\n\r\nYour login code is: %s\r\nIt expires in a few minutes.\r\n",
		m.from, email, code,
	)
	addr := net.JoinHostPort(m.host, m.port)
	if err := smtp.SendMail(addr, nil, m.from, []string{email}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", email, err)
	}
	return nil
}

// LogMailer just logs the code, used in dev where no SMTP relay runs.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) SendLoginCode(_ context.Context, email, code string) error {
	log.Warnf("dev mailer: login code for %s: %s", email, code)
	return nil
}
