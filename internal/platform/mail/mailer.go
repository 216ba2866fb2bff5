package mail

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer prints messages instead of delivering them. It is used when no
// SMTP host is configured, which keeps OTP codes readable in development.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) error {
	log.Printf("INFO: [MAIL] to=%s subject=%q\n%s", msg.To, msg.Subject, msg.Body)
	return nil
}

type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSMTPMailer(host string, port int, user, password, from string) *SMTPMailer {
	m := &SMTPMailer{addr: fmt.Sprintf("%s:%d", host, port), from: from}
	if user != "" {
		m.auth = smtp.PlainAuth("", user, password, host)
	}
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{msg.To}, compose(m.from, msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func compose(from string, msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

// OTPMessage renders the verification mail for a one time code.
func OTPMessage(to, code string, ttlMinutes int) Message {
	return Message{
		To:      to,
		Subject: "Your verification code",
		Body: fmt.Sprintf("Your verification code is %s.\r\n\r\nIt expires in %d minutes. "+
			"If you did not request it you can ignore this email.\r\n", code, ttlMinutes),
	}
}
