package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/port"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/infra/config"
)

// Sender delivers mail over SMTP.
type Sender struct {
	cfg config.MailSettings
}

// NewSender constructs an SMTP-backed mailer.
func NewSender(cfg config.MailSettings) *Sender {
	return &Sender{cfg: cfg}
}

// Send delivers the message. The HTML part wins when both are set.
func (s *Sender) Send(_ context.Context, msg port.MailMessage) error {
	if s.cfg.Host == "" {
		return fmt.Errorf("mail transport is not configured")
	}

	body := msg.HTML
	contentType := "text/html"
	if strings.TrimSpace(body) == "" {
		body = msg.Text
		contentType = "text/plain"
	}

	from := s.cfg.FromAddress
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromAddress)
	}

	var raw strings.Builder
	raw.WriteString(fmt.Sprintf("From: %s\r\n", from))
	raw.WriteString(fmt.Sprintf("To: %s\r\n", msg.To))
	raw.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	raw.WriteString("MIME-Version: 1.0\r\n")
	raw.WriteString(fmt.Sprintf("Content-Type: %s; charset=\"UTF-8\"\r\n\r\n", contentType))
	raw.WriteString(body)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	if s.cfg.TLS {
		return s.sendTLS(addr, msg.To, raw.String())
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	return smtp.SendMail(addr, auth, s.cfg.FromAddress, []string{msg.To}, []byte(raw.String()))
}

func (s *Sender) sendTLS(addr, to, raw string) error {
	tlsCfg := &tls.Config{
		ServerName: s.cfg.Host,
	}
	conn, err := tls.Dial("tcp", addr, tlsCfg)
	if err != nil {
		return err
	}
	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Quit()

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(s.cfg.FromAddress); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(raw)); err != nil {
		return err
	}
	return w.Close()
}

var _ port.Mailer = (*Sender)(nil)
