package mailer

import (
	"context"
	"errors"
	"net/textproto"

	"clubsite/internal/apperr"
	"clubsite/internal/contact/model"
	"clubsite/pkg/logger"

	"gopkg.in/gomail.v2"
)

// SMTPMailer relays through a plain SMTP server.
type SMTPMailer struct {
	dialer *gomail.Dialer
	host   string
}

func NewSMTPMailer(host string, port int, user, password string) (*SMTPMailer, error) {
	if host == "" {
		return nil, &apperr.NotConfiguredError{What: "smtp server"}
	}
	return &SMTPMailer{dialer: gomail.NewDialer(host, port, user, password), host: host}, nil
}

func (m *SMTPMailer) Name() string { return "smtp" }

func (m *SMTPMailer) Send(ctx context.Context, n model.Notification) error {
	if err := ctx.Err(); err != nil {
		return &apperr.DeliveryError{Kind: apperr.DeliveryService, Err: err}
	}
	message := gomail.NewMessage()
	message.SetHeader("From", n.From)
	message.SetHeader("To", n.To)
	if n.ReplyTo != "" {
		message.SetHeader("Reply-To", n.ReplyTo)
	}
	message.SetHeader("Subject", n.Subject)
	message.SetBody("text/plain", n.Text)
	message.AddAlternative("text/html", n.HTML)

	if err := m.dialer.DialAndSend(message); err != nil {
		return classifySMTP(err)
	}
	logger.Sugar.Infof("Email relayed through %s", m.host)
	return nil
}

// Check opens and closes an authenticated session.
func (m *SMTPMailer) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &apperr.DeliveryError{Kind: apperr.DeliveryService, Err: err}
	}
	conn, err := m.dialer.Dial()
	if err != nil {
		return classifySMTP(err)
	}
	return conn.Close()
}

func classifySMTP(err error) *apperr.DeliveryError {
	kind := apperr.DeliveryService
	status := 0
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		status = tpErr.Code
		switch tpErr.Code {
		case 530, 534, 535:
			kind = apperr.DeliveryCredentialInvalid
		case 550, 551, 553:
			kind = apperr.DeliverySenderUnverified
		case 501, 510, 511:
			kind = apperr.DeliveryMalformedAddress
		}
	}
	return &apperr.DeliveryError{Kind: kind, Status: status, Err: err}
}
