package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"clubsite/internal/apperr"
	"clubsite/internal/contact/mailer"
	"clubsite/internal/contact/model"
	"clubsite/internal/metrics"
	sitemodel "clubsite/internal/site/model"
	"clubsite/pkg/logger"
)

const SubmittedMessage = "Contact form submitted successfully. We will get back to you soon!"

// ConfigSource supplies the stored email configuration.
type ConfigSource interface {
	EmailConfig(ctx context.Context) sitemodel.EmailConfig
	HasEmailConfig(ctx context.Context) bool
}

type ContactService struct {
	Mailer mailer.Mailer // nil when no provider is configured
	Config ConfigSource
	From   string
}

func NewContactService(m mailer.Mailer, cfg ConfigSource, from string) *ContactService {
	return &ContactService{Mailer: m, Config: cfg, From: from}
}

// Submit validates the submission and forwards it to the inquiry address.
func (s *ContactService) Submit(ctx context.Context, sub model.Submission) (string, error) {
	sub.Name = strings.TrimSpace(sub.Name)
	sub.Email = strings.TrimSpace(sub.Email)
	sub.Subject = strings.TrimSpace(sub.Subject)
	sub.Message = strings.TrimSpace(sub.Message)
	if err := sitemodel.Validate(&sub); err != nil {
		metrics.ContactSubmissions.WithLabelValues("invalid").Inc()
		return "", err
	}
	if s.Mailer == nil {
		metrics.ContactSubmissions.WithLabelValues(metrics.OutcomeError).Inc()
		return "", &apperr.NotConfiguredError{What: "email service"}
	}

	cfg := s.Config.EmailConfig(ctx)
	n := Compose(sub, cfg, s.From)
	if err := s.Mailer.Send(ctx, n); err != nil {
		logger.Sugar.Errorf("Service: contact email via %s failed: %v", s.Mailer.Name(), err)
		metrics.ContactSubmissions.WithLabelValues(metrics.OutcomeError).Inc()
		return "", err
	}
	logger.Sugar.Infof("Contact submission forwarded to %s", cfg.InquiryEmail)
	metrics.ContactSubmissions.WithLabelValues(metrics.OutcomeOK).Inc()
	return SubmittedMessage, nil
}

// Compose builds the plain text and HTML bodies for one submission.
func Compose(sub model.Submission, cfg sitemodel.EmailConfig, from string) model.Notification {
	text := fmt.Sprintf("New contact form submission\n\nName: %s\nEmail: %s\nSubject: %s\n\nMessage:\n%s\n",
		sub.Name, sub.Email, sub.Subject, sub.Message)

	message := strings.ReplaceAll(html.EscapeString(sub.Message), "\n", "<br>")
	body := fmt.Sprintf(`<h2>New Contact Form Submission</h2>
<p><strong>Name:</strong> %s</p>
<p><strong>Email:</strong> %s</p>
<p><strong>Subject:</strong> %s</p>
<h3>Message:</h3>
<p>%s</p>`,
		html.EscapeString(sub.Name), html.EscapeString(sub.Email), html.EscapeString(sub.Subject), message)

	n := model.Notification{
		From:    from,
		To:      cfg.InquiryEmail,
		Subject: strings.TrimSpace(cfg.SubjectPrefix + " " + sub.Subject),
		Text:    text,
		HTML:    body,
	}
	// The form accepts any non-empty email text; only a real address is
	// usable as Reply-To.
	if sitemodel.IsEmail(sub.Email) {
		n.ReplyTo = sub.Email
	}
	return n
}

// Diagnose reports whether mail can be sent without exposing any secret.
func (s *ContactService) Diagnose(ctx context.Context) model.Diagnosis {
	d := model.Diagnosis{
		Mailer:          "none",
		MailerStatus:    "not configured",
		EmailConfigured: s.Config.HasEmailConfig(ctx),
		InquiryEmail:    s.Config.EmailConfig(ctx).InquiryEmail,
		Recommendations: []string{},
	}
	if s.Mailer == nil {
		d.Recommendations = append(d.Recommendations, "Set RESEND_API_KEY or configure SMTP_HOST to enable the contact form")
	} else {
		d.Mailer = s.Mailer.Name()
		if err := s.Mailer.Check(ctx); err != nil {
			logger.Sugar.Warnf("Service: mailer check failed: %v", err)
			d.MailerStatus = "error: " + apperr.Public(err)
			d.Recommendations = append(d.Recommendations, "Verify the email provider credentials and sender domain")
		} else {
			d.MailerStatus = "ok"
		}
	}
	if !d.EmailConfigured {
		d.Recommendations = append(d.Recommendations, "Save an email configuration so inquiries reach the right address")
	}
	return d
}
