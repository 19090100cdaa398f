package main

import (
	"context"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/joonaspessi/site/internal/config"
	"github.com/joonaspessi/site/internal/metrics"
)

// ContactMessage is a submission of the contact form.
type ContactMessage struct {
	Name    string
	Email   string
	Message string
}

// Validate checks the form fields. Error keys match the form input names.
func (m ContactMessage) Validate() error {
	return validation.Errors{
		"fullName": validation.Validate(m.Name, validation.Required, validation.Length(1, 200)),
		"email":    validation.Validate(m.Email, validation.Required, is.EmailFormat),
		"message":  validation.Validate(m.Message, validation.Required, validation.Length(1, 5000)),
	}.Filter()
}

// Mailer delivers contact messages to the site owner.
type Mailer interface {
	Send(ctx context.Context, msg ContactMessage) error
}

type smtpMailer struct {
	cfg config.SMTPConfig
}

func newSMTPMailer(cfg config.SMTPConfig) *smtpMailer {
	return &smtpMailer{cfg: cfg}
}

func (m *smtpMailer) Send(ctx context.Context, msg ContactMessage) error {
	if !m.cfg.Configured() {
		return fmt.Errorf("SMTP credentials not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("Site contact: %s", headerSafe(msg.Name))
	body := fmt.Sprintf(`
New contact form submission from the site:

Name: %s
Email: %s
Message:
%s
`, msg.Name, msg.Email, msg.Message)

	raw := []byte("To: " + m.cfg.To + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"From: " + m.cfg.User + "\r\n" +
		"Reply-To: " + headerSafe(msg.Email) + "\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	return smtp.SendMail(m.cfg.Host+":"+m.cfg.Port, auth, m.cfg.User, []string{m.cfg.To}, raw)
}

// headerSafe strips line breaks so form input cannot inject mail headers.
func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

func (s *server) contactForm(c *gin.Context) {
	c.HTML(http.StatusOK, "contact.html", gin.H{
		"title": "Contact Me",
		"form":  ContactMessage{},
	})
}

func (s *server) submitContact(c *gin.Context) {
	msg := ContactMessage{
		Name:    strings.TrimSpace(c.PostForm("fullName")),
		Email:   strings.TrimSpace(c.PostForm("email")),
		Message: strings.TrimSpace(c.PostForm("message")),
	}

	if err := msg.Validate(); err != nil {
		metrics.ContactSubmissions.WithLabelValues("invalid").Inc()
		errs := map[string]string{}
		if verrs, ok := err.(validation.Errors); ok {
			for field, ferr := range verrs {
				errs[field] = ferr.Error()
			}
		}
		c.HTML(http.StatusUnprocessableEntity, "contact.html", gin.H{
			"title":  "Contact Me",
			"form":   msg,
			"errors": errs,
		})
		return
	}

	if err := s.mailer.Send(c.Request.Context(), msg); err != nil {
		metrics.ContactSubmissions.WithLabelValues("failed").Inc()
		s.log.Error("sending contact email", "error", err)
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Sorry, there was an error sending your message. Please try again later.",
		})
		return
	}

	metrics.ContactSubmissions.WithLabelValues("sent").Inc()
	s.log.Info("contact email sent")
	c.HTML(http.StatusOK, "contact-success.html", gin.H{
		"success": "Thank you for your message! I'll get back to you soon.",
	})
}
