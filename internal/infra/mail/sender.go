package mail

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/leadcapture/internal/entity"
)

//go:embed templates/*.html
var templateFS embed.FS

var confirmationTmpl = template.Must(template.ParseFS(templateFS, "templates/confirmation.html"))

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// ConfirmationSender mails a receipt to new leads that left an email
// address through the web form or by writing in.
type ConfirmationSender struct {
	*EmailSender
	dialer dialer
}

func NewEmailSender(host string, port int, user, password, from string) *ConfirmationSender {
	s := &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
	}
	if s.From == "" {
		s.From = user
	}
	return &ConfirmationSender{
		EmailSender: s,
		dialer:      gomail.NewDialer(host, port, user, password),
	}
}

func (s *ConfirmationSender) NotifyLeadCaptured(ctx context.Context, event entity.LeadCapturedEvent) error {
	if !event.Created || event.Email == "" {
		return nil
	}
	if event.Channel != entity.ChannelWebForm && event.Channel != entity.ChannelEmail {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.SendConfirmation(event.Email, event.FirstName, event.Company, event.Language); err != nil {
		return err
	}

	zap.L().Info("confirmation email sent",
		zap.String("lead_id", event.LeadID),
		zap.String("channel", string(event.Channel)),
	)
	return nil
}

func (s *ConfirmationSender) SendConfirmation(to, name, company, language string) error {
	data := ConfirmationEmailData{
		Name:    name,
		Company: company,
		English: strings.HasPrefix(strings.ToLower(language), "en"),
	}

	var body bytes.Buffer
	if err := confirmationTmpl.Execute(&body, data); err != nil {
		return eris.Wrap(err, "render confirmation template")
	}

	subject := "Merci pour votre demande"
	if data.English {
		subject = "Thank you for your request"
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		return eris.Wrapf(err, "send confirmation to %s", to)
	}

	return nil
}
