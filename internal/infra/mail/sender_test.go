package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/leadcapture/internal/entity"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func newTestSender(d *fakeDialer) *ConfirmationSender {
	s := NewEmailSender("smtp.example.ch", 587, "bot@agency.ch", "secret", "")
	s.dialer = d
	return s
}

func TestNotifyLeadCaptured_SendsForNewWebFormLead(t *testing.T) {
	d := &fakeDialer{}
	s := newTestSender(d)

	err := s.NotifyLeadCaptured(context.Background(), entity.LeadCapturedEvent{
		LeadID:    "lead-1",
		Channel:   entity.ChannelWebForm,
		Created:   true,
		FirstName: "Marie",
		Email:     "marie@example.ch",
		Language:  "en",
	})
	require.NoError(t, err)
	require.Len(t, d.sent, 1)

	msg := d.sent[0]
	assert.Equal(t, []string{"marie@example.ch"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"bot@agency.ch"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"Thank you for your request"}, msg.GetHeader("Subject"))
}

func TestNotifyLeadCaptured_SkipsOtherEvents(t *testing.T) {
	d := &fakeDialer{}
	s := newTestSender(d)
	ctx := context.Background()

	tests := []entity.LeadCapturedEvent{
		{Channel: entity.ChannelWebForm, Created: false, Email: "a@example.ch"},
		{Channel: entity.ChannelWebForm, Created: true},
		{Channel: entity.ChannelTelephony, Created: true, Email: "a@example.ch"},
		{Channel: entity.ChannelMessaging, Created: true, Email: "a@example.ch"},
	}
	for _, ev := range tests {
		require.NoError(t, s.NotifyLeadCaptured(ctx, ev))
	}
	assert.Empty(t, d.sent)
}

func TestSendConfirmation_FrenchByDefault(t *testing.T) {
	d := &fakeDialer{}
	s := newTestSender(d)

	require.NoError(t, s.SendConfirmation("luc@example.ch", "Luc", "Acme SA", ""))
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"Merci pour votre demande"}, d.sent[0].GetHeader("Subject"))
}

func TestSendConfirmation_SMTPError(t *testing.T) {
	s := newTestSender(&fakeDialer{err: errors.New("connection refused")})

	err := s.SendConfirmation("luc@example.ch", "Luc", "", "fr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
