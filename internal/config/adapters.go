package config

// EnabledAdapters is computed once at startup from credential presence.
// Components check these flags instead of probing credentials themselves.
type EnabledAdapters struct {
	Email        bool
	Telephony    bool
	Messaging    bool
	MessagingAck bool
	WebForm      bool

	PrimaryExtraction   bool
	SecondaryExtraction bool

	ConfirmationEmail bool
	Broker            bool
	ManualTriggers    bool
}

func (c *Config) EnabledAdapters() EnabledAdapters {
	return EnabledAdapters{
		Email:        c.Email.Host != "" && c.Email.Username != "" && c.Email.Password != "",
		Telephony:    c.Ringover.APIKey != "",
		Messaging:    c.WhatsApp.VerifyToken != "",
		MessagingAck: c.WhatsApp.AccessToken != "" && c.WhatsApp.PhoneID != "",
		WebForm:      c.WebForm.Enabled,

		PrimaryExtraction:   c.Anthropic.Key != "",
		SecondaryExtraction: c.Mistral.Key != "",

		ConfirmationEmail: c.SMTP.Host != "",
		Broker:            c.RabbitMQ.URL != "",
		ManualTriggers:    c.Server.AdminToken != "",
	}
}

// Channels lists the enabled inbound channels by name.
func (a EnabledAdapters) Channels() []string {
	var names []string
	if a.Email {
		names = append(names, "email")
	}
	if a.Telephony {
		names = append(names, "telephony")
	}
	if a.Messaging {
		names = append(names, "messaging")
	}
	if a.WebForm {
		names = append(names, "webform")
	}
	return names
}

// Missing names the optional integrations that are switched off for lack
// of credentials.
func (a EnabledAdapters) Missing() []string {
	checks := []struct {
		on   bool
		name string
	}{
		{a.Email, "email poller (email.host/username/password)"},
		{a.Telephony, "telephony poller (ringover.api_key)"},
		{a.Messaging, "whatsapp webhook (whatsapp.verify_token)"},
		{a.MessagingAck, "whatsapp acknowledgment (whatsapp.access_token/phone_id)"},
		{a.PrimaryExtraction, "primary extraction (anthropic.key)"},
		{a.SecondaryExtraction, "secondary extraction (mistral.key)"},
		{a.ConfirmationEmail, "confirmation email (smtp.host)"},
		{a.Broker, "lead events (rabbitmq.url)"},
		{a.ManualTriggers, "manual poll triggers (server.admin_token)"},
	}

	var missing []string
	for _, c := range checks {
		if !c.on {
			missing = append(missing, c.name)
		}
	}
	return missing
}
