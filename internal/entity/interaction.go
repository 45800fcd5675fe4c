package entity

import (
	"encoding/json"
	"time"
)

// Channel identifies the transport a lead signal arrived on.
type Channel string

const (
	ChannelEmail     Channel = "email"
	ChannelMessaging Channel = "messaging"
	ChannelTelephony Channel = "telephony"
	ChannelWebForm   Channel = "webform"
)

// SourceCode is the lead_sources code each channel registers its leads under.
func (c Channel) SourceCode() string {
	switch c {
	case ChannelEmail:
		return "email"
	case ChannelMessaging:
		return "whatsapp"
	case ChannelTelephony:
		return "ringover"
	case ChannelWebForm:
		return "wordpress"
	default:
		return "manual"
	}
}

// SourceName is the display name used when the source is first registered.
func (c Channel) SourceName() string {
	switch c {
	case ChannelEmail:
		return "Email"
	case ChannelMessaging:
		return "WhatsApp"
	case ChannelTelephony:
		return "Ringover"
	case ChannelWebForm:
		return "WordPress"
	default:
		return "Manuel"
	}
}

// SourceType is the lead_sources type of the channel's source.
func (c Channel) SourceType() string {
	switch c {
	case ChannelEmail:
		return "email"
	case ChannelMessaging:
		return "whatsapp"
	case ChannelTelephony:
		return "phone"
	case ChannelWebForm:
		return "web"
	default:
		return "other"
	}
}

// ActivityType maps the channel onto the lead_activities type vocabulary.
func (c Channel) ActivityType() string {
	switch c {
	case ChannelEmail:
		return "email"
	case ChannelMessaging:
		return "whatsapp"
	case ChannelTelephony:
		return "call"
	default:
		return "note"
	}
}

// LowTrust channels never overwrite contact fields of an existing lead.
func (c Channel) LowTrust() bool {
	return c == ChannelTelephony
}

// RawInteraction is a normalized external event. It lives for one pipeline
// run and is never persisted as such.
type RawInteraction struct {
	Channel     Channel
	ExternalID  string
	Text        string
	SenderName  string
	SenderPhone string
	SenderEmail string
	Subject     string
	Detail      string
	ReceivedAt  time.Time
	Payload     json.RawMessage

	CallID       string
	CallDuration int
}

// EmailMessage is an inbound email as read from the mailbox.
type EmailMessage struct {
	UID         uint32
	MessageID   string
	FromName    string
	FromAddress string
	Subject     string
	Body        string
	Date        time.Time
}
