package extraction

import (
	"strings"

	"github.com/xavierca1/leadcapture/internal/entity"
)

// schemaBlock is the one output contract every channel prompt ends with.
const schemaBlock = `Respond with a single JSON object and nothing else, using exactly these keys:
{
  "is_lead": boolean,
  "confidence": integer 0-100,
  "first_name": string,
  "last_name": string,
  "email": string,
  "phone": string (international format, e.g. +41791234567),
  "company_name": string,
  "type_projet": string ("event", "video", "web", "branding", "rental", "other" or "unknown"),
  "notes": string (one or two sentence summary of the request),
  "score": integer 1-5,
  "language": string (ISO 639-1 code of the sender's language),
  "urgency": "high" | "medium" | "low"
}
Use an empty string for any unknown field. Never invent contact details.`

// scoringBlock mirrors the deterministic web-form scoring rules.
const scoringBlock = `Compute "score" as follows: start at 1; add 2 if the stated budget is above 10000, or add 1 if it is between 3000 and 10000; add 1 if an event date falls within the next 30 days; add 1 if email, phone and company are all known; add 1 if the project type is known. Never exceed 5.`

const domainBlock = `You qualify inbound sales requests for an audiovisual and event production agency operating in Switzerland and France. A lead is a person or company asking about a project, a quote, availability or pricing. Suppliers, newsletters, job applications, invoices and automated notifications are not leads.`

var channelBlocks = map[entity.Channel]string{
	entity.ChannelEmail: `The input is an email (sender, subject and body). Ignore quoted replies and signatures except for contact details. Automated senders (noreply, mailer-daemon, notifications) are never leads.`,
	entity.ChannelMessaging: `The input is a WhatsApp message written directly to the business number. Treat the sender as a prospect unless the message is clearly spam or a wrong number. The sender's phone number is already known.`,
	entity.ChannelTelephony: `The input is telephony call metadata, not a transcript. Apply these heuristics: a missed call longer than 10 seconds is likely a lead; a call shorter than 5 seconds is likely spam; an answered call longer than 30 seconds is likely a lead; a masked or anonymous number is never a lead. Use the comment and tags when present.`,
	entity.ChannelWebForm: `The input is a web form submission with structured fields.`,
}

// SystemPrompt builds the system prompt of a channel. Every channel shares
// the same schema and scoring rules.
func SystemPrompt(channel entity.Channel) string {
	parts := []string{domainBlock}
	if block, ok := channelBlocks[channel]; ok {
		parts = append(parts, block)
	}
	parts = append(parts, scoringBlock, schemaBlock)
	return strings.Join(parts, "\n\n")
}
