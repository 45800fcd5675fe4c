package whatsapp

import (
	"encoding/json"
	"strconv"
	"time"
)

type SendMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Contacts []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Error *ErrorResponse `json:"error"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Type    string `json:"type"`
}

// WebhookEnvelope is the Cloud API delivery body.
type WebhookEnvelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	MessagingProduct string            `json:"messaging_product"`
	Metadata         map[string]string `json:"metadata"`
	Contacts         []Contact         `json:"contacts"`
	Messages         []json.RawMessage `json:"messages"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type message struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
}

// InboundMessage is one message flattened out of the envelope.
type InboundMessage struct {
	ID          string
	From        string
	ProfileName string
	Type        string
	Text        string
	Timestamp   time.Time
	Raw         json.RawMessage
}

// InboundMessages flattens every message of the envelope, text or not.
func (e *WebhookEnvelope) InboundMessages() []InboundMessage {
	var out []InboundMessage
	for _, entry := range e.Entry {
		for _, change := range entry.Changes {
			names := make(map[string]string, len(change.Value.Contacts))
			for _, c := range change.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}

			for _, raw := range change.Value.Messages {
				var m message
				if err := json.Unmarshal(raw, &m); err != nil {
					continue
				}
				in := InboundMessage{
					ID:          m.ID,
					From:        m.From,
					ProfileName: names[m.From],
					Type:        m.Type,
					Timestamp:   parseUnix(m.Timestamp),
					Raw:         raw,
				}
				if m.Text != nil {
					in.Text = m.Text.Body
				}
				out = append(out, in)
			}
		}
	}
	return out
}

func parseUnix(s string) time.Time {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil || sec <= 0 {
		return time.Now()
	}
	return time.Unix(sec, 0)
}
