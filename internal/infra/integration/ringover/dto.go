package ringover

import (
	"encoding/json"
	"time"
)

type callListResponse struct {
	CallList       []json.RawMessage `json:"call_list"`
	TotalCallCount int               `json:"total_call_count"`
}

// Call is the subset of a call detail record the pipeline reads.
type Call struct {
	CDRID         int64     `json:"cdr_id"`
	CallID        string    `json:"call_id"`
	Direction     string    `json:"direction"`
	LastState     string    `json:"last_state"`
	IsAnswered    bool      `json:"is_answered"`
	StartTime     time.Time `json:"start_time"`
	TotalDuration int       `json:"total_duration"`
	InCallSeconds int       `json:"incall_duration"`
	FromNumber    string    `json:"from_number"`
	ToNumber      string    `json:"to_number"`
	Comments      string    `json:"comments"`
	Tags          []Tag     `json:"tags"`
	Contact       *Contact  `json:"contact"`

	Raw json.RawMessage `json:"-"`
}

type Tag struct {
	Name string `json:"name"`
}

type Contact struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Company   string `json:"company"`
}

// State is the call outcome, derived from the answered flag when the
// provider omits last_state.
func (c Call) State() string {
	if c.LastState != "" {
		return c.LastState
	}
	if c.IsAnswered {
		return "ANSWERED"
	}
	return "MISSED"
}

// ContactName is the provider-side contact name, if any.
func (c Call) ContactName() string {
	if c.Contact == nil {
		return ""
	}
	name := c.Contact.FirstName
	if c.Contact.LastName != "" {
		if name != "" {
			name += " "
		}
		name += c.Contact.LastName
	}
	return name
}

func (c Call) TagNames() []string {
	names := make([]string, 0, len(c.Tags))
	for _, t := range c.Tags {
		if t.Name != "" {
			names = append(names, t.Name)
		}
	}
	return names
}
