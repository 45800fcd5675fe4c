package extraction

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/xavierca1/leadcapture/internal/entity"
)

// ErrNoJSON is returned when a response carries no JSON object.
var ErrNoJSON = eris.New("no json object in response")

// FirstJSONObject returns the first balanced {...} block of text. Braces
// inside string literals are ignored.
func FirstJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}

// wireResult accepts the alias keys models emit for the shared schema.
type wireResult struct {
	IsLead        flexBool   `json:"is_lead"`
	Confidence    flexNumber `json:"confidence"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	CompanyName   string     `json:"company_name"`
	ProjectType   string     `json:"type_projet"`
	Message       string     `json:"message"`
	Notes         string     `json:"notes"`
	Score         flexNumber `json:"score"`
	LangueDetecte string     `json:"langue_detectee"`
	Language      string     `json:"language"`
	Urgency       string     `json:"urgency"`
}

// ParseResult extracts and validates an ExtractionResult from a raw model
// response. Confidence is clamped to 0-100 and a reported score to 1-5.
func ParseResult(response string) (*entity.ExtractionResult, error) {
	block, ok := FirstJSONObject(response)
	if !ok {
		return nil, ErrNoJSON
	}

	var w wireResult
	if err := json.Unmarshal([]byte(block), &w); err != nil {
		return nil, eris.Wrap(err, "decode extraction result")
	}

	confidence := float64(w.Confidence)
	if confidence > 0 && confidence < 1 {
		confidence *= 100
	}

	r := &entity.ExtractionResult{
		IsLead:      bool(w.IsLead),
		Confidence:  clamp(int(math.Round(confidence)), 0, 100),
		FirstName:   nullable(w.FirstName),
		LastName:    nullable(w.LastName),
		Email:       nullable(w.Email),
		Phone:       nullable(w.Phone),
		CompanyName: nullable(w.CompanyName),
		ProjectType: strings.ToLower(nullable(w.ProjectType)),
		Notes:       firstNonEmpty(w.Notes, w.Message),
		Language:    strings.ToLower(firstNonEmpty(w.Language, w.LangueDetecte)),
		Urgency:     normalizeUrgency(w.Urgency),
	}
	if w.Score > 0 {
		r.Score = clamp(int(w.Score), 1, 5)
	}
	if r.ProjectType == "" {
		r.ProjectType = entity.ProjectTypeUnknown
	}

	return r, nil
}

type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.ToLower(string(data)), `"`)
	switch s {
	case "true", "yes", "oui", "1":
		*b = true
	default:
		*b = false
	}
	return nil
}

type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `" `)
	s = strings.TrimSuffix(s, "%")
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = flexNumber(f)
	return nil
}

func nullable(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "null", "none", "n/a", "unknown", "inconnu":
		return ""
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = nullable(v); v != "" {
			return v
		}
	}
	return ""
}

func normalizeUrgency(u string) string {
	switch strings.ToLower(strings.TrimSpace(u)) {
	case "high", "haute", "urgent":
		return entity.UrgencyHigh
	case "low", "basse", "faible":
		return entity.UrgencyLow
	default:
		return entity.UrgencyMedium
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
