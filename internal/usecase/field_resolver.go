package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Logical web-form fields.
const (
	FieldEmail       = "email"
	FieldFirstName   = "first_name"
	FieldLastName    = "last_name"
	FieldName        = "name"
	FieldPhone       = "phone"
	FieldCompany     = "company"
	FieldMessage     = "message"
	FieldBudget      = "budget"
	FieldEventDate   = "event_date"
	FieldProjectType = "project_type"
)

// DefaultFieldCandidates lists, per logical field, the submitted keys tried in
// order. The first non-empty value wins.
var DefaultFieldCandidates = map[string][]string{
	FieldEmail:       {"email", "email_address", "e-mail", "mail", "your-email", "courriel"},
	FieldFirstName:   {"first_name", "firstname", "prenom", "prénom", "given_name", "your-first-name"},
	FieldLastName:    {"last_name", "lastname", "nom", "family_name", "surname", "your-last-name"},
	FieldName:        {"name", "full_name", "fullname", "your-name", "nom_complet"},
	FieldPhone:       {"phone", "phone_number", "telephone", "téléphone", "tel", "mobile", "your-phone"},
	FieldCompany:     {"company", "company_name", "entreprise", "societe", "société", "organization", "organisation"},
	FieldMessage:     {"message", "your-message", "comments", "comment", "description", "details", "demande"},
	FieldBudget:      {"budget", "estimated_budget", "budget_estime", "montant"},
	FieldEventDate:   {"event_date", "date_evenement", "date_event", "eventdate"},
	FieldProjectType: {"project_type", "type_projet", "type", "service", "projet"},
}

// nestedFieldKeys are envelope keys form plugins wrap the real fields in.
var nestedFieldKeys = []string{"fields", "form_fields", "data", "form_data"}

// ResolvedForm is a web-form submission mapped onto logical fields.
type ResolvedForm struct {
	Email       string
	FirstName   string
	LastName    string
	Phone       string
	Company     string
	Message     string
	Budget      float64
	EventDate   *time.Time
	ProjectType string
}

type FieldResolver struct {
	Candidates map[string][]string
}

func NewFieldResolver() *FieldResolver {
	return &FieldResolver{Candidates: DefaultFieldCandidates}
}

// Lookup returns the first non-empty value among the candidates of field.
func (r *FieldResolver) Lookup(fields map[string]any, field string) string {
	flat := flatten(fields)
	return r.lookupFlat(flat, field)
}

func (r *FieldResolver) Resolve(fields map[string]any) ResolvedForm {
	flat := flatten(fields)

	form := ResolvedForm{
		Email:       strings.TrimSpace(r.lookupFlat(flat, FieldEmail)),
		FirstName:   strings.TrimSpace(r.lookupFlat(flat, FieldFirstName)),
		LastName:    strings.TrimSpace(r.lookupFlat(flat, FieldLastName)),
		Phone:       strings.TrimSpace(r.lookupFlat(flat, FieldPhone)),
		Company:     strings.TrimSpace(r.lookupFlat(flat, FieldCompany)),
		Message:     strings.TrimSpace(r.lookupFlat(flat, FieldMessage)),
		ProjectType: strings.ToLower(strings.TrimSpace(r.lookupFlat(flat, FieldProjectType))),
	}

	if form.FirstName == "" && form.LastName == "" {
		form.FirstName, form.LastName = SplitName(r.lookupFlat(flat, FieldName))
	}
	form.Budget = ParseBudget(r.lookupFlat(flat, FieldBudget))
	if d, ok := parseDate(r.lookupFlat(flat, FieldEventDate)); ok {
		form.EventDate = &d
	}

	return form
}

func (r *FieldResolver) lookupFlat(flat map[string]string, field string) string {
	candidates := r.Candidates
	if candidates == nil {
		candidates = DefaultFieldCandidates
	}
	for _, key := range candidates[field] {
		if v, ok := flat[key]; ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// flatten lower-cases keys and hoists nested plugin envelopes. Top-level keys
// win over nested ones.
func flatten(fields map[string]any) map[string]string {
	flat := make(map[string]string, len(fields))

	for _, nk := range nestedFieldKeys {
		nested, ok := fields[nk].(map[string]any)
		if !ok {
			continue
		}
		for k, v := range nested {
			key := strings.ToLower(k)
			if _, seen := flat[key]; !seen {
				flat[key] = stringify(v)
			}
		}
	}

	for k, v := range fields {
		if _, isMap := v.(map[string]any); isMap && contains(nestedFieldKeys, k) {
			continue
		}
		if s := stringify(v); s != "" {
			flat[strings.ToLower(k)] = s
		}
	}

	return flat
}

// stringify renders scalar values. Plugin-style {"value": ...} objects are
// unwrapped.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		if inner, ok := t["value"]; ok {
			return stringify(inner)
		}
		return ""
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringify(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// budgetNumber matches either an amount with thousands groups ("1'500'000",
// "10 000", "1.500.000") or a plain number with an optional decimal part.
// A k suffix only counts as a standalone token, so "20000 kr" stays 20000.
var budgetNumber = regexp.MustCompile(`(?:(\d{1,3}(?:[.,'’ \x{00A0}]\d{3})+)|(\d+(?:[.,]\d+)?))\s*(k\b)?`)

// ParseBudget reads the first amount in a free-form budget value such as
// "15'000 CHF", "10 000" or "5k".
func ParseBudget(value string) float64 {
	m := budgetNumber.FindStringSubmatch(strings.ToLower(value))
	if m == nil {
		return 0
	}

	var number string
	if m[1] != "" {
		number = strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, m[1])
	} else {
		number = strings.Replace(m[2], ",", ".", 1)
	}

	amount, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0
	}
	if m[3] != "" {
		amount *= 1000
	}
	return amount
}
