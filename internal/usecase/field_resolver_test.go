package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldResolver_OrderedCandidates(t *testing.T) {
	r := NewFieldResolver()

	fields := map[string]any{
		"email_address": "second@example.ch",
		"email":         "",
		"mail":          "third@example.ch",
	}
	assert.Equal(t, "second@example.ch", r.Lookup(fields, FieldEmail), "empty values do not win")

	fields["email"] = "first@example.ch"
	assert.Equal(t, "first@example.ch", r.Lookup(fields, FieldEmail))
}

func TestFieldResolver_NestedPluginEnvelope(t *testing.T) {
	r := NewFieldResolver()

	form := r.Resolve(map[string]any{
		"form_name": "Contact",
		"fields": map[string]any{
			"Email":   map[string]any{"value": "marie@example.ch"},
			"Name":    map[string]any{"value": "Marie Dupont"},
			"Budget":  map[string]any{"value": "5k"},
			"Service": []any{"Video", "Event"},
		},
	})

	assert.Equal(t, "marie@example.ch", form.Email)
	assert.Equal(t, "Marie", form.FirstName)
	assert.Equal(t, "Dupont", form.LastName)
	assert.Equal(t, 5000.0, form.Budget)
	assert.Equal(t, "video, event", form.ProjectType)
}

func TestFieldResolver_CustomCandidates(t *testing.T) {
	r := &FieldResolver{Candidates: map[string][]string{FieldEmail: {"contact_mail"}}}
	assert.Equal(t, "x@example.ch", r.Lookup(map[string]any{"contact_mail": "x@example.ch", "email": "y@example.ch"}, FieldEmail))
}

func TestParseBudget(t *testing.T) {
	tests := map[string]float64{
		"15'000 CHF":          15000,
		"10 000":              10000,
		"10,000":              10000,
		"2500.50":             2500.5,
		"5k":                  5000,
		"5 k CHF":             5000,
		"1,000,000":           1000000,
		"1.500.000 CHF":       1500000,
		"1'500'000":           1500000,
		"20000 kr":            20000,
		"12,5":                12.5,
		"environ 3000 - 5000": 3000,
		"":                    0,
		"à discuter":          0,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseBudget(in), in)
	}
}

func TestFieldResolver_SubmissionDateIsNotEventDate(t *testing.T) {
	form := NewFieldResolver().Resolve(map[string]any{
		"email": "marie@example.ch",
		"date":  "2026-03-10",
	})
	assert.Nil(t, form.EventDate)

	form = NewFieldResolver().Resolve(map[string]any{
		"email":          "marie@example.ch",
		"date":           "2026-03-10",
		"date_evenement": "12.06.2026",
	})
	require.NotNil(t, form.EventDate)
	assert.Equal(t, time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC), *form.EventDate)
}
