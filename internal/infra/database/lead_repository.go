package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/xavierca1/leadcapture/internal/entity"
)

const leadColumns = `id, first_name, last_name, email, phone, company_name, notes, status, priority, score,
	source, source_channel, source_detail, project_type, language, estimated_value, event_date,
	raw_data, llm_summary, call_id, call_duration, date_created, date_updated`

type LeadRepository struct {
	DB Pool
}

func NewLeadRepository(db Pool) *LeadRepository {
	return &LeadRepository{DB: db}
}

func (r *LeadRepository) FindByEmail(ctx context.Context, email string) (*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE lower(email) = lower($1) ORDER BY date_created ASC LIMIT 1`
	return r.findOne(ctx, query, email)
}

func (r *LeadRepository) FindByPhone(ctx context.Context, phone string) (*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE phone = $1 ORDER BY date_created ASC LIMIT 1`
	return r.findOne(ctx, query, phone)
}

func (r *LeadRepository) findOne(ctx context.Context, query string, arg string) (*entity.Lead, error) {
	lead, err := scanLead(r.DB.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find lead")
	}
	return lead, nil
}

// Create inserts only the populated columns so column defaults apply to the
// rest.
func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	cols, args := insertColumns(lead)

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(`INSERT INTO leads (%s) VALUES (%s) RETURNING status, priority, date_created`,
		strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	err := r.DB.QueryRow(ctx, query, args...).Scan(&lead.Status, &lead.Priority, &lead.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return entity.ErrConflict
		}
		return eris.Wrap(err, "postgres: insert lead")
	}
	return nil
}

func (r *LeadRepository) Update(ctx context.Context, lead *entity.Lead) error {
	query := `
		UPDATE leads SET
			first_name = $2, last_name = $3, email = $4, phone = $5, company_name = $6,
			notes = $7, priority = $8, score = $9, source_channel = $10, source_detail = $11,
			project_type = $12, language = $13, estimated_value = $14, event_date = $15,
			raw_data = $16, llm_summary = $17, call_id = $18, call_duration = $19, date_updated = $20
		WHERE id = $1`

	tag, err := r.DB.Exec(ctx, query,
		lead.ID,
		lead.FirstName,
		nullString(lead.LastName),
		nullString(lead.Email),
		nullString(lead.Phone),
		nullString(lead.CompanyName),
		nullString(lead.Notes),
		defaultString(lead.Priority, entity.UrgencyMedium),
		lead.Score,
		nullString(lead.SourceChannel),
		nullString(lead.SourceDetail),
		nullString(lead.ProjectType),
		nullString(lead.Language),
		nullFloat(lead.EstimatedValue),
		lead.EventDate,
		nullJSON(lead.RawData),
		nullString(lead.LLMSummary),
		nullString(lead.CallID),
		nullInt(lead.CallDuration),
		updatedAt(lead.UpdatedAt),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead %s", lead.ID)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *LeadRepository) UpdateChannelMetadata(ctx context.Context, id, channel, detail string) error {
	query := `UPDATE leads SET source_channel = $2, source_detail = $3, date_updated = now() WHERE id = $1`

	tag, err := r.DB.Exec(ctx, query, id, channel, nullString(detail))
	if err != nil {
		return eris.Wrapf(err, "postgres: update channel metadata of lead %s", id)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func insertColumns(lead *entity.Lead) ([]string, []any) {
	cols := []string{"id", "first_name"}
	args := []any{lead.ID, lead.FirstName}

	add := func(col string, v any) {
		cols = append(cols, col)
		args = append(args, v)
	}
	addString := func(col, v string) {
		if v != "" {
			add(col, v)
		}
	}

	addString("last_name", lead.LastName)
	addString("email", lead.Email)
	addString("phone", lead.Phone)
	addString("company_name", lead.CompanyName)
	addString("notes", lead.Notes)
	addString("status", lead.Status)
	addString("priority", lead.Priority)
	if lead.Score > 0 {
		add("score", lead.Score)
	}
	addString("source", lead.SourceID)
	addString("source_channel", lead.SourceChannel)
	addString("source_detail", lead.SourceDetail)
	addString("project_type", lead.ProjectType)
	addString("language", lead.Language)
	if lead.EstimatedValue > 0 {
		add("estimated_value", lead.EstimatedValue)
	}
	if lead.EventDate != nil {
		add("event_date", *lead.EventDate)
	}
	if len(lead.RawData) > 0 && json.Valid(lead.RawData) {
		add("raw_data", []byte(lead.RawData))
	}
	addString("llm_summary", lead.LLMSummary)
	addString("call_id", lead.CallID)
	if lead.CallDuration > 0 {
		add("call_duration", lead.CallDuration)
	}
	if !lead.CreatedAt.IsZero() {
		add("date_created", lead.CreatedAt)
	}

	return cols, args
}

func scanLead(row pgx.Row) (*entity.Lead, error) {
	var (
		lead                                                     entity.Lead
		lastName, email, phone, company, notes, source           *string
		channel, detail, projectType, language, summary, callID *string
		estimated                                                *float64
		callDuration                                             *int
		rawData                                                  []byte
		updated                                                  *time.Time
	)

	err := row.Scan(
		&lead.ID, &lead.FirstName, &lastName, &email, &phone, &company, &notes,
		&lead.Status, &lead.Priority, &lead.Score,
		&source, &channel, &detail, &projectType, &language, &estimated, &lead.EventDate,
		&rawData, &summary, &callID, &callDuration, &lead.CreatedAt, &updated,
	)
	if err != nil {
		return nil, err
	}

	lead.LastName = deref(lastName)
	lead.Email = deref(email)
	lead.Phone = deref(phone)
	lead.CompanyName = deref(company)
	lead.Notes = deref(notes)
	lead.SourceID = deref(source)
	lead.SourceChannel = deref(channel)
	lead.SourceDetail = deref(detail)
	lead.ProjectType = deref(projectType)
	lead.Language = deref(language)
	lead.LLMSummary = deref(summary)
	lead.CallID = deref(callID)
	if estimated != nil {
		lead.EstimatedValue = *estimated
	}
	if callDuration != nil {
		lead.CallDuration = *callDuration
	}
	if len(rawData) > 0 {
		lead.RawData = json.RawMessage(rawData)
	}
	if updated != nil {
		lead.UpdatedAt = *updated
	}

	return &lead, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func nullFloat(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}

func nullInt(i int) *int {
	if i == 0 {
		return nil
	}
	return &i
}

func nullJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 || !json.Valid(raw) {
		return nil
	}
	return []byte(raw)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func updatedAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
