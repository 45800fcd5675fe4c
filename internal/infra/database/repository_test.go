package database

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/leadcapture/internal/entity"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock
}

func leadRow(mock pgxmock.PgxPoolIface) *pgxmock.Rows {
	s := func(v string) *string { return &v }
	created := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	return mock.NewRows([]string{
		"id", "first_name", "last_name", "email", "phone", "company_name", "notes", "status", "priority", "score",
		"source", "source_channel", "source_detail", "project_type", "language", "estimated_value", "event_date",
		"raw_data", "llm_summary", "call_id", "call_duration", "date_created", "date_updated",
	}).AddRow(
		"lead-1", "Marie", s("Dupont"), s("marie@example.ch"), s("+41791234567"), s("Acme"), nil, "new", "medium", 3,
		s("src-1"), s("email"), nil, nil, s("fr"), (*float64)(nil), (*time.Time)(nil),
		[]byte(`{"a":1}`), nil, nil, (*int)(nil), created, (*time.Time)(nil),
	)
}

func TestLeadRepository_FindByEmail(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLeadRepository(mock)

	mock.ExpectQuery(`SELECT .+ FROM leads WHERE lower\(email\) = lower\(\$1\)`).
		WithArgs("marie@example.ch").
		WillReturnRows(leadRow(mock))

	lead, err := repo.FindByEmail(context.Background(), "marie@example.ch")
	require.NoError(t, err)
	assert.Equal(t, "lead-1", lead.ID)
	assert.Equal(t, "Dupont", lead.LastName)
	assert.Equal(t, "Acme", lead.CompanyName)
	assert.Equal(t, "email", lead.SourceChannel)
	assert.Empty(t, lead.Notes)
	assert.JSONEq(t, `{"a":1}`, string(lead.RawData))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepository_FindByPhone_NotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLeadRepository(mock)

	mock.ExpectQuery(`FROM leads WHERE phone = \$1`).
		WithArgs("+41791234567").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByPhone(context.Background(), "+41791234567")
	assert.ErrorIs(t, err, entity.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepository_CreateOmitsEmptyColumns(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLeadRepository(mock)

	lead := &entity.Lead{ID: "lead-2", FirstName: "Marie", Email: "marie@example.ch", Score: 2}

	mock.ExpectQuery(`INSERT INTO leads \(id, first_name, email, score\) VALUES \(\$1, \$2, \$3, \$4\) RETURNING status, priority, date_created`).
		WithArgs("lead-2", "Marie", "marie@example.ch", 2).
		WillReturnRows(mock.NewRows([]string{"status", "priority", "date_created"}).AddRow("new", "medium", time.Now()))

	require.NoError(t, repo.Create(context.Background(), lead))
	assert.Equal(t, "new", lead.Status)
	assert.Equal(t, "medium", lead.Priority)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepository_CreateConflict(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLeadRepository(mock)

	mock.ExpectQuery(`INSERT INTO leads`).
		WithArgs("lead-3", "Marie", "marie@example.ch").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &entity.Lead{ID: "lead-3", FirstName: "Marie", Email: "marie@example.ch"})
	assert.ErrorIs(t, err, entity.ErrConflict)
}

func TestLeadRepository_UpdateChannelMetadata(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLeadRepository(mock)

	mock.ExpectExec(`UPDATE leads SET source_channel = \$2, source_detail = \$3, date_updated = now\(\) WHERE id = \$1`).
		WithArgs("lead-1", "ringover", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.UpdateChannelMetadata(context.Background(), "lead-1", "ringover", "Missed inbound call (15s)"))

	mock.ExpectExec(`UPDATE leads SET source_channel`).
		WithArgs("missing", "ringover", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateChannelMetadata(context.Background(), "missing", "ringover", "")
	assert.ErrorIs(t, err, entity.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadSourceRepository_GetOrCreate(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLeadSourceRepository(mock)

	mock.ExpectQuery(`INSERT INTO lead_sources .+ ON CONFLICT \(code\) DO UPDATE SET code = EXCLUDED.code`).
		WithArgs(pgxmock.AnyArg(), "ringover", "Ringover", pgxmock.AnyArg()).
		WillReturnRows(mock.NewRows([]string{"id", "code", "name", "type", "is_active"}).AddRow("src-9", "ringover", "Ringover", "phone", true))

	src, err := repo.GetOrCreate(context.Background(), "ringover", "Ringover", "phone")
	require.NoError(t, err)
	assert.Equal(t, "src-9", src.ID)
	assert.True(t, src.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAutomationLogRepository_Claim(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAutomationLogRepository(mock)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO automation_logs .+ ON CONFLICT \(rule_name, entity_id\) WHERE status = 'processing' DO NOTHING`).
		WithArgs(pgxmock.AnyArg(), "ringover", pgxmock.AnyArg(), "call-1", pgxmock.AnyArg(), "processing", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`ON CONFLICT \(rule_name, entity_id\) WHERE status = 'processing' DO NOTHING`).
		WithArgs(pgxmock.AnyArg(), "ringover", pgxmock.AnyArg(), "call-1", pgxmock.AnyArg(), "processing", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	ok, err := repo.Claim(ctx, &entity.AutomationLogEntry{RuleName: "ringover", EntityType: "call", EntityID: "call-1"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Claim(ctx, &entity.AutomationLogEntry{RuleName: "ringover", EntityType: "call", EntityID: "call-1"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAutomationLogRepository_HasSuccessSince(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAutomationLogRepository(mock)
	since := time.Now().Add(-30 * time.Minute)

	mock.ExpectQuery(`SELECT EXISTS .+ status = 'success' AND executed_at >= \$3`).
		WithArgs("email", "<m1@x>", since).
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.HasSuccessSince(context.Background(), "email", "<m1@x>", since)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAutomationLogRepository_Record(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAutomationLogRepository(mock)

	mock.ExpectExec(`INSERT INTO automation_logs`).
		WithArgs(pgxmock.AnyArg(), "webform", pgxmock.AnyArg(), "marie@example.ch", pgxmock.AnyArg(), "success", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Record(context.Background(), &entity.AutomationLogEntry{
		RuleName:    "webform",
		EntityType:  "form_submission",
		EntityID:    "marie@example.ch",
		LeadID:      "lead-1",
		Status:      entity.AutomationSuccess,
		TriggerData: map[string]any{"channel": "webform"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWhatsAppMessageRepository_CreateAndMarkProcessed(t *testing.T) {
	mock := newMockPool(t)
	repo := NewWhatsAppMessageRepository(mock)
	ctx := context.Background()

	mock.ExpectQuery(`INSERT INTO whatsapp_messages .+ ON CONFLICT \(external_id\)`).
		WithArgs("msg-new", "+41791234567", "inbound", "text", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow("msg-original"))
	mock.ExpectExec(`UPDATE whatsapp_messages SET processed = true`).
		WithArgs("msg-original", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	msg := &entity.WhatsAppMessage{ID: "msg-new", Phone: "+41791234567", Direction: "inbound", MessageType: "text", Content: "hi", ExternalID: "wamid.1"}
	require.NoError(t, repo.Create(ctx, msg))
	assert.Equal(t, "msg-original", msg.ID)

	require.NoError(t, repo.MarkProcessed(ctx, msg.ID, "lead-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectExec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_automation_logs_claim`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAutomationLogRepository_CloseAbandonedClaims(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAutomationLogRepository(mock)
	before := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO automation_logs .+ SELECT .+ WHERE p.status = 'processing'`).
		WithArgs(before).
		WillReturnRows(mock.NewRows([]string{"entity_id"}).AddRow("call-1").AddRow("call-2"))

	ids, err := repo.CloseAbandonedClaims(context.Background(), before)
	require.NoError(t, err)
	assert.Equal(t, []string{"call-1", "call-2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}
