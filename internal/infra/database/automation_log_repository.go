package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/xavierca1/leadcapture/internal/entity"
)

// AutomationLogRepository is the append-only audit log. Rows are never
// updated or deleted.
type AutomationLogRepository struct {
	DB Pool
}

func NewAutomationLogRepository(db Pool) *AutomationLogRepository {
	return &AutomationLogRepository{DB: db}
}

const insertAutomationLog = `
	INSERT INTO automation_logs (id, rule_name, entity_type, entity_id, lead, status, trigger_data, error_message, executed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

func (r *AutomationLogRepository) Record(ctx context.Context, e *entity.AutomationLogEntry) error {
	args, err := automationLogArgs(e)
	if err != nil {
		return err
	}
	if _, err := r.DB.Exec(ctx, insertAutomationLog, args...); err != nil {
		return eris.Wrapf(err, "postgres: record %s entry for %s/%s", e.Status, e.RuleName, e.EntityID)
	}
	return nil
}

// Claim inserts a processing entry unless one already exists for the key.
// The partial unique index on (rule_name, entity_id) makes this atomic.
func (r *AutomationLogRepository) Claim(ctx context.Context, e *entity.AutomationLogEntry) (bool, error) {
	e.Status = entity.AutomationProcessing
	args, err := automationLogArgs(e)
	if err != nil {
		return false, err
	}

	query := insertAutomationLog + ` ON CONFLICT (rule_name, entity_id) WHERE status = 'processing' DO NOTHING`

	tag, err := r.DB.Exec(ctx, query, args...)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: claim %s/%s", e.RuleName, e.EntityID)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *AutomationLogRepository) HasSuccessSince(ctx context.Context, ruleName, entityID string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM automation_logs
			WHERE rule_name = $1 AND entity_id = $2 AND status = 'success' AND executed_at >= $3
		)`

	var exists bool
	if err := r.DB.QueryRow(ctx, query, ruleName, entityID, since).Scan(&exists); err != nil {
		return false, eris.Wrapf(err, "postgres: check success for %s/%s", ruleName, entityID)
	}
	return exists, nil
}

func (r *AutomationLogRepository) Exists(ctx context.Context, ruleName, entityID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM automation_logs WHERE rule_name = $1 AND entity_id = $2)`

	var exists bool
	if err := r.DB.QueryRow(ctx, query, ruleName, entityID).Scan(&exists); err != nil {
		return false, eris.Wrapf(err, "postgres: check entry for %s/%s", ruleName, entityID)
	}
	return exists, nil
}

// CloseAbandonedClaims appends an error entry for every processing claim
// older than before that never reached a terminal status. It returns the
// entity ids it closed.
func (r *AutomationLogRepository) CloseAbandonedClaims(ctx context.Context, before time.Time) ([]string, error) {
	query := `
		INSERT INTO automation_logs (id, rule_name, entity_type, entity_id, status, error_message, executed_at)
		SELECT gen_random_uuid()::text, p.rule_name, p.entity_type, p.entity_id, 'error', 'abandoned processing claim', now()
		FROM automation_logs p
		WHERE p.status = 'processing'
			AND p.executed_at < $1
			AND NOT EXISTS (
				SELECT 1 FROM automation_logs t
				WHERE t.rule_name = p.rule_name AND t.entity_id = p.entity_id AND t.status <> 'processing'
			)
		RETURNING entity_id`

	rows, err := r.DB.Query(ctx, query, before)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: close abandoned claims")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan abandoned claim")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate abandoned claims")
	}
	return ids, nil
}

func automationLogArgs(e *entity.AutomationLogEntry) ([]any, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.ExecutedAt.IsZero() {
		e.ExecutedAt = time.Now()
	}

	trigger, err := marshalJSON(e.TriggerData)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: encode trigger data")
	}

	return []any{
		e.ID,
		e.RuleName,
		nullString(e.EntityType),
		e.EntityID,
		nullString(e.LeadID),
		string(e.Status),
		trigger,
		nullString(e.ErrorMessage),
		e.ExecutedAt,
	}, nil
}
