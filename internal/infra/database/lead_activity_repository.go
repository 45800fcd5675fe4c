package database

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/xavierca1/leadcapture/internal/entity"
)

type LeadActivityRepository struct {
	DB Pool
}

func NewLeadActivityRepository(db Pool) *LeadActivityRepository {
	return &LeadActivityRepository{DB: db}
}

func (r *LeadActivityRepository) Create(ctx context.Context, a *entity.LeadActivity) error {
	metadata, err := marshalJSON(a.Metadata)
	if err != nil {
		return eris.Wrap(err, "postgres: encode activity metadata")
	}

	query := `
		INSERT INTO lead_activities (id, lead, type, subject, content, duration_minutes, is_automated, metadata, date_created)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.DB.Exec(ctx, query,
		a.ID,
		a.LeadID,
		a.Type,
		nullString(a.Subject),
		nullString(a.Content),
		nullInt(a.DurationMinutes),
		a.IsAutomated,
		metadata,
		a.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert activity for lead %s", a.LeadID)
	}
	return nil
}

func marshalJSON(v map[string]any) ([]byte, error) {
	if len(v) == 0 {
		return nil, nil
	}
	return json.Marshal(v)
}
