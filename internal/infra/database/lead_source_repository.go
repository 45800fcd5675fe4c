package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/xavierca1/leadcapture/internal/entity"
)

type LeadSourceRepository struct {
	DB Pool
}

func NewLeadSourceRepository(db Pool) *LeadSourceRepository {
	return &LeadSourceRepository{DB: db}
}

// GetOrCreate returns the source with code, registering it on first use. The
// no-op update makes RETURNING yield the existing row on conflict.
func (r *LeadSourceRepository) GetOrCreate(ctx context.Context, code, name, sourceType string) (*entity.LeadSource, error) {
	query := `
		INSERT INTO lead_sources (id, code, name, type, is_active)
		VALUES ($1, $2, $3, $4, true)
		ON CONFLICT (code) DO UPDATE SET code = EXCLUDED.code
		RETURNING id, code, name, COALESCE(type, ''), is_active`

	var src entity.LeadSource
	err := r.DB.QueryRow(ctx, query, uuid.New().String(), code, name, nullString(sourceType)).
		Scan(&src.ID, &src.Code, &src.Name, &src.Type, &src.IsActive)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get or create lead source %s", code)
	}
	return &src, nil
}
