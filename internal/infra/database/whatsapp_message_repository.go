package database

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/xavierca1/leadcapture/internal/entity"
)

type WhatsAppMessageRepository struct {
	DB Pool
}

func NewWhatsAppMessageRepository(db Pool) *WhatsAppMessageRepository {
	return &WhatsAppMessageRepository{DB: db}
}

// Create stores an inbound message. A redelivered message keeps its original
// row and msg.ID is set to it.
func (r *WhatsAppMessageRepository) Create(ctx context.Context, msg *entity.WhatsAppMessage) error {
	metadata, err := marshalJSON(msg.Metadata)
	if err != nil {
		return eris.Wrap(err, "postgres: encode message metadata")
	}

	query := `
		INSERT INTO whatsapp_messages (id, phone, direction, message_type, content, external_id, status, processed, metadata, date_created)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8, $9)
		ON CONFLICT (external_id) DO UPDATE SET status = EXCLUDED.status
		RETURNING id`

	err = r.DB.QueryRow(ctx, query,
		msg.ID,
		msg.Phone,
		msg.Direction,
		msg.MessageType,
		nullString(msg.Content),
		nullString(msg.ExternalID),
		nullString(msg.Status),
		metadata,
		updatedAt(msg.CreatedAt),
	).Scan(&msg.ID)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert whatsapp message %s", msg.ExternalID)
	}
	return nil
}

func (r *WhatsAppMessageRepository) MarkProcessed(ctx context.Context, id, leadID string) error {
	query := `UPDATE whatsapp_messages SET processed = true, status = 'processed', lead = $2 WHERE id = $1`

	tag, err := r.DB.Exec(ctx, query, id, nullString(leadID))
	if err != nil {
		return eris.Wrapf(err, "postgres: mark message %s processed", id)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrNotFound
	}
	return nil
}
