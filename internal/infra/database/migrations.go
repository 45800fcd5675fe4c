package database

import (
	"context"

	"github.com/rotisserie/eris"
)

// schema is idempotent and safe to apply on every start.
const schema = `
CREATE TABLE IF NOT EXISTS lead_sources (
	id        TEXT PRIMARY KEY,
	code      TEXT NOT NULL UNIQUE,
	name      TEXT NOT NULL,
	type      TEXT,
	is_active BOOLEAN NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS leads (
	id              TEXT PRIMARY KEY,
	first_name      TEXT NOT NULL DEFAULT '',
	last_name       TEXT,
	email           TEXT,
	phone           TEXT,
	company_name    TEXT,
	notes           TEXT,
	status          TEXT NOT NULL DEFAULT 'new',
	priority        TEXT NOT NULL DEFAULT 'medium',
	score           INTEGER NOT NULL DEFAULT 1,
	source          TEXT REFERENCES lead_sources(id),
	source_channel  TEXT,
	source_detail   TEXT,
	project_type    TEXT,
	language        TEXT,
	estimated_value NUMERIC(12,2),
	currency        TEXT NOT NULL DEFAULT 'CHF',
	event_date      DATE,
	raw_data        JSONB,
	llm_summary     TEXT,
	call_id         TEXT,
	call_duration   INTEGER,
	date_created    TIMESTAMPTZ NOT NULL DEFAULT now(),
	date_updated    TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_email ON leads (lower(email)) WHERE email IS NOT NULL AND email <> '';
CREATE INDEX IF NOT EXISTS idx_leads_phone ON leads (phone);

CREATE TABLE IF NOT EXISTS lead_activities (
	id               TEXT PRIMARY KEY,
	lead             TEXT NOT NULL REFERENCES leads(id),
	type             TEXT NOT NULL,
	subject          TEXT,
	content          TEXT,
	duration_minutes INTEGER,
	is_automated     BOOLEAN NOT NULL DEFAULT false,
	metadata         JSONB,
	date_created     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_lead_activities_lead ON lead_activities (lead);

CREATE TABLE IF NOT EXISTS automation_logs (
	id            TEXT PRIMARY KEY,
	rule_name     TEXT NOT NULL,
	entity_type   TEXT,
	entity_id     TEXT NOT NULL,
	lead          TEXT,
	status        TEXT NOT NULL,
	trigger_data  JSONB,
	error_message TEXT,
	executed_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_automation_logs_key ON automation_logs (rule_name, entity_id, executed_at DESC);
CREATE UNIQUE INDEX IF NOT EXISTS idx_automation_logs_claim ON automation_logs (rule_name, entity_id) WHERE status = 'processing';

CREATE TABLE IF NOT EXISTS whatsapp_messages (
	id           TEXT PRIMARY KEY,
	lead         TEXT REFERENCES leads(id),
	phone        TEXT NOT NULL,
	direction    TEXT NOT NULL,
	message_type TEXT NOT NULL DEFAULT 'text',
	content      TEXT,
	external_id  TEXT UNIQUE,
	status       TEXT,
	processed    BOOLEAN NOT NULL DEFAULT false,
	metadata     JSONB,
	date_created TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate applies the schema.
func Migrate(ctx context.Context, db Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}
