package postgres

var schema = []string{ //nolint:gochecknoglobals // migration statements
	`CREATE TABLE IF NOT EXISTS audit_records (
		id               UUID PRIMARY KEY,
		seq              BIGINT GENERATED ALWAYS AS IDENTITY,
		workspace_id     TEXT NOT NULL,
		entity_type      TEXT NOT NULL CHECK (entity_type IN ('message', 'file')),
		entity_id        TEXT NOT NULL,
		digest           CHAR(64) NOT NULL,
		anchor_tx_ref    TEXT,
		anchor_block_ref BIGINT,
		state            TEXT NOT NULL DEFAULT 'pending' CHECK (state IN ('pending', 'confirmed', 'failed')),
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK ((state = 'confirmed') = (anchor_tx_ref IS NOT NULL AND anchor_block_ref IS NOT NULL)),
		CHECK (anchor_tx_ref IS NULL OR state = 'confirmed')
	)`,
	`CREATE INDEX IF NOT EXISTS audit_records_digest_idx ON audit_records (digest)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS audit_records_entity_uniq ON audit_records (entity_id, entity_type)`,
	`CREATE INDEX IF NOT EXISTS audit_records_workspace_created_idx ON audit_records (workspace_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS audit_records_pending_idx ON audit_records (created_at) WHERE state = 'pending'`,
}
