package migrations

import (
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigration(upInit, downInit)
}

func upInit(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS settings (
		key VARCHAR(64) PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS reply_log (
		id SERIAL PRIMARY KEY,
		permalink TEXT NOT NULL DEFAULT '',
		post_text TEXT NOT NULL DEFAULT '',
		reply_text TEXT NOT NULL DEFAULT '',
		outcome VARCHAR(64) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_reply_log_permalink ON reply_log (permalink);
	CREATE INDEX IF NOT EXISTS idx_reply_log_created_at ON reply_log (created_at);
	`)
	return err
}

func downInit(tx *sql.Tx) error {
	_, err := tx.Exec(`
	DROP TABLE IF EXISTS reply_log;
	DROP TABLE IF EXISTS settings;
	`)
	return err
}
