package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations for the messaging schema on
// PostgreSQL.
func Migrate(db *sql.DB) error {
	stmts := []string{
		// Minimal projection of the account system.
		`CREATE TABLE IF NOT EXISTS users (
			id               BIGSERIAL PRIMARY KEY,
			display_name     VARCHAR(100) NOT NULL,
			avatar_url       TEXT         NOT NULL DEFAULT '',
			language         VARCHAR(8)   NOT NULL DEFAULT 'en',
			is_operator      BOOLEAN      NOT NULL DEFAULT FALSE,
			telegram_chat_id BIGINT       DEFAULT NULL,
			is_deleted       BOOLEAN      NOT NULL DEFAULT FALSE,
			created_at       TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);`,
		// pair_key makes the concurrent first-contact race a detectable
		// unique violation.
		`CREATE TABLE IF NOT EXISTS conversations (
			id         BIGSERIAL   PRIMARY KEY,
			kind       VARCHAR(32) NOT NULL,
			pair_key   VARCHAR(64) DEFAULT NULL,
			closed     BOOLEAN     NOT NULL DEFAULT FALSE,
			is_deleted BOOLEAN     NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_pair_key
			ON conversations(pair_key) WHERE pair_key IS NOT NULL;`,
		`CREATE TABLE IF NOT EXISTS conversation_participants (
			conversation_id BIGINT      NOT NULL REFERENCES conversations(id),
			user_id         BIGINT      NOT NULL REFERENCES users(id),
			is_operator     BOOLEAN     NOT NULL DEFAULT FALSE,
			last_seen_at    TIMESTAMPTZ DEFAULT NULL,
			joined_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (conversation_id, user_id)
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id              BIGSERIAL   PRIMARY KEY,
			conversation_id BIGINT      NOT NULL REFERENCES conversations(id),
			sender_id       BIGINT      REFERENCES users(id) ON DELETE SET NULL,
			type            VARCHAR(8)  NOT NULL,
			content         TEXT        NOT NULL,
			is_read         BOOLEAN     NOT NULL DEFAULT FALSE,
			is_deleted      BOOLEAN     NOT NULL DEFAULT FALSE,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conv_participants_user ON conversation_participants(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conv_created ON messages(conversation_id, created_at DESC, id DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(conversation_id, is_read);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}
