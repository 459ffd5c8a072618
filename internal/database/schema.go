package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema lists the append-only collections kept in MySQL. Statements are
// idempotent so Migrate can run on every deploy.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS participation_logs (
		id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id      VARCHAR(64)     NOT NULL,
		session_date DATE            NOT NULL,
		poll_id      VARCHAR(64)     NOT NULL,
		guest        TINYINT(1)      NOT NULL DEFAULT 0,
		created_at   DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_participation_user_date (user_id, session_date),
		KEY idx_participation_date (session_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS meetings (
		id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		poll_id      VARCHAR(64)     NOT NULL,
		session_date DATE            NOT NULL,
		session_time VARCHAR(32)     NOT NULL DEFAULT '',
		location     VARCHAR(255)    NOT NULL DEFAULT '',
		fee          VARCHAR(64)     NOT NULL DEFAULT '',
		attendees    JSON            NOT NULL,
		created_at   DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_meetings_date (session_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates missing tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
