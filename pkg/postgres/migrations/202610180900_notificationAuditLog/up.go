package _202610180900_notificationAuditLog

import (
	"database/sql"

	"github.com/Layr-Labs/chainwatch/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS notifications (
			id serial primary key,
			trigger varchar not null,
			chain_id bigint not null,
			kind varchar not null,
			block_number bigint,
			block_hash varchar,
			payload jsonb not null,
			created_at timestamp with time zone default current_timestamp
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_trigger ON notifications (trigger, created_at)`,
		`CREATE TABLE IF NOT EXISTS submissions (
			id serial primary key,
			key varchar not null,
			session_id varchar not null,
			chain_id bigint not null,
			function varchar not null,
			payload jsonb,
			error varchar,
			created_at timestamp with time zone default current_timestamp
		)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_session_id ON submissions (session_id)`,
	}

	for _, query := range queries {
		res := grm.Exec(query)
		if res.Error != nil {
			return res.Error
		}
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202610180900_notificationAuditLog"
}
