package _202610181000_chainwatchVersions

import (
	"database/sql"

	"github.com/Layr-Labs/chainwatch/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error {
	query := `CREATE TABLE IF NOT EXISTS chainwatch_versions (
		id serial primary key,
		version varchar not null,
		notification_id_launched_at bigint not null default 0,
		created_at timestamp with time zone default current_timestamp
	)`
	res := grm.Exec(query)
	return res.Error
}

func (m *Migration) GetName() string {
	return "202610181000_chainwatchVersions"
}
