package migrations

import (
	"database/sql"
	"time"

	"github.com/Layr-Labs/chainwatch/internal/config"
	_202610180900_notificationAuditLog "github.com/Layr-Labs/chainwatch/pkg/postgres/migrations/202610180900_notificationAuditLog"
	_202610181000_chainwatchVersions "github.com/Layr-Labs/chainwatch/pkg/postgres/migrations/202610181000_chainwatchVersions"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Migration interface {
	Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error
	GetName() string
}

// Migrations records every migration that has been applied.
type Migrations struct {
	Name      string `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Migrator struct {
	Db           *sql.DB
	GDb          *gorm.DB
	Logger       *zap.Logger
	globalConfig *config.Config
	migrations   []Migration
}

func NewMigrator(db *sql.DB, gDb *gorm.DB, l *zap.Logger, cfg *config.Config) *Migrator {
	return &Migrator{
		Db:           db,
		GDb:          gDb,
		Logger:       l,
		globalConfig: cfg,
		migrations: []Migration{
			&_202610180900_notificationAuditLog.Migration{},
			&_202610181000_chainwatchVersions.Migration{},
		},
	}
}

// MigrateAll applies every registered migration that has no record yet,
// in registration order.
func (m *Migrator) MigrateAll() error {
	if err := m.GDb.AutoMigrate(&Migrations{}); err != nil {
		return errors.Wrap(err, "failed to create migrations table")
	}

	for _, migration := range m.migrations {
		if err := m.Migrate(migration); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) Migrate(migration Migration) error {
	name := migration.GetName()

	var existing Migrations
	res := m.GDb.Where("name = ?", name).First(&existing)
	if res.Error == nil {
		m.Logger.Sugar().Debugw("Migration already applied", zap.String("name", name))
		return nil
	}
	if !errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return errors.Wrapf(res.Error, "failed to find migration '%s'", name)
	}

	if err := migration.Up(m.Db, m.GDb, m.globalConfig); err != nil {
		m.Logger.Sugar().Errorw("Failed to apply migration",
			zap.String("name", name),
			zap.Error(err),
		)
		return errors.Wrapf(err, "failed to apply migration '%s'", name)
	}

	res = m.GDb.Create(&Migrations{Name: name})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to record migration '%s'", name)
	}
	m.Logger.Sugar().Infow("Applied migration", zap.String("name", name))
	return nil
}
