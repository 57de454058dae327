package postgresNotificationStore

import (
	"github.com/Layr-Labs/chainwatch/internal/config"
	"github.com/Layr-Labs/chainwatch/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/chainwatch/pkg/notificationStore"
	"github.com/Layr-Labs/chainwatch/pkg/postgres/helpers"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultListLimit = 100

type PostgresNotificationStore struct {
	Db           *gorm.DB
	Logger       *zap.Logger
	GlobalConfig *config.Config
}

func NewPostgresNotificationStore(db *gorm.DB, l *zap.Logger, cfg *config.Config) *PostgresNotificationStore {
	return &PostgresNotificationStore{
		Db:           db,
		Logger:       l,
		GlobalConfig: cfg,
	}
}

func (s *PostgresNotificationStore) InsertNotification(data *eventBusTypes.NotificationData) (*notificationStore.Notification, error) {
	n, err := notificationStore.NewNotification(data)
	if err != nil {
		return nil, err
	}
	return helpers.WrapTxAndCommit(func(tx *gorm.DB) (*notificationStore.Notification, error) {
		res := tx.Model(&notificationStore.Notification{}).Clauses(clause.Returning{}).Create(n)
		if res.Error != nil {
			return nil, errors.Wrapf(res.Error, "failed to insert notification for trigger '%s'", data.Trigger)
		}
		return n, nil
	}, s.Db, nil)
}

func (s *PostgresNotificationStore) InsertSubmission(data *eventBusTypes.SubmissionData) (*notificationStore.Submission, error) {
	sub, err := notificationStore.NewSubmission(data)
	if err != nil {
		return nil, err
	}
	return helpers.WrapTxAndCommit(func(tx *gorm.DB) (*notificationStore.Submission, error) {
		res := tx.Model(&notificationStore.Submission{}).Clauses(clause.Returning{}).Create(sub)
		if res.Error != nil {
			return nil, errors.Wrapf(res.Error, "failed to insert submission for session '%s'", data.SessionId)
		}
		return sub, nil
	}, s.Db, nil)
}

// ListNotifications returns the newest notifications for a trigger first.
func (s *PostgresNotificationStore) ListNotifications(trigger string, limit int) ([]*notificationStore.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	notifications := make([]*notificationStore.Notification, 0)
	res := s.Db.Model(&notificationStore.Notification{}).
		Where("trigger = ?", trigger).
		Order("id desc").
		Limit(limit).
		Find(&notifications)
	if res.Error != nil {
		return nil, res.Error
	}
	return notifications, nil
}

func (s *PostgresNotificationStore) ListSubmissions(sessionId string) ([]*notificationStore.Submission, error) {
	submissions := make([]*notificationStore.Submission, 0)
	res := s.Db.Model(&notificationStore.Submission{}).
		Where("session_id = ?", sessionId).
		Order("id asc").
		Find(&submissions)
	if res.Error != nil {
		return nil, res.Error
	}
	return submissions, nil
}
