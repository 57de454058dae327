package postgresNotificationStore

import (
	"os"
	"testing"

	"github.com/Layr-Labs/chainwatch/internal/config"
	"github.com/Layr-Labs/chainwatch/internal/tests"
	"github.com/Layr-Labs/chainwatch/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/chainwatch/pkg/logger"
	"github.com/Layr-Labs/chainwatch/pkg/postgres"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup() (
	string,
	*gorm.DB,
	*zap.Logger,
	*config.Config,
	error,
) {
	cfg := config.NewConfig()
	cfg.Debug = os.Getenv(config.Debug) == "true"
	cfg.DatabaseConfig = *tests.GetDbConfigFromEnv()

	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})

	dbname, _, grm, err := postgres.GetTestPostgresDatabase(cfg.DatabaseConfig, cfg, l)
	if err != nil {
		return dbname, nil, nil, nil, err
	}
	return dbname, grm, l, cfg, nil
}

func Test_PostgresNotificationStore(t *testing.T) {
	if !tests.DatabaseTestsEnabled() {
		t.Skip("Skipping postgres tests")
	}

	dbname, db, l, cfg, err := setup()
	if err != nil {
		t.Fatalf("Failed to setup: %v", err)
	}
	store := NewPostgresNotificationStore(db, l, cfg)

	t.Run("Should insert and list notifications newest first", func(t *testing.T) {
		for _, value := range []int{1, 2, 3} {
			n, err := store.InsertNotification(&eventBusTypes.NotificationData{
				Trigger: "transfers",
				ChainId: 1,
				Kind:    "event",
				Payload: map[string]any{"value": value},
			})
			assert.Nil(t, err)
			assert.NotZero(t, n.Id)
		}

		notifications, err := store.ListNotifications("transfers", 2)
		assert.Nil(t, err)
		assert.Len(t, notifications, 2)
		assert.JSONEq(t, `{"value":3}`, string(notifications[0].Payload))
		assert.JSONEq(t, `{"value":2}`, string(notifications[1].Payload))

		none, err := store.ListNotifications("unknown", 0)
		assert.Nil(t, err)
		assert.Len(t, none, 0)
	})
	t.Run("Should insert submissions with and without errors", func(t *testing.T) {
		_, err := store.InsertSubmission(&eventBusTypes.SubmissionData{
			Key:       "a",
			SessionId: "session",
			ChainId:   1,
			Function:  "transfer",
			Payload:   map[string]any{"nonce": 1},
		})
		assert.Nil(t, err)
		_, err = store.InsertSubmission(&eventBusTypes.SubmissionData{
			Key:       "b",
			SessionId: "session",
			ChainId:   1,
			Function:  "transfer",
			Error:     errors.New("insufficient fee"),
		})
		assert.Nil(t, err)

		submissions, err := store.ListSubmissions("session")
		assert.Nil(t, err)
		assert.Len(t, submissions, 2)
		assert.Equal(t, "", submissions[0].Error)
		assert.Equal(t, "insufficient fee", submissions[1].Error)
		assert.Nil(t, submissions[1].Payload)
	})

	t.Cleanup(func() {
		postgres.TeardownTestDatabase(dbname, cfg, db, l)
	})
}
