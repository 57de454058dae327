package runtime

import "time"

type ChainwatchVersions struct {
	Id      uint64 `gorm:"primaryKey"`
	Version string
	// NotificationIdLaunchedAt is the newest audit log id when the version first started
	NotificationIdLaunchedAt uint64
	CreatedAt                *time.Time
}
