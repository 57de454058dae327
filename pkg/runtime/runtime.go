// Package runtime guards the audit database against being written by an
// older chainwatch release than the one that last used it.
package runtime

import (
	"github.com/Layr-Labs/chainwatch/internal/config"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/mod/semver"
	"gorm.io/gorm"
)

const unknownVersion = "unknown"

type ChainwatchRuntime struct {
	grm          *gorm.DB
	globalConfig *config.Config
	logger       *zap.Logger
}

func NewChainwatchRuntime(grm *gorm.DB, globalConfig *config.Config, l *zap.Logger) *ChainwatchRuntime {
	return &ChainwatchRuntime{
		grm:          grm,
		globalConfig: globalConfig,
		logger:       l,
	}
}

func (r *ChainwatchRuntime) GetLastLaunchedVersion() (*ChainwatchVersions, error) {
	var cv ChainwatchVersions
	res := r.grm.Model(&ChainwatchVersions{}).Order("id desc").First(&cv)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return &cv, nil
}

// ValidateAndUpdateVersion records version as launched. It fails when version
// is older than the last recorded one. Unknown builds are neither checked nor
// recorded.
func (r *ChainwatchRuntime) ValidateAndUpdateVersion(version string) error {
	if version == "" {
		return errors.New("empty version")
	}
	if version == unknownVersion {
		r.logger.Sugar().Warnw("Runtime version is unknown, not recording it", zap.String("version", version))
		return nil
	}
	if !semver.IsValid(version) {
		return errors.Errorf("'%s' is not a semantic version", version)
	}

	last, err := r.GetLastLaunchedVersion()
	if err != nil {
		return err
	}
	if last != nil {
		cmp := semver.Compare(version, last.Version)
		if cmp < 0 {
			return errors.Errorf("runtime version %s is older than last seen version %s", version, last.Version)
		}
		if cmp == 0 {
			r.logger.Sugar().Infow("Runtime version is the same as the last seen version", zap.String("version", version))
			return nil
		}
	}

	var notificationId uint64
	res := r.grm.Raw("SELECT COALESCE(MAX(id), 0) FROM notifications").Scan(&notificationId)
	if res.Error != nil {
		return res.Error
	}

	res = r.grm.Model(&ChainwatchVersions{}).Create(&ChainwatchVersions{
		Version:                  version,
		NotificationIdLaunchedAt: notificationId,
	})
	return res.Error
}
