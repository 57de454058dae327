package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func Test_NewLogger(t *testing.T) {
	t.Run("Should default to info level", func(t *testing.T) {
		l, err := NewLogger(&LoggerConfig{Debug: false})
		assert.Nil(t, err)
		assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
		assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	})
	t.Run("Should enable debug level", func(t *testing.T) {
		l, err := NewLogger(&LoggerConfig{Debug: true})
		assert.Nil(t, err)
		assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	})
	t.Run("Should accept a nil config", func(t *testing.T) {
		l, err := NewLogger(nil)
		assert.Nil(t, err)
		assert.NotNil(t, l)
	})
}
