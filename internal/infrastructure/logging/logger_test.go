package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"production", DefaultConfig(), false},
		{"development", DevelopmentConfig(), false},
		{"warn level", Config{Level: "warn"}, false},
		{"bad level", Config{Level: "loud"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger.Logger)
		})
	}
}

func TestFromSettingsFallsBack(t *testing.T) {
	logger := FromSettings("not-a-level", false)
	require.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	dev := FromSettings("", true)
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))
}

func TestFieldHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	logger.Info("relay failed", Tab("tab_1"), URL("https://example.org"), Backend("codetabs"), Generation(3))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "tab_1", fields["tab_id"])
	assert.Equal(t, "https://example.org", fields["url"])
	assert.Equal(t, "codetabs", fields["backend"])
	assert.Equal(t, uint64(3), fields["generation"])
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Info("discarded")
	logger.Sync()
}
