package alog_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zettagrid/geocontrol/alog"
)

func TestTestLogger(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		logger := alog.Test(t)

		assert.True(t, logger.Empty())
		assert.True(t, logger.Total(0))
		assert.True(t, logger.NotContains("anything"))
	})

	t.Run("assert lines", func(t *testing.T) {
		t.Parallel()

		logger := alog.Test(t)

		logger.Debug("provider lookup failed", slog.String("provider", "ip-api"))
		logger.Log(ctx, alog.LevelTrace, "request")

		assert.True(t, logger.NotEmpty())
		assert.True(t, logger.Total(2))
		assert.True(t, logger.Contains("provider=ip-api"))
		assert.Len(t, logger.Lines(), 2)
		assert.Contains(t, logger.String(), "request")
	})

	t.Run("failing assertions", func(t *testing.T) {
		t.Parallel()

		logger := alog.Test(t)
		logger.Info("line")

		mockT := new(testing.T)
		failing := alog.Test(mockT)
		failing.Info("line")

		assert.False(t, failing.Empty())
		assert.False(t, failing.Total(2))
		assert.False(t, failing.Contains("missing"))
		assert.False(t, failing.NotContains("line"))
		assert.True(t, logger.Total(1))
	})

	t.Run("level", func(t *testing.T) {
		t.Parallel()

		logger := alog.Test(t)
		assert.Equal(t, alog.LevelTrace, logger.Level())
		assert.False(t, logger.UsesSettings())

		logger.SetLevel(slog.LevelInfo)
		logger.Debug("hidden")
		assert.True(t, logger.Empty())
	})
}
