package setting

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSuite verifies that an implementation of Settings behaves as expected.
// Call it from the tests of each implementation.
func TestSuite(t *testing.T, newSettings func() Settings) { //nolint:tparallel // the caller decides on t.Parallel
	t.Helper()

	if newSettings == nil {
		t.Fatal("Settings constructor is nil")
	}

	var (
		ctx         = context.Background()
		key         = NewKey("geocontrol", "test", "setting")
		keyNotFound = NewKey("geocontrol", "test", "non-existing")
		value       = NewValue("setting_value")
	)

	t.Run("Save", func(t *testing.T) {
		t.Parallel()

		settings := newSettings()

		err := settings.Save(ctx, key, value)
		assert.NoError(t, err)

		val, err := settings.Setting(ctx, key)
		assert.NoError(t, err)
		assert.Equal(t, "setting_value", val.String())

		err = settings.Save(ctx, key, NewValue("setting-update"))
		assert.NoError(t, err)

		val, err = settings.Setting(ctx, key)
		assert.NoError(t, err)
		assert.Equal(t, "setting-update", val.String())
	})

	t.Run("Setting", func(t *testing.T) {
		t.Parallel()

		settings := newSettings()

		val, err := settings.Setting(ctx, keyNotFound)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Empty(t, val.String())
	})

	t.Run("Settings", func(t *testing.T) {
		t.Parallel()

		settings := newSettings()

		k0 := NewKey("geocontrol", "test", "s0")
		k1 := NewKey("geocontrol", "test", "s1")

		require.NoError(t, settings.Save(ctx, k0, NewValue("v0")))
		require.NoError(t, settings.Save(ctx, k1, NewValue("v1")))

		s, err := settings.Settings(ctx, []Key{k0, k1})
		assert.NoError(t, err)
		assert.Len(t, s, 2)
		assert.Equal(t, "v0", s[k0].String())
		assert.Equal(t, "v1", s[k1].String())

		s, err = settings.Settings(ctx, []Key{k0, keyNotFound})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Len(t, s, 1, "error, but found settings should be returned")
	})

	t.Run("Delete", func(t *testing.T) {
		t.Parallel()

		settings := newSettings()

		require.NoError(t, settings.Save(ctx, key, value))

		err := settings.Delete(ctx, key)
		assert.NoError(t, err)

		_, err = settings.Setting(ctx, key)
		assert.ErrorIs(t, err, ErrNotFound)

		err = settings.Delete(ctx, keyNotFound)
		assert.NoError(t, err, "deleting a missing key is not an error")
	})

	t.Run("OnSettingChange", func(t *testing.T) {
		t.Parallel()

		settings := newSettings()
		changeKey := NewKey("geocontrol", "test", "watched")

		var calls atomic.Int32

		settings.OnSettingChange(changeKey, func(setting Value) {
			calls.Add(1)
			assert.Equal(t, "changed", setting.String())
		})

		require.NoError(t, settings.Save(ctx, changeKey, NewValue("changed")))
		require.NoError(t, settings.Save(ctx, changeKey, NewValue("changed")))
		require.NoError(t, settings.Save(ctx, key, NewValue("other key")))

		assert.Equal(t, int32(1), calls.Load(), "only an actual change notifies")
	})
}
