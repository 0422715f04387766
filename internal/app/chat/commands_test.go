package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equwal/pixelplanet/internal/app/directory"
)

func TestAdminCommands_Mute(t *testing.T) {
	t.Run("trailing number is the duration in minutes", func(t *testing.T) {
		env := newTestEnv(t)

		result, err := env.provider.AdminCommands(context.Background(), "/mute A 10", env.enChannelID)

		require.NoError(t, err)
		assert.Empty(t, result)
		require.Len(t, env.mutes.calls, 1)
		assert.Equal(t, muteCall{userID: 10, minutes: 10}, env.mutes.calls[0])

		calls := env.broadcaster.all()
		require.Len(t, calls, 1)
		assert.Equal(t, directory.InfoUserName, calls[0].name)
		assert.Equal(t, "A has been muted for 10min", calls[0].message)
		assert.Equal(t, "xx", calls[0].country)
	})

	t.Run("no duration means permanent", func(t *testing.T) {
		env := newTestEnv(t)

		result, err := env.provider.AdminCommands(context.Background(), "/mute A", env.enChannelID)

		require.NoError(t, err)
		assert.Empty(t, result)
		require.Len(t, env.mutes.calls, 1)
		assert.Equal(t, muteCall{userID: 10, minutes: 0}, env.mutes.calls[0])

		calls := env.broadcaster.all()
		require.Len(t, calls, 1)
		assert.Equal(t, "A has been muted forever", calls[0].message)
	})

	t.Run("multi-word names survive", func(t *testing.T) {
		env := newTestEnv(t)

		result, err := env.provider.AdminCommands(context.Background(), "/mute Bad Guy 5", env.enChannelID)

		require.NoError(t, err)
		assert.Empty(t, result)
		require.Len(t, env.mutes.calls, 1)
		assert.Equal(t, muteCall{userID: 77, minutes: 5}, env.mutes.calls[0])
	})

	t.Run("leading @ is stripped from the name", func(t *testing.T) {
		env := newTestEnv(t)

		result, err := env.provider.AdminCommands(context.Background(), "/mute @A 10", env.enChannelID)

		require.NoError(t, err)
		assert.Empty(t, result)
		require.Len(t, env.mutes.calls, 1)
		assert.Equal(t, int64(10), env.mutes.calls[0].userID)
	})

	t.Run("unknown name reports back and mutes nothing", func(t *testing.T) {
		env := newTestEnv(t)

		result, err := env.provider.AdminCommands(context.Background(), "/mute Nobody", env.enChannelID)

		require.NoError(t, err)
		assert.Equal(t, "Couldn't find user Nobody", result)
		assert.Empty(t, env.mutes.calls)
		assert.Empty(t, env.broadcaster.all())
	})
}

func TestAdminCommands_Unmute(t *testing.T) {
	t.Run("removes an existing mute and announces it", func(t *testing.T) {
		env := newTestEnv(t)
		env.mutes.muted[10] = true

		result, err := env.provider.AdminCommands(context.Background(), "/unmute A", env.enChannelID)

		require.NoError(t, err)
		assert.Empty(t, result)

		calls := env.broadcaster.all()
		require.Len(t, calls, 1)
		assert.Equal(t, "A has been unmuted", calls[0].message)
	})

	t.Run("user without a mute reports back without broadcast", func(t *testing.T) {
		env := newTestEnv(t)

		result, err := env.provider.AdminCommands(context.Background(), "/unmute A", env.enChannelID)

		require.NoError(t, err)
		assert.Equal(t, "User A is not muted", result)
		assert.Empty(t, env.broadcaster.all())
	})
}

func TestAdminCommands_CountryMutes(t *testing.T) {
	t.Run("mutec needs a country argument", func(t *testing.T) {
		env := newTestEnv(t)

		result, err := env.provider.AdminCommands(context.Background(), "/mutec", env.enChannelID)

		require.NoError(t, err)
		assert.Equal(t, "No country defined for mutec", result)
	})

	t.Run("mutec lowercases and announces", func(t *testing.T) {
		env := newTestEnv(t)

		result, err := env.provider.AdminCommands(context.Background(), "/mutec RU", env.enChannelID)

		require.NoError(t, err)
		assert.Empty(t, result)
		assert.True(t, env.provider.isCountryMuted("ru"))

		calls := env.broadcaster.all()
		require.Len(t, calls, 1)
		assert.Equal(t, "Country ru has been muted", calls[0].message)
	})

	t.Run("unmutec for a country that is not muted", func(t *testing.T) {
		env := newTestEnv(t)

		result, err := env.provider.AdminCommands(context.Background(), "/unmutec fr", env.enChannelID)

		require.NoError(t, err)
		assert.Equal(t, "Country fr is not muted", result)
	})

	t.Run("unmutec with a country lifts that mute only", func(t *testing.T) {
		env := newTestEnv(t)
		env.provider.muteCountry("ru")
		env.provider.muteCountry("de")

		result, err := env.provider.AdminCommands(context.Background(), "/unmutec RU", env.enChannelID)

		require.NoError(t, err)
		assert.Empty(t, result)
		assert.False(t, env.provider.isCountryMuted("ru"))
		assert.True(t, env.provider.isCountryMuted("de"))
	})

	t.Run("bare unmutec drains everything sorted", func(t *testing.T) {
		env := newTestEnv(t)
		env.provider.muteCountry("ru")
		env.provider.muteCountry("de")

		result, err := env.provider.AdminCommands(context.Background(), "/unmutec", env.enChannelID)

		require.NoError(t, err)
		assert.Empty(t, result)
		assert.False(t, env.provider.isCountryMuted("ru"))
		assert.False(t, env.provider.isCountryMuted("de"))

		calls := env.broadcaster.all()
		require.Len(t, calls, 1)
		assert.Equal(t, "Countries de,ru have been unmuted", calls[0].message)
	})

	t.Run("bare unmutec with nothing muted", func(t *testing.T) {
		env := newTestEnv(t)

		result, err := env.provider.AdminCommands(context.Background(), "/unmutec", env.enChannelID)

		require.NoError(t, err)
		assert.Equal(t, "No country is currently muted", result)
	})
}

func TestAdminCommands_Unknown(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.provider.AdminCommands(context.Background(), "/frobnicate now", env.enChannelID)

	require.NoError(t, err)
	assert.Equal(t, "Couldn't parse command frobnicate", result)
	assert.Empty(t, env.broadcaster.all())
}
