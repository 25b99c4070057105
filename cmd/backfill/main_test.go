package main

import (
	"context"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags_OverridesOnlyWhenSet(t *testing.T) {
	v := viper.New()
	opts, err := parseFlags([]string{"--storage-driver=memory", "--user", "abc"}, v)
	require.NoError(t, err)

	assert.Equal(t, "abc", opts.user)
	assert.Equal(t, "memory", v.GetString("storage.driver"))
	assert.False(t, v.IsSet("log.level"))
}

func TestParseFlags_UnknownFlag(t *testing.T) {
	_, err := parseFlags([]string{"--nope"}, viper.New())
	assert.Error(t, err)
}

func TestRun_Memory(t *testing.T) {
	t.Setenv("LEDGER_LOG_LEVEL", "error")

	t.Run("all users", func(t *testing.T) {
		assert.NoError(t, run(context.Background(), []string{"--storage-driver=memory"}))
	})

	t.Run("single user", func(t *testing.T) {
		assert.NoError(t, run(context.Background(), []string{"--storage-driver=memory", "--user", "00000000-0000-0000-0000-000000000001"}))
	})

	t.Run("invalid user id is returned, not fatal", func(t *testing.T) {
		err := run(context.Background(), []string{"--storage-driver=memory", "--user", "not-a-uuid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid --user")
	})

	t.Run("unknown driver", func(t *testing.T) {
		err := run(context.Background(), []string{"--storage-driver=mongo"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mongo")
	})
}
