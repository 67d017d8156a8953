package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/tapwars/internal/factory"
	"github.com/Tyrowin/tapwars/internal/testutil"
)

func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestSeedMemory(t *testing.T) {
	out, err := execute(t, context.Background(), "seed", "--storage", "memory")
	require.NoError(t, err)

	assert.Contains(t, out, "shop catalog seeded (6 items in memory store)")
	assert.Contains(t, out, "cheapUp")
	assert.Contains(t, out, "autoFactory")
}

func TestSeedRedisIsIdempotent(t *testing.T) {
	mr := miniredis.RunT(t)
	url := "redis://" + mr.Addr()

	for i := 0; i < 2; i++ {
		out, err := execute(t, context.Background(), "seed", "--storage", "redis", "--redis-url", url)
		require.NoError(t, err)
		assert.Contains(t, out, "6 items in redis store")
	}
}

func TestStorageFlagValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "redis without url", args: []string{"seed", "--storage", "redis", "--redis-url", ""}, wantErr: "REDIS_URL required"},
		{name: "postgres without url", args: []string{"seed", "--storage", "postgres", "--database-url", ""}, wantErr: "DATABASE_URL required"},
		{name: "unknown backend", args: []string{"seed", "--storage", "floppy"}, wantErr: "invalid StorageType"},
		{name: "bad log level", args: []string{"seed", "--log-level", "chatty"}, wantErr: "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, context.Background(), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestServeStopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(300*time.Millisecond, cancel)

	out, err := execute(t, ctx, "serve", "--port", "127.0.0.1:0", "--icon-dir", t.TempDir())
	require.NoError(t, err)

	assert.Contains(t, out, `"msg":"tapwars started"`)
	assert.Contains(t, out, `"msg":"server stopped"`)
}

func TestDefaultConfigReadsEnvironment(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "redis")
	t.Setenv("REDIS_URL", "redis://cache:6379")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ADMIN_TOKEN", "env-secret")

	cfg := DefaultConfig()
	assert.Equal(t, factory.StorageTypeRedis, cfg.StorageType)
	assert.Equal(t, "redis://cache:6379", cfg.RedisURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "env-secret", cfg.Server.AdminToken)

	fcfg, err := cfg.FactoryConfig(testutil.NopLogger())
	require.NoError(t, err)
	require.NotNil(t, fcfg.RedisConfig)
	assert.Equal(t, "redis://cache:6379", fcfg.RedisConfig.URL)
	assert.Nil(t, fcfg.PostgresConfig)
}

func TestRootHelpListsCommands(t *testing.T) {
	out, err := execute(t, context.Background(), "--help")
	require.NoError(t, err)

	for _, want := range []string{"serve", "seed", "--storage", "--admin-token"} {
		assert.True(t, strings.Contains(out, want), "help output missing %q", want)
	}
}
