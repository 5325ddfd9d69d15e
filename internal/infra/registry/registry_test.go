package registry

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/routefleet/internal/core/domain"
)

func TestStatic_List(t *testing.T) {
	reg := NewStatic([]string{"kraken", "binance", "ccex"})

	ids, err := reg.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.SourceID{"kraken", "binance", "ccex"}, ids)

	// Callers may mutate the result freely.
	ids[0] = "mutated"
	again, _ := reg.List(context.Background())
	assert.Equal(t, domain.SourceID("kraken"), again[0])

	assert.NoError(t, reg.Close())
}

func TestSortedIDs(t *testing.T) {
	assert.Equal(t, []domain.SourceID{"a", "b", "c"}, sortedIDs([]string{"c", "a", "b"}))
}

func TestValidateAdd(t *testing.T) {
	assert.NoError(t, validateAdd([]domain.SourceID{"a"}))
	assert.Error(t, validateAdd([]domain.SourceID{"a", ""}))
}

// Live tests run only against real backends.

func TestPostgres_Live(t *testing.T) {
	url := os.Getenv("ROUTEFLEET_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("ROUTEFLEET_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	reg, err := NewPostgres(ctx, PostgresConfig{URL: url})
	require.NoError(t, err)
	defer reg.Close()

	require.NoError(t, reg.Migrate(ctx))

	id := domain.SourceID("live-" + uuid.NewString())
	require.NoError(t, reg.Add(ctx, id, id))

	ids, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, id)
	assert.IsNonDecreasing(t, ids)
}

func TestRedis_Live(t *testing.T) {
	url := os.Getenv("ROUTEFLEET_TEST_REDIS_URL")
	if url == "" {
		t.Skip("ROUTEFLEET_TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	key := "routefleet:test:" + uuid.NewString()
	reg, err := NewRedis(ctx, RedisConfig{URL: url, Key: key})
	require.NoError(t, err)
	defer func() {
		_ = reg.rdb.Del(ctx, key).Err()
		_ = reg.Close()
	}()

	require.NoError(t, reg.Add(ctx, "okx", "binance", "kraken"))

	ids, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.SourceID{"binance", "kraken", "okx"}, ids)
}
