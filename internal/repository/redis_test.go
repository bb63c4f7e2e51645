package repository

import (
	"context"
	"testing"
	"time"

	"carrental/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCacheRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer Close(client)

	repo := NewRedisCacheRepository(client)
	ctx := context.Background()

	require.NoError(t, Ping(ctx, client))

	t.Run("BrandsRoundTrip", func(t *testing.T) {
		_, ok, err := repo.GetBrands(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, repo.SetBrands(ctx, []string{"Audi", "Toyota"}, time.Minute))
		brands, ok, err := repo.GetBrands(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []string{"Audi", "Toyota"}, brands)

		s.FastForward(2 * time.Minute)
		_, ok, err = repo.GetBrands(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("InvalidateBrands", func(t *testing.T) {
		require.NoError(t, repo.SetBrands(ctx, []string{"VW"}, time.Hour))
		require.NoError(t, repo.InvalidateBrands(ctx))
		assert.False(t, s.Exists(brandsKey))
	})

	t.Run("CorruptedBrands", func(t *testing.T) {
		require.NoError(t, s.Set(brandsKey, "not-json"))
		_, _, err := repo.GetBrands(ctx)
		assert.Error(t, err)
		s.Del(brandsKey)
	})

	t.Run("RateLimit", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			allowed, err := repo.CheckRateLimit(ctx, "booking:u1", 2, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
		allowed, err := repo.CheckRateLimit(ctx, "booking:u1", 2, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)

		s.FastForward(time.Minute + time.Second)
		allowed, err = repo.CheckRateLimit(ctx, "booking:u1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("NilClient", func(t *testing.T) {
		nilRepo := NewRedisCacheRepository(nil)
		_, _, err := nilRepo.GetBrands(ctx)
		assert.Error(t, err)
		_, err = nilRepo.CheckRateLimit(ctx, "k", 1, time.Second)
		assert.Error(t, err)
	})

	t.Run("ServerDown", func(t *testing.T) {
		down := NewRedisCacheRepository(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}))
		_, err := down.CheckRateLimit(ctx, "k", 1, time.Second)
		assert.Error(t, err)
	})
}
