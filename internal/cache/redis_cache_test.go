package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/avatar-service/internal/config"
	"github.com/weiawesome/avatar-service/internal/domain"
)

func setupCache(t *testing.T) (*RedisAvatarCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := NewRedisAvatarCache(config.RedisConfig{Address: mr.Addr()}, "avatar")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisAvatarCache_SetGetDelete(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	key := c.BuildKeyByID("01J0000000000000000000000A")
	assert.Equal(t, "avatar:id:01J0000000000000000000000A", key)

	_, err := c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)

	want := domain.Avatar{
		ID:          "01J0000000000000000000000A",
		Name:        "Rex",
		Gender:      domain.GenderMale,
		Description: domain.DefaultDescription,
		HeightInCM:  180,
		Image:       domain.Image{URL: domain.DefaultImageURLs[1]},
		IsAvailable: true,
		CreatedAt:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, c.Set(ctx, key, &AvatarCacheResult{Avatar: want}, time.Minute))

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, want, got.Avatar)

	mr.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, key, &AvatarCacheResult{Avatar: want}, time.Minute))
	require.NoError(t, c.Delete(ctx, key))
	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)

	assert.NoError(t, c.Delete(ctx))
}

func TestRedisAvatarCache_CorruptEntry(t *testing.T) {
	c, mr := setupCache(t)

	key := c.BuildKeyByID("x")
	require.NoError(t, mr.Set(key, "{not json"))

	_, err := c.Get(context.Background(), key)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestNewRedisAvatarCache_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisAvatarCache(config.RedisConfig{Address: addr}, "avatar")
	assert.Error(t, err)
}
