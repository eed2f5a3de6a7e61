package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/avatar-service/internal/cache"
	"github.com/weiawesome/avatar-service/internal/config"
	"github.com/weiawesome/avatar-service/internal/domain"
	"github.com/weiawesome/avatar-service/internal/repository"
	"github.com/weiawesome/avatar-service/internal/validation"
)

type testEnv struct {
	svc     AvatarService
	repo    *memoryRepo
	storage *fakeStorage
	codec   *fakeCodec
}

func newTestEnv(t *testing.T, avatarCache cache.AvatarCache) *testEnv {
	t.Helper()

	repo := newMemoryRepo()
	store := &fakeStorage{etag: `"abc123"`}
	codec := &fakeCodec{}
	workflow := NewImageWorkflow(repo, store, codec, "", nil)

	svc := NewAvatarService(repo, workflow, avatarCache, Config{
		CacheTTL: time.Minute,
		Random:   fixedRand(1),
	})
	return &testEnv{svc: svc, repo: repo, storage: store, codec: codec}
}

func strPtr(s string) *string { return &s }
func floatPtr(f float64) *float64 { return &f }

func seedAvatar(env *testEnv, available bool) domain.Avatar {
	a := domain.Avatar{
		ID:          repository.NewID(),
		Name:        "Rex",
		Gender:      domain.GenderMale,
		Description: domain.DefaultDescription,
		HeightInCM:  180,
		Image:       domain.Image{URL: domain.DefaultImageURLs[0]},
		IsAvailable: available,
	}
	env.repo.put(a)
	return a
}

func TestCreateAvatar_Defaults(t *testing.T) {
	env := newTestEnv(t, nil)

	avatar, err := env.svc.CreateAvatar(context.Background(), &domain.CreateAvatarRequest{
		Name:       "Rex",
		Gender:     "M",
		HeightInCM: floatPtr(180),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, avatar.ID)
	assert.Equal(t, "Rex", avatar.Name)
	assert.Equal(t, "N/A", avatar.Description)
	assert.True(t, avatar.IsAvailable)
	assert.Equal(t, domain.DefaultImageURLs[1], avatar.Image.URL)
	assert.Empty(t, avatar.Image.ImageRef)

	stored, err := env.repo.GetByID(context.Background(), avatar.ID)
	require.NoError(t, err)
	assert.Equal(t, avatar.Name, stored.Name)
}

func TestCreateAvatar_EmptyDescription(t *testing.T) {
	env := newTestEnv(t, nil)

	avatar, err := env.svc.CreateAvatar(context.Background(), &domain.CreateAvatarRequest{
		Name:        "Ada",
		Gender:      "F",
		Description: strPtr(""),
		HeightInCM:  floatPtr(165.5),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultDescription, avatar.Description)
	assert.Equal(t, 165.5, avatar.HeightInCM)
}

func TestCreateAvatar_ValidationErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.svc.CreateAvatar(context.Background(), &domain.CreateAvatarRequest{
		Name:        strings.Repeat("x", 101),
		Gender:      "X",
		Description: strPtr(strings.Repeat("d", 501)),
		HeightInCM:  floatPtr(100),
	})

	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 4)
	assert.Equal(t, []string{"Avatar name should be less than 100 characters."}, verrs["name"])
	assert.Equal(t, []string{"Avatar's gender must be one of M, F, O."}, verrs["gender"])
	assert.Equal(t, []string{"Avatar's height should be between 120cm to 215cm."}, verrs["heightInCM"])
	assert.Contains(t, verrs, "description")
	assert.Empty(t, env.repo.avatars)
}

func TestCreateAvatar_MissingFields(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.svc.CreateAvatar(context.Background(), &domain.CreateAvatarRequest{})

	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, []string{"Avatar name missing."}, verrs["name"])
	assert.Equal(t, []string{"Avatar's gender must be specified."}, verrs["gender"])
	assert.Equal(t, []string{"Avatar's height is missing."}, verrs["heightInCM"])
	assert.NotContains(t, verrs, "description")
}

func TestListAvatars(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		_, err := env.svc.CreateAvatar(ctx, &domain.CreateAvatarRequest{
			Name:       fmt.Sprintf("avatar-%d", i),
			Gender:     "O",
			HeightInCM: floatPtr(150),
		})
		require.NoError(t, err)
	}
	seedAvatar(env, false)

	resp, err := env.svc.ListAvatars(ctx, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, resp.Count)
	assert.Equal(t, 2, resp.CurrentPage)
	assert.Equal(t, 3, resp.TotalPages)
	require.Len(t, resp.Result, 5)
	assert.Equal(t, "avatar-6", resp.Result[0].Name)
	assert.Equal(t, "avatar-10", resp.Result[4].Name)

	resp, err = env.svc.ListAvatars(ctx, 0, -3)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.CurrentPage)
	assert.Equal(t, 10, resp.Count)
	assert.Equal(t, 2, resp.TotalPages)
}

func TestListAvatars_Empty(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := env.svc.ListAvatars(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.NotNil(t, resp.Result)
	assert.Zero(t, resp.Count)
	assert.Zero(t, resp.TotalPages)
}

func TestListAvatars_LargeValues(t *testing.T) {
	env := newTestEnv(t, nil)
	for i := 0; i < 3; i++ {
		seedAvatar(env, true)
	}

	tests := []struct {
		name      string
		page      int
		limit     int
		wantCount int
		wantPages int
	}{
		{"page past any offset", 1_000_000_000_000_000_000, 10, 0, 1},
		{"largest limit", 1, math.MaxInt, 3, 1},
		{"largest page and limit", math.MaxInt, math.MaxInt, 0, 1},
		{"exact multiple", 1, 3, 3, 1},
		{"remainder page", 2, 2, 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.svc.ListAvatars(context.Background(), tt.page, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.page, resp.CurrentPage)
			assert.Equal(t, tt.wantCount, resp.Count)
			assert.Len(t, resp.Result, tt.wantCount)
			assert.Equal(t, tt.wantPages, resp.TotalPages)
		})
	}
}

func TestGetAvatar(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	visible := seedAvatar(env, true)
	hidden := seedAvatar(env, false)

	got, err := env.svc.GetAvatar(ctx, visible.ID)
	require.NoError(t, err)
	assert.Equal(t, visible.ID, got.ID)

	_, err = env.svc.GetAvatar(ctx, hidden.ID)
	assert.ErrorIs(t, err, ErrAvatarNotAccessible)

	_, err = env.svc.GetAvatar(ctx, "nope")
	assert.ErrorIs(t, err, ErrAvatarNotFound)
}

func TestGetAvatar_CustomAccessPolicy(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewAvatarService(repo, nil, nil, Config{
		AccessPolicy: func(*domain.Avatar) bool { return true },
	})
	hidden := domain.Avatar{ID: repository.NewID(), Name: "Ghost", IsAvailable: false}
	repo.put(hidden)

	got, err := svc.GetAvatar(context.Background(), hidden.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ghost", got.Name)
}

func TestUpdateAvatar_OnlySuppliedFields(t *testing.T) {
	env := newTestEnv(t, nil)
	a := seedAvatar(env, true)

	got, err := env.svc.UpdateAvatar(context.Background(), a.ID, &domain.UpdateAvatarRequest{Name: "Max"})
	require.NoError(t, err)
	assert.Equal(t, "Max", got.Name)
	assert.Equal(t, a.Gender, got.Gender)
	assert.Equal(t, a.Description, got.Description)
	assert.Equal(t, a.HeightInCM, got.HeightInCM)

	stored, err := env.repo.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Max", stored.Name)
}

func TestUpdateAvatar_Errors(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	visible := seedAvatar(env, true)
	hidden := seedAvatar(env, false)

	_, err := env.svc.UpdateAvatar(ctx, visible.ID, &domain.UpdateAvatarRequest{})
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = env.svc.UpdateAvatar(ctx, "nope", &domain.UpdateAvatarRequest{Name: "x"})
	assert.ErrorIs(t, err, ErrAvatarNotFound)

	_, err = env.svc.UpdateAvatar(ctx, hidden.ID, &domain.UpdateAvatarRequest{Name: "x"})
	assert.ErrorIs(t, err, ErrAvatarNotAccessible)

	_, err = env.svc.UpdateAvatar(ctx, visible.ID, &domain.UpdateAvatarRequest{HeightInCM: 300})
	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs))
	assert.Contains(t, verrs, "heightInCM")

	stored, err := env.repo.GetByID(ctx, visible.ID)
	require.NoError(t, err)
	assert.Equal(t, 180.0, stored.HeightInCM)
}

func TestDeleteAvatar(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	a := seedAvatar(env, true)

	deleted, err := env.svc.DeleteAvatar(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, deleted.ID)

	_, err = env.svc.GetAvatar(ctx, a.ID)
	assert.ErrorIs(t, err, ErrAvatarNotFound)

	_, err = env.svc.DeleteAvatar(ctx, a.ID)
	assert.ErrorIs(t, err, ErrAvatarNotFound)
}

func TestDeleteAvatar_UnavailableIsKept(t *testing.T) {
	env := newTestEnv(t, nil)
	hidden := seedAvatar(env, false)

	_, err := env.svc.DeleteAvatar(context.Background(), hidden.ID)
	assert.ErrorIs(t, err, ErrAvatarNotAccessible)
	assert.Zero(t, env.repo.deletes)

	_, err = env.repo.GetByID(context.Background(), hidden.ID)
	assert.NoError(t, err)
}

func TestGetAvatar_CacheInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	avatarCache, err := cache.NewRedisAvatarCache(config.RedisConfig{Address: mr.Addr()}, "avatar")
	require.NoError(t, err)
	t.Cleanup(func() { _ = avatarCache.Close() })

	env := newTestEnv(t, avatarCache)
	ctx := context.Background()
	a := seedAvatar(env, true)

	_, err = env.svc.GetAvatar(ctx, a.ID)
	require.NoError(t, err)
	_, err = env.svc.GetAvatar(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, env.repo.gets)
	assert.True(t, mr.Exists(avatarCache.BuildKeyByID(a.ID)))

	_, err = env.svc.UpdateAvatar(ctx, a.ID, &domain.UpdateAvatarRequest{Name: "Max"})
	require.NoError(t, err)
	assert.False(t, mr.Exists(avatarCache.BuildKeyByID(a.ID)))

	got, err := env.svc.GetAvatar(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Max", got.Name)

	_, err = env.svc.UpdateAvatarImage(ctx, a.ID, []byte("png"))
	require.NoError(t, err)
	assert.False(t, mr.Exists(avatarCache.BuildKeyByID(a.ID)))

	_, err = env.svc.GetAvatar(ctx, a.ID)
	require.NoError(t, err)
	_, err = env.svc.DeleteAvatar(ctx, a.ID)
	require.NoError(t, err)

	_, err = env.svc.GetAvatar(ctx, a.ID)
	assert.ErrorIs(t, err, ErrAvatarNotFound)
}

func TestUpdateAvatar_DropsLateCacheFill(t *testing.T) {
	mr := miniredis.RunT(t)
	avatarCache, err := cache.NewRedisAvatarCache(config.RedisConfig{Address: mr.Addr()}, "avatar")
	require.NoError(t, err)
	t.Cleanup(func() { _ = avatarCache.Close() })

	repo := newMemoryRepo()
	workflow := NewImageWorkflow(repo, &fakeStorage{etag: `"abc123"`}, &fakeCodec{}, "", nil)
	svc := NewAvatarService(repo, workflow, avatarCache, Config{
		CacheTTL:        time.Minute,
		InvalidateDelay: 100 * time.Millisecond,
		Random:          fixedRand(0),
	})
	ctx := context.Background()

	a := domain.Avatar{
		ID:          repository.NewID(),
		Name:        "Rex",
		Gender:      domain.GenderMale,
		Description: domain.DefaultDescription,
		HeightInCM:  180,
		IsAvailable: true,
	}
	repo.put(a)
	key := avatarCache.BuildKeyByID(a.ID)

	_, err = svc.UpdateAvatar(ctx, a.ID, &domain.UpdateAvatarRequest{Name: "Max"})
	require.NoError(t, err)

	// A read that loaded the old record before the write fills the cache after it.
	require.NoError(t, avatarCache.Set(ctx, key, &cache.AvatarCacheResult{Avatar: a}, time.Minute))
	require.True(t, mr.Exists(key))

	assert.Eventually(t, func() bool { return !mr.Exists(key) }, 2*time.Second, 10*time.Millisecond)

	got, err := svc.GetAvatar(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Max", got.Name)
}
