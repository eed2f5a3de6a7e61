package cache

import (
	"context"
	"time"

	"github.com/weiawesome/avatar-service/internal/domain"
)

type AvatarCacheResult struct {
	Avatar domain.Avatar `json:"avatar"`
}

type AvatarCache interface {
	Get(ctx context.Context, key string) (*AvatarCacheResult, error)
	Set(ctx context.Context, key string, result *AvatarCacheResult, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	BuildKeyByID(avatarID string) string
	Close() error
}
