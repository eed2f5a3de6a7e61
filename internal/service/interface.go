package service

import (
	"context"

	"github.com/weiawesome/avatar-service/internal/domain"
)

// AvatarService defines the interface for avatar business logic.
type AvatarService interface {
	CreateAvatar(ctx context.Context, req *domain.CreateAvatarRequest) (*domain.Avatar, error)
	ListAvatars(ctx context.Context, page, limit int) (*domain.ListAvatarsResponse, error)
	GetAvatar(ctx context.Context, avatarID string) (*domain.Avatar, error)
	UpdateAvatar(ctx context.Context, avatarID string, req *domain.UpdateAvatarRequest) (*domain.Avatar, error)
	DeleteAvatar(ctx context.Context, avatarID string) (*domain.Avatar, error)
	UpdateAvatarImage(ctx context.Context, avatarID string, raw []byte) (*domain.Avatar, error)
}
