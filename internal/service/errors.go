package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/weiawesome/avatar-service/internal/domain"
	"github.com/weiawesome/avatar-service/internal/repository"
)

var (
	ErrAvatarNotFound      = errors.New("avatar not found")
	ErrAvatarNotAccessible = errors.New("avatar not accessible")
	ErrInsufficientData    = errors.New("no updatable field provided")
	ErrImageMissing        = errors.New("image not found in request")
	ErrUpstreamStorage     = errors.New("image processing or upload failed")
)

// AccessPolicy decides whether an existing avatar may be read or changed.
type AccessPolicy func(*domain.Avatar) bool

// avatarLookup resolves an id to an accessible avatar.
type avatarLookup struct {
	repo   repository.AvatarRepository
	policy AccessPolicy
}

func newAvatarLookup(repo repository.AvatarRepository, policy AccessPolicy) avatarLookup {
	if policy == nil {
		policy = domain.IsAccessible
	}
	return avatarLookup{repo: repo, policy: policy}
}

func (l avatarLookup) find(ctx context.Context, avatarID string) (*domain.Avatar, error) {
	avatar, err := l.load(ctx, avatarID)
	if err != nil {
		return nil, err
	}
	if !l.policy(avatar) {
		return nil, ErrAvatarNotAccessible
	}
	return avatar, nil
}

// load fetches without the access check.
func (l avatarLookup) load(ctx context.Context, avatarID string) (*domain.Avatar, error) {
	avatar, err := l.repo.GetByID(ctx, avatarID)
	if err != nil {
		if errors.Is(err, repository.ErrAvatarNotFound) {
			return nil, ErrAvatarNotFound
		}
		return nil, fmt.Errorf("failed to get avatar: %w", err)
	}
	return avatar, nil
}
