package repository

import (
	"context"
	"errors"
	"math"

	"github.com/weiawesome/avatar-service/internal/domain"
)

var ErrAvatarNotFound = errors.New("avatar not found")

// AvatarRepository defines the interface for avatar persistence.
// Every call touches exactly one record except List.
type AvatarRepository interface {
	// Create assigns ID and timestamps and stores the avatar.
	Create(ctx context.Context, avatar *domain.Avatar) error
	// List returns one page of available avatars in insertion order and the
	// total number of available avatars.
	List(ctx context.Context, page, limit int) ([]domain.Avatar, int, error)
	GetByID(ctx context.Context, id string) (*domain.Avatar, error)
	// Update persists the descriptive fields and refreshes UpdatedAt.
	Update(ctx context.Context, avatar *domain.Avatar) error
	// UpdateImage persists only the image and returns the updated record.
	UpdateImage(ctx context.Context, id string, image domain.Image) (*domain.Avatar, error)
	// Delete removes the avatar and returns its last state.
	Delete(ctx context.Context, id string) (*domain.Avatar, error)
	// EnsureSchema creates tables or indexes the repository relies on.
	EnsureSchema(ctx context.Context) error
}

// Offset returns the number of records to skip for a 1-based page. It
// saturates at math.MaxInt instead of wrapping, so a page past any possible
// end yields no records.
func Offset(page, limit int) int {
	if page < 1 || limit < 1 {
		return 0
	}
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}
