package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/avatar-service/internal/audit"
	"github.com/weiawesome/avatar-service/internal/cache"
	"github.com/weiawesome/avatar-service/internal/domain"
	"github.com/weiawesome/avatar-service/internal/repository"
	"github.com/weiawesome/avatar-service/internal/validation"
	"github.com/weiawesome/avatar-service/pkg/log"
	"github.com/weiawesome/avatar-service/pkg/pubsub"
)

// Pagination defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

const (
	cacheWriteTimeout   = 2 * time.Second
	eventPublishTimeout = 2 * time.Second
)

// Config carries the tunables of the avatar service.
type Config struct {
	// DefaultImages are the placeholder URLs new avatars start with.
	DefaultImages []string
	CacheTTL      time.Duration
	// InvalidateDelay deletes the cache entry a second time this long after a
	// mutation, dropping a stale copy filled by a read that overlapped the
	// write. Without it such a copy lives until CacheTTL expires.
	InvalidateDelay time.Duration
	// AccessPolicy defaults to domain.IsAccessible.
	AccessPolicy AccessPolicy
	// Random picks placeholders; defaults to the math/rand/v2 global source.
	Random domain.IntN
	// Events receives a change event after every mutation when set.
	Events       pubsub.Publisher
	EventChannel string
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// avatarServiceImpl implements AvatarService interface.
type avatarServiceImpl struct {
	repo          repository.AvatarRepository
	lookup        avatarLookup
	images        *ImageWorkflow
	cache         cache.AvatarCache
	cacheTTL      time.Duration
	reinvalidate  time.Duration
	sf            singleflight.Group
	defaultImages []string
	rnd           domain.IntN
	events        pubsub.Publisher
	eventChannel  string
}

// NewAvatarService creates a new avatar service. avatarCache may be nil.
func NewAvatarService(
	repo repository.AvatarRepository,
	images *ImageWorkflow,
	avatarCache cache.AvatarCache,
	cfg Config,
) AvatarService {
	defaultImages := cfg.DefaultImages
	if len(defaultImages) == 0 {
		defaultImages = domain.DefaultImageURLs
	}
	rnd := cfg.Random
	if rnd == nil {
		rnd = globalRand{}
	}
	eventChannel := cfg.EventChannel
	if eventChannel == "" {
		eventChannel = pubsub.ChannelAvatarEvents
	}

	return &avatarServiceImpl{
		repo:          repo,
		lookup:        newAvatarLookup(repo, cfg.AccessPolicy),
		images:        images,
		cache:         avatarCache,
		cacheTTL:      cfg.CacheTTL,
		reinvalidate:  cfg.InvalidateDelay,
		defaultImages: defaultImages,
		rnd:           rnd,
		events:        cfg.Events,
		eventChannel:  eventChannel,
	}
}

// CreateAvatar validates and stores a new avatar.
func (s *avatarServiceImpl) CreateAvatar(ctx context.Context, req *domain.CreateAvatarRequest) (*domain.Avatar, error) {
	if errs := validation.Validate(validation.FromCreateRequest(req)); errs != nil {
		return nil, errs
	}

	description := domain.DefaultDescription
	if req.Description != nil && *req.Description != "" {
		description = *req.Description
	}

	avatar := &domain.Avatar{
		Name:        req.Name,
		Gender:      req.Gender,
		Description: description,
		HeightInCM:  *req.HeightInCM,
		Image:       domain.Image{URL: domain.PickDefaultImage(s.rnd, s.defaultImages)},
		IsAvailable: true,
	}

	if err := s.repo.Create(ctx, avatar); err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.ActionCreateAvatar, avatar.ID, "avatar created")
	s.publish(ctx, pubsub.EventAvatarCreated, avatar)
	return avatar, nil
}

// ListAvatars lists available avatars with pagination.
func (s *avatarServiceImpl) ListAvatars(ctx context.Context, page, limit int) (*domain.ListAvatarsResponse, error) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	avatars, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	if avatars == nil {
		avatars = []domain.Avatar{}
	}

	return &domain.ListAvatarsResponse{
		Result:      avatars,
		Count:       len(avatars),
		CurrentPage: page,
		TotalPages:  totalPages(total, limit),
	}, nil
}

func totalPages(total, limit int) int {
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return pages
}

// GetAvatar retrieves an accessible avatar by ID.
func (s *avatarServiceImpl) GetAvatar(ctx context.Context, avatarID string) (*domain.Avatar, error) {
	avatar, err := s.load(ctx, avatarID)
	if err != nil {
		return nil, err
	}
	if !s.lookup.policy(avatar) {
		return nil, ErrAvatarNotAccessible
	}
	return avatar, nil
}

// load reads through the cache when one is configured.
func (s *avatarServiceImpl) load(ctx context.Context, avatarID string) (*domain.Avatar, error) {
	if s.cache == nil {
		return s.lookup.load(ctx, avatarID)
	}

	cacheKey := s.cache.BuildKeyByID(avatarID)

	// Use singleflight to prevent duplicate requests for the same key
	result, err, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
		return s.fetchWithCache(ctx, avatarID, cacheKey)
	})
	if err != nil {
		return nil, err
	}

	shared, ok := result.(*domain.Avatar)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}

	avatar := *shared
	return &avatar, nil
}

func (s *avatarServiceImpl) fetchWithCache(ctx context.Context, avatarID, cacheKey string) (*domain.Avatar, error) {
	cached, err := s.cache.Get(ctx, cacheKey)
	if err == nil {
		return &cached.Avatar, nil
	}

	if !errors.Is(err, cache.ErrCacheMiss) {
		// Log error but continue to fetch from DB
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("cache get error")
	}

	avatar, err := s.lookup.load(ctx, avatarID)
	if err != nil {
		return nil, err
	}

	cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
	defer cancel()
	if err := s.cache.Set(cacheCtx, cacheKey, &cache.AvatarCacheResult{Avatar: *avatar}, s.cacheTTL); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("cache set error")
	}

	return avatar, nil
}

// invalidate drops the cached copy of an avatar after a mutation.
func (s *avatarServiceImpl) invalidate(ctx context.Context, avatarID string) {
	if s.cache == nil {
		return
	}

	cacheKey := s.cache.BuildKeyByID(avatarID)
	s.deleteCached(ctx, cacheKey, avatarID)

	if s.reinvalidate > 0 {
		time.AfterFunc(s.reinvalidate, func() {
			s.deleteCached(ctx, cacheKey, avatarID)
		})
	}
}

func (s *avatarServiceImpl) deleteCached(ctx context.Context, cacheKey, avatarID string) {
	cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
	defer cancel()
	if err := s.cache.Delete(cacheCtx, cacheKey); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldAvatarID, avatarID).Msg("cache delete error")
	}
}

// publish emits a change event. Failures are logged and never fail the call.
func (s *avatarServiceImpl) publish(ctx context.Context, eventType string, avatar *domain.Avatar) {
	if s.events == nil {
		return
	}

	l := log.Ctx(ctx)
	event, err := pubsub.NewEvent(eventType, avatar.ID, avatar)
	if err != nil {
		l.Warn().Err(err).Str("event", eventType).Msg("failed to build avatar event")
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()
	if err := s.events.Publish(pubCtx, s.eventChannel, event); err != nil {
		l.Warn().Err(err).Str("event", eventType).Str(log.FieldAvatarID, avatar.ID).Msg("failed to publish avatar event")
	}
}

// UpdateAvatar changes the supplied fields of an accessible avatar.
func (s *avatarServiceImpl) UpdateAvatar(ctx context.Context, avatarID string, req *domain.UpdateAvatarRequest) (*domain.Avatar, error) {
	if req.Empty() {
		return nil, ErrInsufficientData
	}

	avatar, err := s.lookup.find(ctx, avatarID)
	if err != nil {
		return nil, err
	}

	req.ApplyTo(avatar)
	if errs := validation.Validate(validation.FromAvatar(avatar)); errs != nil {
		return nil, errs
	}

	if err := s.repo.Update(ctx, avatar); err != nil {
		if errors.Is(err, repository.ErrAvatarNotFound) {
			return nil, ErrAvatarNotFound
		}
		return nil, err
	}

	s.invalidate(ctx, avatarID)
	audit.Log(ctx, audit.ActionUpdateAvatar, avatarID, "avatar updated")
	s.publish(ctx, pubsub.EventAvatarUpdated, avatar)
	return avatar, nil
}

// DeleteAvatar removes an accessible avatar. Unavailable avatars are left in
// place and reported as not accessible.
func (s *avatarServiceImpl) DeleteAvatar(ctx context.Context, avatarID string) (*domain.Avatar, error) {
	if _, err := s.lookup.find(ctx, avatarID); err != nil {
		return nil, err
	}

	avatar, err := s.repo.Delete(ctx, avatarID)
	if err != nil {
		if errors.Is(err, repository.ErrAvatarNotFound) {
			return nil, ErrAvatarNotFound
		}
		return nil, err
	}

	s.invalidate(ctx, avatarID)
	audit.Log(ctx, audit.ActionDeleteAvatar, avatarID, "avatar deleted")
	s.publish(ctx, pubsub.EventAvatarDeleted, avatar)
	return avatar, nil
}

// UpdateAvatarImage replaces the profile image of an accessible avatar.
func (s *avatarServiceImpl) UpdateAvatarImage(ctx context.Context, avatarID string, raw []byte) (*domain.Avatar, error) {
	avatar, err := s.images.Replace(ctx, avatarID, raw)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, avatarID)
	audit.LogWithDetail(ctx, audit.ActionUpdateAvatarImage, avatarID, s.images.ObjectKey(avatarID), "avatar image replaced")
	s.publish(ctx, pubsub.EventAvatarImageUpdated, avatar)
	return avatar, nil
}
