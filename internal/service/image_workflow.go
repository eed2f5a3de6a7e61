package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/weiawesome/avatar-service/internal/domain"
	"github.com/weiawesome/avatar-service/internal/imagecodec"
	"github.com/weiawesome/avatar-service/internal/repository"
	"github.com/weiawesome/avatar-service/pkg/log"
	"github.com/weiawesome/avatar-service/pkg/storage"
)

// ImageWorkflow converts an uploaded image, stores it under a key derived
// from the avatar id and points the avatar at the stored object.
type ImageWorkflow struct {
	lookup    avatarLookup
	repo      repository.AvatarRepository
	storage   storage.Storage
	codec     imagecodec.Codec
	keyPrefix string
}

// NewImageWorkflow creates an image workflow. A nil policy means
// domain.IsAccessible.
func NewImageWorkflow(
	repo repository.AvatarRepository,
	store storage.Storage,
	codec imagecodec.Codec,
	keyPrefix string,
	policy AccessPolicy,
) *ImageWorkflow {
	return &ImageWorkflow{
		lookup:    newAvatarLookup(repo, policy),
		repo:      repo,
		storage:   store,
		codec:     codec,
		keyPrefix: keyPrefix,
	}
}

// ObjectKey is the storage key of an avatar's image. Uploads for the same
// avatar overwrite each other.
func (w *ImageWorkflow) ObjectKey(avatarID string) string {
	return w.keyPrefix + avatarID + "." + w.codec.Extension()
}

// Replace stores raw as the avatar's image. Conversion or upload failures
// wrap ErrUpstreamStorage and leave the record untouched.
func (w *ImageWorkflow) Replace(ctx context.Context, avatarID string, raw []byte) (*domain.Avatar, error) {
	if _, err := w.lookup.find(ctx, avatarID); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrImageMissing
	}

	l := log.Ctx(ctx)

	converted, err := w.codec.Convert(raw)
	if err != nil {
		l.Error().Err(err).Str(log.FieldAvatarID, avatarID).Msg("failed to convert avatar image")
		return nil, fmt.Errorf("%w: %w", ErrUpstreamStorage, err)
	}

	key := w.ObjectKey(avatarID)
	result, err := w.storage.Put(ctx, key, bytes.NewReader(converted), int64(len(converted)), w.codec.ContentType())
	if err != nil {
		l.Error().Err(err).Str(log.FieldObjectKey, key).Msg("failed to upload avatar image")
		return nil, fmt.Errorf("%w: %w", ErrUpstreamStorage, err)
	}

	image := domain.Image{
		ImageRef: strings.ReplaceAll(result.ETag, `"`, ""),
		URL:      result.URL,
	}

	avatar, err := w.repo.UpdateImage(ctx, avatarID, image)
	if err != nil {
		if errors.Is(err, repository.ErrAvatarNotFound) {
			return nil, ErrAvatarNotFound
		}
		return nil, fmt.Errorf("failed to save avatar image: %w", err)
	}

	l.Debug().Str(log.FieldObjectKey, key).Int("bytes", len(converted)).Msg("avatar image stored")
	return avatar, nil
}
