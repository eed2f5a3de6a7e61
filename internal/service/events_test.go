package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/avatar-service/internal/domain"
	"github.com/weiawesome/avatar-service/pkg/pubsub"
)

func TestMutationsPublishEvents(t *testing.T) {
	repo := newMemoryRepo()
	store := &fakeStorage{etag: `"abc123"`}
	publisher := &recordingPublisher{}
	svc := NewAvatarService(repo, NewImageWorkflow(repo, store, &fakeCodec{}, "", nil), nil, Config{
		Events: publisher,
	})
	ctx := context.Background()

	created, err := svc.CreateAvatar(ctx, &domain.CreateAvatarRequest{Name: "Rex", Gender: "M", HeightInCM: floatPtr(180)})
	require.NoError(t, err)
	_, err = svc.UpdateAvatar(ctx, created.ID, &domain.UpdateAvatarRequest{Description: "tall"})
	require.NoError(t, err)
	_, err = svc.UpdateAvatarImage(ctx, created.ID, []byte("raw"))
	require.NoError(t, err)
	_, err = svc.DeleteAvatar(ctx, created.ID)
	require.NoError(t, err)

	// failed calls publish nothing
	_, err = svc.DeleteAvatar(ctx, created.ID)
	require.ErrorIs(t, err, ErrAvatarNotFound)

	require.Len(t, publisher.events, 4)
	var types []string
	for i, ev := range publisher.events {
		types = append(types, ev.Type)
		assert.Equal(t, created.ID, ev.AvatarID)
		assert.Equal(t, pubsub.ChannelAvatarEvents, publisher.channels[i])
	}
	assert.Equal(t, []string{
		pubsub.EventAvatarCreated,
		pubsub.EventAvatarUpdated,
		pubsub.EventAvatarImageUpdated,
		pubsub.EventAvatarDeleted,
	}, types)

	var payload domain.Avatar
	require.NoError(t, publisher.events[1].UnmarshalPayload(&payload))
	assert.Equal(t, "tall", payload.Description)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewAvatarService(repo, nil, nil, Config{
		Events: &recordingPublisher{err: errors.New("redis down")},
	})

	_, err := svc.CreateAvatar(context.Background(), &domain.CreateAvatarRequest{Name: "Rex", Gender: "M", HeightInCM: floatPtr(180)})
	assert.NoError(t, err)
}
