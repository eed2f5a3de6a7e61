package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/weiawesome/avatar-service/internal/domain"
	"github.com/weiawesome/avatar-service/internal/repository"
	"github.com/weiawesome/avatar-service/pkg/pubsub"
	"github.com/weiawesome/avatar-service/pkg/storage"
)

type memoryRepo struct {
	mu      sync.Mutex
	avatars map[string]domain.Avatar
	gets    int
	deletes int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{avatars: map[string]domain.Avatar{}}
}

func (r *memoryRepo) put(a domain.Avatar) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.avatars[a.ID] = a
}

func (r *memoryRepo) Create(_ context.Context, a *domain.Avatar) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = repository.NewID()
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	r.avatars[a.ID] = *a
	return nil
}

func (r *memoryRepo) List(_ context.Context, page, limit int) ([]domain.Avatar, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []domain.Avatar
	for _, a := range r.avatars {
		if a.IsAvailable {
			all = append(all, a)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	start := repository.Offset(page, limit)
	if start > len(all) {
		start = len(all)
	}
	end := len(all)
	if limit < end-start {
		end = start + limit
	}
	return append([]domain.Avatar{}, all[start:end]...), len(all), nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*domain.Avatar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	a, ok := r.avatars[id]
	if !ok {
		return nil, repository.ErrAvatarNotFound
	}
	return &a, nil
}

func (r *memoryRepo) Update(_ context.Context, a *domain.Avatar) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.avatars[a.ID]; !ok {
		return repository.ErrAvatarNotFound
	}
	a.UpdatedAt = time.Now().UTC()
	r.avatars[a.ID] = *a
	return nil
}

func (r *memoryRepo) UpdateImage(_ context.Context, id string, img domain.Image) (*domain.Avatar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.avatars[id]
	if !ok {
		return nil, repository.ErrAvatarNotFound
	}
	a.Image = img
	r.avatars[id] = a
	return &a, nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) (*domain.Avatar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.avatars[id]
	if !ok {
		return nil, repository.ErrAvatarNotFound
	}
	r.deletes++
	delete(r.avatars, id)
	return &a, nil
}

func (r *memoryRepo) EnsureSchema(context.Context) error { return nil }

type putCall struct {
	key         string
	body        []byte
	contentType string
}

type fakeStorage struct {
	mu   sync.Mutex
	puts []putCall
	etag string
	err  error
}

func (s *fakeStorage) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) (*storage.PutResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, putCall{key: key, body: body, contentType: contentType})
	return &storage.PutResult{Key: key, ETag: s.etag, URL: s.URL(key)}, nil
}

func (s *fakeStorage) URL(key string) string {
	return "https://bucket.example.com/" + key
}

type fakeCodec struct {
	err error
}

var errBadImage = errors.New("bad image")

func (c *fakeCodec) Convert(raw []byte) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	return append([]byte("webp:"), raw...), nil
}

func (c *fakeCodec) Extension() string   { return "webp" }
func (c *fakeCodec) ContentType() string { return "image/webp" }

type fixedRand int

func (f fixedRand) IntN(int) int { return int(f) }

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
	events   []*pubsub.Event
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, event *pubsub.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.channels = append(p.channels, channel)
	p.events = append(p.events, event)
	return nil
}
