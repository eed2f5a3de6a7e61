package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// Ctx returns the request-scoped logger, falling back to the global one.
func Ctx(ctx context.Context) *zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return &l
	}
	l := L()
	return &l
}

// WithAvatarID returns a context whose logger carries the avatar id.
func WithAvatarID(ctx context.Context, avatarID string) context.Context {
	l := Ctx(ctx).With().Str(FieldAvatarID, avatarID).Logger()
	return WithLogger(ctx, l)
}
