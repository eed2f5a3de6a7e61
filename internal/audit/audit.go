package audit

import (
	"context"

	"github.com/weiawesome/avatar-service/pkg/log"
)

// Audit actions for avatar-service.
const (
	ActionCreateAvatar      = "avatar.create"
	ActionUpdateAvatar      = "avatar.update"
	ActionDeleteAvatar      = "avatar.delete"
	ActionUpdateAvatarImage = "avatar.update_image"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, avatarID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldAvatarID, avatarID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, avatarID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldAvatarID, avatarID).
		Str(FieldDetail, detail).
		Msg(msg)
}
