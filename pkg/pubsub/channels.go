package pubsub

// ChannelAvatarEvents carries every avatar change.
const ChannelAvatarEvents = "avatar:events"

// Event types for avatar changes.
const (
	EventAvatarCreated      = "avatar.created"
	EventAvatarUpdated      = "avatar.updated"
	EventAvatarDeleted      = "avatar.deleted"
	EventAvatarImageUpdated = "avatar.image_updated"
)
