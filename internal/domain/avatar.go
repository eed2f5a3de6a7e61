package domain

import (
	"time"
)

// Gender values accepted for an avatar.
const (
	GenderMale   = "M"
	GenderFemale = "F"
	GenderOther  = "O"
)

// DefaultDescription is stored when no description is supplied.
const DefaultDescription = "N/A"

// Image points at the avatar's profile picture in object storage.
type Image struct {
	// ImageRef is the storage integrity tag of an uploaded image; empty for placeholders.
	ImageRef string `json:"imageRef,omitempty"`
	URL      string `json:"url"`
}

// Avatar is a virtual profile record.
type Avatar struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Gender      string    `json:"gender"`
	Description string    `json:"description"`
	HeightInCM  float64   `json:"heightInCM"`
	Image       Image     `json:"image"`
	IsAvailable bool      `json:"isAvailable"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// IsAccessible reports whether callers may see or change the avatar.
// Unavailable avatars exist but are hidden.
func IsAccessible(a *Avatar) bool {
	return a != nil && a.IsAvailable
}

// CreateAvatarRequest is the body of a create call.
type CreateAvatarRequest struct {
	Name        string   `json:"name"`
	Gender      string   `json:"gender"`
	Description *string  `json:"description"`
	HeightInCM  *float64 `json:"heightInCM"`
}

// UpdateAvatarRequest is the body of a field update. Zero values mean
// "leave unchanged".
type UpdateAvatarRequest struct {
	Name        string  `json:"name"`
	Gender      string  `json:"gender"`
	Description string  `json:"description"`
	HeightInCM  float64 `json:"heightInCM"`
}

// Empty reports whether none of the updatable fields is supplied.
func (r *UpdateAvatarRequest) Empty() bool {
	return r.Name == "" && r.Gender == "" && r.Description == "" && r.HeightInCM == 0
}

// ApplyTo merges the supplied fields onto a.
func (r *UpdateAvatarRequest) ApplyTo(a *Avatar) {
	if r.Name != "" {
		a.Name = r.Name
	}
	if r.Gender != "" {
		a.Gender = r.Gender
	}
	if r.Description != "" {
		a.Description = r.Description
	}
	if r.HeightInCM != 0 {
		a.HeightInCM = r.HeightInCM
	}
}

// AvatarEnvelope wraps a single record in response payloads.
type AvatarEnvelope struct {
	Avatar *Avatar `json:"avatar"`
}

// ListAvatarsResponse is one page of available avatars.
type ListAvatarsResponse struct {
	Result      []Avatar `json:"result"`
	Count       int      `json:"count"`
	CurrentPage int      `json:"currentPage"`
	TotalPages  int      `json:"totalPages"`
}
