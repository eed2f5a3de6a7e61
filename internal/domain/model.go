package domain

import (
	"time"
)

// AvatarModel is the GORM model for the avatars table.
type AvatarModel struct {
	ID          string    `gorm:"type:varchar(26);primaryKey"`
	Name        string    `gorm:"type:varchar(100);not null"`
	Gender      string    `gorm:"type:varchar(1);not null"`
	Description string    `gorm:"type:varchar(500);not null"`
	HeightInCM  float64   `gorm:"not null"`
	ImageRef    string    `gorm:"type:varchar(128)"`
	ImageURL    string    `gorm:"type:varchar(1024);not null"`
	IsAvailable bool      `gorm:"index;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for AvatarModel.
func (AvatarModel) TableName() string {
	return "avatars"
}

// ToDomain converts AvatarModel to domain Avatar.
func (m *AvatarModel) ToDomain() *Avatar {
	return &Avatar{
		ID:          m.ID,
		Name:        m.Name,
		Gender:      m.Gender,
		Description: m.Description,
		HeightInCM:  m.HeightInCM,
		Image:       Image{ImageRef: m.ImageRef, URL: m.ImageURL},
		IsAvailable: m.IsAvailable,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// AvatarToModel converts domain Avatar to AvatarModel.
func AvatarToModel(a *Avatar) *AvatarModel {
	return &AvatarModel{
		ID:          a.ID,
		Name:        a.Name,
		Gender:      a.Gender,
		Description: a.Description,
		HeightInCM:  a.HeightInCM,
		ImageRef:    a.Image.ImageRef,
		ImageURL:    a.Image.URL,
		IsAvailable: a.IsAvailable,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// ImageDocument is the embedded image sub-document.
type ImageDocument struct {
	ImageRef string `bson:"imageRef,omitempty"`
	URL      string `bson:"url"`
}

// AvatarDocument is the MongoDB document for the avatars collection.
type AvatarDocument struct {
	ID          string        `bson:"_id"`
	Name        string        `bson:"name"`
	Gender      string        `bson:"gender"`
	Description string        `bson:"description"`
	HeightInCM  float64       `bson:"heightInCM"`
	Image       ImageDocument `bson:"image"`
	IsAvailable bool          `bson:"isAvailable"`
	CreatedAt   time.Time     `bson:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt"`
}

// ToDomain converts AvatarDocument to domain Avatar.
func (d *AvatarDocument) ToDomain() *Avatar {
	return &Avatar{
		ID:          d.ID,
		Name:        d.Name,
		Gender:      d.Gender,
		Description: d.Description,
		HeightInCM:  d.HeightInCM,
		Image:       Image{ImageRef: d.Image.ImageRef, URL: d.Image.URL},
		IsAvailable: d.IsAvailable,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

// AvatarToDocument converts domain Avatar to AvatarDocument.
func AvatarToDocument(a *Avatar) *AvatarDocument {
	return &AvatarDocument{
		ID:          a.ID,
		Name:        a.Name,
		Gender:      a.Gender,
		Description: a.Description,
		HeightInCM:  a.HeightInCM,
		Image:       ImageDocument{ImageRef: a.Image.ImageRef, URL: a.Image.URL},
		IsAvailable: a.IsAvailable,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}
