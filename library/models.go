package library

import (
	"time"

	"gorm.io/datatypes"
)

// Project is one saved manga project: the generated script, the character
// sheet and the panel-id → image-URL map, stored as JSON documents. Writes are
// whole-record, last-write-wins; the documents are opaque to the store.
type Project struct {
	ID         string         `gorm:"primaryKey;size:36" json:"id"`
	Title      string         `gorm:"size:255" json:"title"`
	Script     datatypes.JSON `gorm:"type:json" json:"script,omitempty"`
	Characters datatypes.JSON `gorm:"type:json" json:"characters,omitempty"`
	Images     datatypes.JSON `gorm:"type:json" json:"images,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `gorm:"index" json:"updated_at"`
}

func (Project) TableName() string {
	return "projects"
}

// ProjectSummary is the listing shape: enough to render a library card without
// loading the full documents.
type ProjectSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	UpdatedAt    time.Time `json:"updated_at"`
	ThumbnailURL *string   `json:"thumbnail_url,omitempty"`
	PanelCount   int       `json:"panel_count"`
}
