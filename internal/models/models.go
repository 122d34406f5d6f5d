// internal/models/models.go
package models

import (
	"strings"

	"github.com/google/uuid"
)

const (
	BatchPending   = "pending"
	BatchCompleted = "completed"
)

// Row is one record of the input feed: a product name and its source
// image URLs, in feed order.
type Row struct {
	ProductName string
	ImageURLs   []string
}

// ImageArtifact is one successfully fetched and compressed image.
type ImageArtifact struct {
	OriginalURL    string `json:"original_url"`
	CompressedPath string `json:"compressed_path"`
	ImageName      string `json:"image_name"`
}

// Product groups the artifacts of one feed row. Name is already
// sanitized; Images keeps the URL order of the row.
type Product struct {
	ID      uuid.UUID       `db:"id"`
	BatchID uuid.UUID       `db:"batch_id"`
	Name    string          `db:"name"`
	Images  []ImageArtifact `db:"images"`
}

// Batch tracks one submitted feed run.
type Batch struct {
	ID     uuid.UUID `db:"id"`
	Status string    `db:"status"` // pending, completed
}

// SanitizeName collapses whitespace in a product name to underscores so
// it is safe as a filename component and a lookup key.
func SanitizeName(name string) string {
	return strings.Join(strings.Fields(name), "_")
}
