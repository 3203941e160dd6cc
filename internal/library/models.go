package library

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// MediaType distinguishes still images from video clips.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"}

var videoExtensions = []string{".mp4", ".mov", ".webm", ".mkv"}

// MediaTypeFor classifies path by extension. ok is false for unsupported files.
func MediaTypeFor(path string) (MediaType, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case slices.Contains(imageExtensions, ext):
		return MediaImage, true
	case slices.Contains(videoExtensions, ext):
		return MediaVideo, true
	default:
		return "", false
	}
}

// Image is one library entry.
type Image struct {
	ID          int64      `json:"id"`
	Filename    string     `json:"filename"`
	Filepath    string     `json:"filepath"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	MediaType   MediaType  `json:"media_type"`
	Size        int64      `json:"file_size"`
	Favorite    bool       `json:"is_favorite"`
	BoardIDs    []int64    `json:"board_ids"`
	AnalyzedAt  *time.Time `json:"analyzed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Analyzed reports whether the image has an analysis recorded.
func (img *Image) Analyzed() bool {
	return img != nil && img.AnalyzedAt != nil
}

// NewImage describes a file being registered.
type NewImage struct {
	Filepath  string
	MediaType MediaType
	Size      int64
}

// ListFilter narrows ListImages. Zero values mean no filter.
type ListFilter struct {
	BoardID       int64
	FavoritesOnly bool
	Unanalyzed    bool
	Tag           string
	Limit         int
}

// TagCount is a tag with the number of images carrying it.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
