package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EntityKind names the annotation tables a delete can target.
type EntityKind string

const (
	KindHighlight  EntityKind = "highlight"
	KindBookmark   EntityKind = "bookmark"
	KindAnnotation EntityKind = "annotation"
)

// DefaultHighlightColor is used when a caller sends no color.
const DefaultHighlightColor = "yellow"

// HighlightPalette maps the named highlight colors to their hex values.
var HighlightPalette = map[string]string{
	"yellow": "#FFEB3B",
	"green":  "#A5D6A7",
	"blue":   "#90CAF9",
	"pink":   "#F48FB1",
	"purple": "#CE93D8",
	"orange": "#FFCC80",
}

// Highlight represents a user's saved excerpt from a book.
type Highlight struct {
	ID        string          `json:"id"`
	BookID    string          `json:"book_id"`
	UserID    string          `json:"user_id"`
	Text      string          `json:"text"`
	ColorName string          `json:"color"`
	ColorHex  string          `json:"color_hex"`
	Note      string          `json:"note,omitempty"`
	Position  json.RawMessage `json:"position"`
	AnchorKey string          `json:"-"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// HighlightInput is an upsert request for a highlight.
type HighlightInput struct {
	BookID   string          `json:"-"`
	Text     string          `json:"text" validate:"required"`
	Color    string          `json:"color,omitempty" validate:"omitempty,max=32"`
	ColorHex string          `json:"color_hex,omitempty" validate:"omitempty,hexcolor,len=7"`
	Note     string          `json:"note,omitempty"`
	Position json.RawMessage `json:"position" validate:"required"`
}

// Bookmark marks a page; one per (book, user, page).
type Bookmark struct {
	ID         string    `json:"id"`
	BookID     string    `json:"book_id"`
	UserID     string    `json:"user_id"`
	PageNumber int       `json:"page_number"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Annotation is a margin note on a fixed-layout page.
type Annotation struct {
	ID           string          `json:"id"`
	BookID       string          `json:"book_id"`
	UserID       string          `json:"user_id"`
	PageNumber   int             `json:"page_number"`
	SelectedText string          `json:"selected_text"`
	Note         string          `json:"note,omitempty"`
	Color        string          `json:"color"`
	Position     json.RawMessage `json:"position"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// AnnotationInput creates a margin note.
type AnnotationInput struct {
	BookID       string          `json:"-"`
	SelectedText string          `json:"selected_text" validate:"required"`
	Note         string          `json:"note,omitempty"`
	Color        string          `json:"color,omitempty" validate:"omitempty,max=32"`
	Position     json.RawMessage `json:"position" validate:"required"`
}

// AnnotationUpdate changes the mutable fields of a margin note; nil leaves a field alone.
type AnnotationUpdate struct {
	Note  *string `json:"note,omitempty"`
	Color *string `json:"color,omitempty" validate:"omitempty,max=32"`
}

// BookAnnotations is everything one user has attached to one book.
type BookAnnotations struct {
	BookID      string        `json:"book_id"`
	Highlights  []*Highlight  `json:"highlights"`
	Bookmarks   []*Bookmark   `json:"bookmarks"`
	Annotations []*Annotation `json:"annotations"`
}

// AnnotationRepository defines persistence operations for highlights,
// bookmarks and margin notes. Every read and delete is scoped to the owner.
type AnnotationRepository interface {
	UpsertHighlight(ctx context.Context, h *Highlight) (*Highlight, error)
	ListHighlights(ctx context.Context, bookID, userID string) ([]*Highlight, error)
	DeleteHighlight(ctx context.Context, id, userID string) error

	UpsertBookmark(ctx context.Context, b *Bookmark) (*Bookmark, error)
	ListBookmarks(ctx context.Context, bookID, userID string) ([]*Bookmark, error)
	DeleteBookmark(ctx context.Context, id, userID string) error

	CreateAnnotation(ctx context.Context, a *Annotation) error
	UpdateAnnotation(ctx context.Context, id, userID string, note, color *string) (*Annotation, error)
	ListAnnotations(ctx context.Context, bookID, userID string) ([]*Annotation, error)
	DeleteAnnotation(ctx context.Context, id, userID string) error
}

// AnnotationService defines the use-case operations for annotations.
type AnnotationService interface {
	UpsertHighlight(ctx context.Context, userID string, in *HighlightInput) (*Highlight, error)
	UpsertBookmark(ctx context.Context, userID, bookID string, page int, note string) (*Bookmark, error)
	CreateAnnotation(ctx context.Context, userID string, in *AnnotationInput) (*Annotation, error)
	UpdateAnnotation(ctx context.Context, userID, id string, upd *AnnotationUpdate) (*Annotation, error)
	ListForBook(ctx context.Context, bookID, userID string) (*BookAnnotations, error)
	Delete(ctx context.Context, kind EntityKind, id, userID string) error
}
