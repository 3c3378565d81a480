package domain

import (
	"context"
	"time"
)

// BookFormat is the layout family of a document.
type BookFormat string

const (
	FormatPDF  BookFormat = "pdf"
	FormatEPUB BookFormat = "epub"
)

// Valid reports whether f is a supported format.
func (f BookFormat) Valid() bool {
	return f == FormatPDF || f == FormatEPUB
}

// AnchorSource returns the anchor variant a book of this format accepts.
func (f BookFormat) AnchorSource() AnchorSource {
	if f == FormatEPUB {
		return SourceFlow
	}
	return SourceFixed
}

// BookStatus tracks where a reader is with a book.
type BookStatus string

const (
	StatusUnread     BookStatus = "unread"
	StatusReading    BookStatus = "reading"
	StatusRead       BookStatus = "read"
	StatusWantToRead BookStatus = "want-to-read"
)

// Valid reports whether s is a known status.
func (s BookStatus) Valid() bool {
	switch s {
	case StatusUnread, StatusReading, StatusRead, StatusWantToRead:
		return true
	}
	return false
}

// Book identifies a document owned by exactly one user.
type Book struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Format      BookFormat `json:"format"`
	CurrentPage int        `json:"current_page"`
	TotalPages  int        `json:"total_pages"`
	LastReadAt  *time.Time `json:"last_read_at,omitempty"`
	Status      BookStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// HasPage reports whether page lies inside the book. A book with an unknown
// page count accepts any positive page.
func (b *Book) HasPage(page int) bool {
	if page < 1 {
		return false
	}
	return b.TotalPages <= 0 || page <= b.TotalPages
}

// BookInput is the caller-supplied part of a new book.
type BookInput struct {
	Title      string     `json:"title" validate:"required,max=500"`
	Format     BookFormat `json:"format" validate:"required,oneof=pdf epub"`
	TotalPages int        `json:"total_pages" validate:"gte=0"`
	Status     BookStatus `json:"status,omitempty" validate:"omitempty,oneof=unread reading read want-to-read"`
}

// Checkpoint is a best-effort snapshot of an in-progress reading session.
type Checkpoint struct {
	UserID         string
	BookID         string
	CurrentPage    int
	ElapsedSeconds int
	PagesSoFar     int
	At             time.Time
}

// BookRepository persists books and their reading progress.
type BookRepository interface {
	Create(ctx context.Context, book *Book) error
	Get(ctx context.Context, id, userID string) (*Book, error)
	List(ctx context.Context, userID string) ([]*Book, error)
	UpdateStatus(ctx context.Context, id, userID string, status BookStatus) (*Book, error)
	Delete(ctx context.Context, id, userID string) error
	SaveCheckpoint(ctx context.Context, cp Checkpoint) error
}

// BookService defines the use-case operations for books.
type BookService interface {
	CreateBook(ctx context.Context, userID string, in *BookInput) (*Book, error)
	GetBook(ctx context.Context, id, userID string) (*Book, error)
	ListBooks(ctx context.Context, userID string) ([]*Book, error)
	UpdateBookStatus(ctx context.Context, id, userID string, status BookStatus) (*Book, error)
	DeleteBook(ctx context.Context, id, userID string) error
}
