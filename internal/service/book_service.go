package service

import (
	"context"
	"time"

	"reader-annotations/internal/domain"
	"reader-annotations/internal/validation"
	apperrors "reader-annotations/pkg/errors"
	"reader-annotations/pkg/id"
	"reader-annotations/pkg/sanitize"
)

type BookService struct {
	repo      domain.BookRepository
	validator *validation.Validator
	logger    domain.Logger
	maxLength int
	timeout   time.Duration
}

func NewBookService(repo domain.BookRepository, validator *validation.Validator, logger domain.Logger, maxLength int, timeout time.Duration) *BookService {
	return &BookService{
		repo:      repo,
		validator: validator,
		logger:    logger,
		maxLength: maxLength,
		timeout:   timeout,
	}
}

func (s *BookService) CreateBook(ctx context.Context, userID string, in *domain.BookInput) (*domain.Book, error) {
	if in == nil {
		return nil, apperrors.NewValidationError("book is required")
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	title := sanitize.Text(in.Title, s.maxLength)
	if title == "" {
		return nil, apperrors.NewValidationError("validation failed", "title: is empty after sanitization")
	}
	status := in.Status
	if status == "" {
		status = domain.StatusUnread
	}

	bookID, err := id.Generate(id.PrefixBook)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to generate id", err)
	}
	now := time.Now().UTC()
	book := &domain.Book{
		ID:         bookID,
		UserID:     userID,
		Title:      title,
		Format:     in.Format,
		TotalPages: in.TotalPages,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.Create(ctx, book); err != nil {
		s.logger.Error("Failed to create book", err, "user_id", userID)
		return nil, translate(err, "book")
	}

	s.logger.Info("Book created", "user_id", userID, "book_id", book.ID, "format", string(book.Format))
	return book, nil
}

func (s *BookService) GetBook(ctx context.Context, bookID, userID string) (*domain.Book, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return ownedBook(ctx, s.repo, bookID, userID)
}

func (s *BookService) ListBooks(ctx context.Context, userID string) ([]*domain.Book, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	books, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, translate(err, "books")
	}
	return books, nil
}

func (s *BookService) UpdateBookStatus(ctx context.Context, bookID, userID string, status domain.BookStatus) (*domain.Book, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("validation failed", "status: must be one of unread, reading, read, want-to-read")
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	book, err := s.repo.UpdateStatus(ctx, bookID, userID, status)
	if err != nil {
		return nil, translate(err, "book")
	}
	return book, nil
}

// DeleteBook removes the book with all of its highlights, bookmarks,
// margin notes and sessions.
func (s *BookService) DeleteBook(ctx context.Context, bookID, userID string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.Delete(ctx, bookID, userID); err != nil {
		return translate(err, "book")
	}
	s.logger.Info("Book deleted", "user_id", userID, "book_id", bookID)
	return nil
}
