package service

import (
	"context"
	"errors"
	"time"

	"reader-annotations/internal/domain"
	apperrors "reader-annotations/pkg/errors"
)

// translate maps repository errors onto the application error taxonomy.
// AppErrors pass through unchanged.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return apperrors.NewNotFoundError(what + " not found")
	case errors.Is(err, domain.ErrSessionMismatch):
		return apperrors.NewValidationError("validation failed", err.Error())
	case errors.Is(err, domain.ErrConflict):
		return apperrors.NewDuplicateConflictError(what+" was written concurrently, retry", err)
	default:
		return apperrors.NewPersistenceUnavailableError("failed to access "+what, err)
	}
}

// withTimeout bounds a persistence call. A zero timeout leaves ctx alone.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// ownedBook loads a book the caller owns; anything else is NotFound.
func ownedBook(ctx context.Context, books domain.BookRepository, bookID, userID string) (*domain.Book, error) {
	if bookID == "" {
		return nil, apperrors.NewValidationError("book_id is required")
	}
	book, err := books.Get(ctx, bookID, userID)
	if err != nil {
		return nil, translate(err, "book")
	}
	return book, nil
}
