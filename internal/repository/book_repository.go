package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"reader-annotations/internal/domain"
)

// bookColumns must match the scan order in scanBook.
const bookColumns = `id, user_id, title, format, current_page, total_pages,
	last_read_at, status, created_at, updated_at`

// BookRepository implements domain.BookRepository on the SQL store.
type BookRepository struct {
	store  *Store
	logger domain.Logger
}

func NewBookRepository(store *Store, logger domain.Logger) domain.BookRepository {
	return &BookRepository{store: store, logger: logger}
}

func scanBook(sc scanner) (*domain.Book, error) {
	var (
		b          domain.Book
		format     string
		status     string
		lastReadAt sql.NullString
		createdAt  string
		updatedAt  string
	)
	if err := sc.Scan(&b.ID, &b.UserID, &b.Title, &format, &b.CurrentPage, &b.TotalPages,
		&lastReadAt, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	b.Format = domain.BookFormat(format)
	b.Status = domain.BookStatus(status)

	var err error
	if b.LastReadAt, err = parseNullableTime(lastReadAt); err != nil {
		return nil, err
	}
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookRepository) Create(ctx context.Context, b *domain.Book) error {
	_, err := r.store.exec(ctx, r.store.db, `
		INSERT INTO books (`+bookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.Title, string(b.Format), b.CurrentPage, b.TotalPages,
		nullTime(b.LastReadAt), string(b.Status), formatTime(b.CreatedAt), formatTime(b.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (r *BookRepository) Get(ctx context.Context, id, userID string) (*domain.Book, error) {
	row := r.store.queryRow(ctx, r.store.db,
		`SELECT `+bookColumns+` FROM books WHERE id = ? AND user_id = ?`, id, userID)
	b, err := scanBook(row)
	if err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

func (r *BookRepository) List(ctx context.Context, userID string) ([]*domain.Book, error) {
	rows, err := r.store.query(ctx, r.store.db,
		`SELECT `+bookColumns+` FROM books WHERE user_id = ? ORDER BY updated_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	books := make([]*domain.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (r *BookRepository) UpdateStatus(ctx context.Context, id, userID string, status domain.BookStatus) (*domain.Book, error) {
	res, err := r.store.exec(ctx, r.store.db,
		`UPDATE books SET status = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		string(status), formatTime(time.Now()), id, userID)
	if err != nil {
		return nil, fmt.Errorf("update book status: %w", err)
	}
	if err := mustAffect(res); err != nil {
		return nil, err
	}
	return r.Get(ctx, id, userID)
}

// Delete removes the book and everything attached to it in one transaction.
// The foreign keys cascade as well; the explicit deletes keep the behaviour
// identical on databases where cascades are disabled.
func (r *BookRepository) Delete(ctx context.Context, id, userID string) error {
	return r.store.withTx(ctx, func(tx *sql.Tx) error {
		var owned string
		err := r.store.queryRow(ctx, tx,
			`SELECT id FROM books WHERE id = ? AND user_id = ?`+r.store.rowLock, id, userID).Scan(&owned)
		if err != nil {
			return notFound(err)
		}

		for _, table := range []string{"highlights", "bookmarks", "annotations", "reading_sessions"} {
			if _, err := r.store.exec(ctx, tx, `DELETE FROM `+table+` WHERE book_id = ?`, id); err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}

		res, err := r.store.exec(ctx, tx, `DELETE FROM books WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("delete book: %w", err)
		}
		return mustAffect(res)
	})
}

// SaveCheckpoint records in-progress reading position. A book that was
// unread moves to reading; read books keep their status.
func (r *BookRepository) SaveCheckpoint(ctx context.Context, cp domain.Checkpoint) error {
	at := formatTime(cp.At)
	res, err := r.store.exec(ctx, r.store.db, `
		UPDATE books SET
			current_page = ?,
			last_read_at = ?,
			status = CASE WHEN status IN ('unread', 'want-to-read') THEN 'reading' ELSE status END,
			updated_at = ?
		WHERE id = ? AND user_id = ?`,
		cp.CurrentPage, at, at, cp.BookID, cp.UserID)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return mustAffect(res)
}
