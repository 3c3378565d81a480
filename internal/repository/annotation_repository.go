package repository

import (
	"context"
	"fmt"
	"time"

	"reader-annotations/internal/domain"
)

const highlightColumns = `id, book_id, user_id, text, color_name, color_hex, note,
	position, anchor_key, created_at, updated_at`

const bookmarkColumns = `id, book_id, user_id, page_number, note, created_at, updated_at`

const annotationColumns = `id, book_id, user_id, page_number, selected_text, note,
	color, position, created_at, updated_at`

// AnnotationRepository implements domain.AnnotationRepository on the SQL store.
// Uniqueness is enforced by the indexes in the schema; upserts resolve
// conflicts with ON CONFLICT so concurrent writers never duplicate rows.
type AnnotationRepository struct {
	store  *Store
	logger domain.Logger
}

func NewAnnotationRepository(store *Store, logger domain.Logger) domain.AnnotationRepository {
	return &AnnotationRepository{store: store, logger: logger}
}

func scanHighlight(sc scanner) (*domain.Highlight, error) {
	var (
		h         domain.Highlight
		position  string
		createdAt string
		updatedAt string
	)
	if err := sc.Scan(&h.ID, &h.BookID, &h.UserID, &h.Text, &h.ColorName, &h.ColorHex, &h.Note,
		&position, &h.AnchorKey, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	h.Position = []byte(position)

	var err error
	if h.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if h.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}

func scanBookmark(sc scanner) (*domain.Bookmark, error) {
	var (
		b         domain.Bookmark
		createdAt string
		updatedAt string
	)
	if err := sc.Scan(&b.ID, &b.BookID, &b.UserID, &b.PageNumber, &b.Note, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanAnnotation(sc scanner) (*domain.Annotation, error) {
	var (
		a         domain.Annotation
		position  string
		createdAt string
		updatedAt string
	)
	if err := sc.Scan(&a.ID, &a.BookID, &a.UserID, &a.PageNumber, &a.SelectedText, &a.Note,
		&a.Color, &position, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.Position = []byte(position)

	var err error
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpsertHighlight inserts h or, when the (book, user, anchor) identity exists,
// updates its text, color, note and position. id and created_at of an
// existing row are kept.
func (r *AnnotationRepository) UpsertHighlight(ctx context.Context, h *domain.Highlight) (*domain.Highlight, error) {
	row := r.store.queryRow(ctx, r.store.db, `
		INSERT INTO highlights (`+highlightColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (book_id, user_id, anchor_key) DO UPDATE SET
			text = excluded.text,
			color_name = excluded.color_name,
			color_hex = excluded.color_hex,
			note = excluded.note,
			position = excluded.position,
			updated_at = excluded.updated_at
		RETURNING `+highlightColumns,
		h.ID, h.BookID, h.UserID, h.Text, h.ColorName, h.ColorHex, h.Note,
		string(h.Position), h.AnchorKey, formatTime(h.CreatedAt), formatTime(h.UpdatedAt),
	)
	saved, err := scanHighlight(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("upsert highlight: %w", err)
	}
	return saved, nil
}

func (r *AnnotationRepository) ListHighlights(ctx context.Context, bookID, userID string) ([]*domain.Highlight, error) {
	rows, err := r.store.query(ctx, r.store.db,
		`SELECT `+highlightColumns+` FROM highlights
		WHERE book_id = ? AND user_id = ? ORDER BY created_at, id`, bookID, userID)
	if err != nil {
		return nil, fmt.Errorf("list highlights: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Highlight, 0)
	for rows.Next() {
		h, err := scanHighlight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan highlight: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *AnnotationRepository) DeleteHighlight(ctx context.Context, id, userID string) error {
	return r.deleteOwned(ctx, "highlights", id, userID)
}

// UpsertBookmark inserts b or replaces the note of the bookmark on the same page.
func (r *AnnotationRepository) UpsertBookmark(ctx context.Context, b *domain.Bookmark) (*domain.Bookmark, error) {
	row := r.store.queryRow(ctx, r.store.db, `
		INSERT INTO bookmarks (`+bookmarkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (book_id, user_id, page_number) DO UPDATE SET
			note = excluded.note,
			updated_at = excluded.updated_at
		RETURNING `+bookmarkColumns,
		b.ID, b.BookID, b.UserID, b.PageNumber, b.Note, formatTime(b.CreatedAt), formatTime(b.UpdatedAt),
	)
	saved, err := scanBookmark(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("upsert bookmark: %w", err)
	}
	return saved, nil
}

func (r *AnnotationRepository) ListBookmarks(ctx context.Context, bookID, userID string) ([]*domain.Bookmark, error) {
	rows, err := r.store.query(ctx, r.store.db,
		`SELECT `+bookmarkColumns+` FROM bookmarks
		WHERE book_id = ? AND user_id = ? ORDER BY page_number`, bookID, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Bookmark, 0)
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *AnnotationRepository) DeleteBookmark(ctx context.Context, id, userID string) error {
	return r.deleteOwned(ctx, "bookmarks", id, userID)
}

func (r *AnnotationRepository) CreateAnnotation(ctx context.Context, a *domain.Annotation) error {
	_, err := r.store.exec(ctx, r.store.db, `
		INSERT INTO annotations (`+annotationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.BookID, a.UserID, a.PageNumber, a.SelectedText, a.Note,
		a.Color, string(a.Position), formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert annotation: %w", err)
	}
	return nil
}

// UpdateAnnotation changes note and/or color; nil arguments keep the stored value.
func (r *AnnotationRepository) UpdateAnnotation(ctx context.Context, id, userID string, note, color *string) (*domain.Annotation, error) {
	row := r.store.queryRow(ctx, r.store.db, `
		UPDATE annotations SET
			note = COALESCE(?, note),
			color = COALESCE(?, color),
			updated_at = ?
		WHERE id = ? AND user_id = ?
		RETURNING `+annotationColumns,
		note, color, formatTime(time.Now()), id, userID,
	)
	a, err := scanAnnotation(row)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (r *AnnotationRepository) ListAnnotations(ctx context.Context, bookID, userID string) ([]*domain.Annotation, error) {
	rows, err := r.store.query(ctx, r.store.db,
		`SELECT `+annotationColumns+` FROM annotations
		WHERE book_id = ? AND user_id = ? ORDER BY page_number, created_at`, bookID, userID)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Annotation, 0)
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AnnotationRepository) DeleteAnnotation(ctx context.Context, id, userID string) error {
	return r.deleteOwned(ctx, "annotations", id, userID)
}

// deleteOwned removes the row only when both id and owner match.
func (r *AnnotationRepository) deleteOwned(ctx context.Context, table, id, userID string) error {
	res, err := r.store.exec(ctx, r.store.db, `DELETE FROM `+table+` WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return mustAffect(res)
}
