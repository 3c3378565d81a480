package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"reader-annotations/internal/domain"
	"reader-annotations/internal/position"
	"reader-annotations/internal/validation"
	apperrors "reader-annotations/pkg/errors"
	"reader-annotations/pkg/id"
	"reader-annotations/pkg/sanitize"
)

// AnnotationService implements domain.AnnotationService. Free text is
// sanitized and positions are resolved before anything reaches the store.
type AnnotationService struct {
	repo      domain.AnnotationRepository
	books     domain.BookRepository
	validator *validation.Validator
	logger    domain.Logger
	maxLength int
	timeout   time.Duration
	now       func() time.Time
}

func NewAnnotationService(
	repo domain.AnnotationRepository,
	books domain.BookRepository,
	validator *validation.Validator,
	logger domain.Logger,
	maxLength int,
	timeout time.Duration,
) *AnnotationService {
	return &AnnotationService{
		repo:      repo,
		books:     books,
		validator: validator,
		logger:    logger,
		maxLength: maxLength,
		timeout:   timeout,
		now:       time.Now,
	}
}

func (s *AnnotationService) UpsertHighlight(ctx context.Context, userID string, in *domain.HighlightInput) (*domain.Highlight, error) {
	if in == nil {
		return nil, apperrors.NewValidationError("highlight is required")
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	text := sanitize.Text(in.Text, s.maxLength)
	if text == "" {
		return nil, apperrors.NewValidationError("validation failed", "text: is empty after sanitization")
	}
	colorName, colorHex, err := s.highlightColor(in.Color, in.ColorHex)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	book, err := ownedBook(ctx, s.books, in.BookID, userID)
	if err != nil {
		return nil, err
	}
	resolved, err := position.Resolve(in.Position, book.Format)
	if err != nil {
		return nil, err
	}
	if fixed, ok := resolved.Anchor.(*domain.FixedAnchor); ok && !book.HasPage(fixed.Page) {
		return nil, apperrors.NewInvalidAnchorError("page is outside the book")
	}

	highlightID, err := id.Generate(id.PrefixHighlight)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to generate id", err)
	}
	now := s.now().UTC()
	h := &domain.Highlight{
		ID:        highlightID,
		BookID:    book.ID,
		UserID:    userID,
		Text:      text,
		ColorName: colorName,
		ColorHex:  colorHex,
		Note:      sanitize.Text(in.Note, s.maxLength),
		Position:  resolved.Position,
		AnchorKey: resolved.Key,
		CreatedAt: now,
		UpdatedAt: now,
	}

	saved, err := s.repo.UpsertHighlight(ctx, h)
	if errors.Is(err, domain.ErrConflict) {
		s.logger.Warn("Highlight upsert conflicted, retrying", "user_id", userID, "book_id", book.ID)
		saved, err = s.repo.UpsertHighlight(ctx, h)
	}
	if err != nil {
		s.logger.Error("Failed to upsert highlight", err, "user_id", userID, "book_id", book.ID)
		return nil, translate(err, "highlight")
	}

	s.logger.Info("Highlight saved", "user_id", userID, "book_id", book.ID, "highlight_id", saved.ID)
	return saved, nil
}

// highlightColor resolves a palette name and/or custom hex. A custom hex
// wins over the palette value and is stored upper-case.
func (s *AnnotationService) highlightColor(name, hex string) (string, string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	hex = strings.TrimSpace(hex)

	if hex != "" {
		if err := s.validator.Var("color_hex", hex, "hexcolor,len=7"); err != nil {
			return "", "", err
		}
		if name == "" {
			name = "custom"
		}
		return name, strings.ToUpper(hex), nil
	}
	if name == "" {
		name = domain.DefaultHighlightColor
	}
	paletteHex, ok := domain.HighlightPalette[name]
	if !ok {
		return "", "", apperrors.NewValidationError("validation failed", "color: is not a known highlight color")
	}
	return name, paletteHex, nil
}

func (s *AnnotationService) UpsertBookmark(ctx context.Context, userID, bookID string, page int, note string) (*domain.Bookmark, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	book, err := ownedBook(ctx, s.books, bookID, userID)
	if err != nil {
		return nil, err
	}
	if !book.HasPage(page) {
		return nil, apperrors.NewValidationError("validation failed", "page_number: is outside the book")
	}

	bookmarkID, err := id.Generate(id.PrefixBookmark)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to generate id", err)
	}
	now := s.now().UTC()
	b := &domain.Bookmark{
		ID:         bookmarkID,
		BookID:     book.ID,
		UserID:     userID,
		PageNumber: page,
		Note:       sanitize.Text(note, s.maxLength),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	saved, err := s.repo.UpsertBookmark(ctx, b)
	if errors.Is(err, domain.ErrConflict) {
		saved, err = s.repo.UpsertBookmark(ctx, b)
	}
	if err != nil {
		s.logger.Error("Failed to upsert bookmark", err, "user_id", userID, "book_id", book.ID)
		return nil, translate(err, "bookmark")
	}
	return saved, nil
}

// CreateAnnotation adds a margin note. Only fixed-layout books take them.
func (s *AnnotationService) CreateAnnotation(ctx context.Context, userID string, in *domain.AnnotationInput) (*domain.Annotation, error) {
	if in == nil {
		return nil, apperrors.NewValidationError("annotation is required")
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	selected := sanitize.Text(in.SelectedText, s.maxLength)
	if selected == "" {
		return nil, apperrors.NewValidationError("validation failed", "selected_text: is empty after sanitization")
	}
	color, err := s.annotationColor(in.Color)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	book, err := ownedBook(ctx, s.books, in.BookID, userID)
	if err != nil {
		return nil, err
	}
	if book.Format != domain.FormatPDF {
		return nil, apperrors.NewValidationError("margin notes are only supported on pdf books")
	}
	resolved, err := position.Resolve(in.Position, book.Format)
	if err != nil {
		return nil, err
	}
	fixed := resolved.Anchor.(*domain.FixedAnchor)
	if !book.HasPage(fixed.Page) {
		return nil, apperrors.NewInvalidAnchorError("page is outside the book")
	}

	annotationID, err := id.Generate(id.PrefixAnnotation)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to generate id", err)
	}
	now := s.now().UTC()
	a := &domain.Annotation{
		ID:           annotationID,
		BookID:       book.ID,
		UserID:       userID,
		PageNumber:   fixed.Page,
		SelectedText: selected,
		Note:         sanitize.Text(in.Note, s.maxLength),
		Color:        color,
		Position:     resolved.Position,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateAnnotation(ctx, a); err != nil {
		s.logger.Error("Failed to create annotation", err, "user_id", userID, "book_id", book.ID)
		return nil, translate(err, "annotation")
	}
	return a, nil
}

func (s *AnnotationService) UpdateAnnotation(ctx context.Context, userID, annotationID string, upd *domain.AnnotationUpdate) (*domain.Annotation, error) {
	if upd == nil || (upd.Note == nil && upd.Color == nil) {
		return nil, apperrors.NewValidationError("nothing to update")
	}
	if err := s.validator.Validate(upd); err != nil {
		return nil, err
	}

	var note, color *string
	if upd.Note != nil {
		n := sanitize.Text(*upd.Note, s.maxLength)
		note = &n
	}
	if upd.Color != nil {
		c, err := s.annotationColor(*upd.Color)
		if err != nil {
			return nil, err
		}
		color = &c
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	a, err := s.repo.UpdateAnnotation(ctx, annotationID, userID, note, color)
	if err != nil {
		return nil, translate(err, "annotation")
	}
	return a, nil
}

// annotationColor accepts a palette name or a #RRGGBB value.
func (s *AnnotationService) annotationColor(c string) (string, error) {
	c = strings.TrimSpace(c)
	if c == "" {
		return domain.DefaultHighlightColor, nil
	}
	if strings.HasPrefix(c, "#") {
		if err := s.validator.Var("color", c, "hexcolor,len=7"); err != nil {
			return "", err
		}
		return strings.ToUpper(c), nil
	}
	c = strings.ToLower(c)
	if _, ok := domain.HighlightPalette[c]; !ok {
		return "", apperrors.NewValidationError("validation failed", "color: is not a known highlight color")
	}
	return c, nil
}

// ListForBook returns every highlight, bookmark and margin note the caller
// has on the book. The three reads run concurrently.
func (s *AnnotationService) ListForBook(ctx context.Context, bookID, userID string) (*domain.BookAnnotations, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := ownedBook(ctx, s.books, bookID, userID); err != nil {
		return nil, err
	}

	out := &domain.BookAnnotations{BookID: bookID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Highlights, err = s.repo.ListHighlights(gctx, bookID, userID)
		return err
	})
	g.Go(func() error {
		var err error
		out.Bookmarks, err = s.repo.ListBookmarks(gctx, bookID, userID)
		return err
	})
	g.Go(func() error {
		var err error
		out.Annotations, err = s.repo.ListAnnotations(gctx, bookID, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to list annotations", err, "user_id", userID, "book_id", bookID)
		return nil, translate(err, "annotations")
	}
	return out, nil
}

// Delete removes one entity. Rows owned by someone else are reported as NotFound.
func (s *AnnotationService) Delete(ctx context.Context, kind domain.EntityKind, entityID, userID string) error {
	if entityID == "" {
		return apperrors.NewValidationError("id is required")
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var err error
	switch kind {
	case domain.KindHighlight:
		err = s.repo.DeleteHighlight(ctx, entityID, userID)
	case domain.KindBookmark:
		err = s.repo.DeleteBookmark(ctx, entityID, userID)
	case domain.KindAnnotation:
		err = s.repo.DeleteAnnotation(ctx, entityID, userID)
	default:
		return apperrors.NewValidationError("unknown entity kind", string(kind))
	}
	if err != nil {
		return translate(err, string(kind))
	}
	s.logger.Info("Annotation deleted", "user_id", userID, "kind", string(kind), "id", entityID)
	return nil
}
