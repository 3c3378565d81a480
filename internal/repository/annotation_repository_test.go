package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reader-annotations/internal/domain"
)

func newHighlight(bookID, userID, anchorKey, text string) *domain.Highlight {
	now := time.Now().UTC()
	return &domain.Highlight{
		ID:        fmt.Sprintf("hl-%d", now.UnixNano()),
		BookID:    bookID,
		UserID:    userID,
		Text:      text,
		ColorName: "yellow",
		ColorHex:  "#FFEB3B",
		Position:  []byte(`{"page":1,"rects":[{"x":0.1,"y":0.1,"width":0.2,"height":0.05}]}`),
		AnchorKey: anchorKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestUpsertHighlight_SameAnchorKeepsOneRow(t *testing.T) {
	s := newTestStore(t)
	repo := NewAnnotationRepository(s, mockLogger{})
	ctx := context.Background()
	b := seedBook(t, s, "user-1", domain.FormatPDF, 10)

	first, err := repo.UpsertHighlight(ctx, newHighlight(b.ID, "user-1", "pdf:1:a", "hello"))
	require.NoError(t, err)

	again := newHighlight(b.ID, "user-1", "pdf:1:a", "hello")
	again.ID = "hl-other"
	again.ColorName = "green"
	again.ColorHex = "#A5D6A7"
	second, err := repo.UpsertHighlight(ctx, again)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "green", second.ColorName)

	list, err := repo.ListHighlights(ctx, b.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.JSONEq(t, string(again.Position), string(list[0].Position))
}

func TestUpsertHighlight_DifferentAnchorsAndOwners(t *testing.T) {
	s := newTestStore(t)
	repo := NewAnnotationRepository(s, mockLogger{})
	ctx := context.Background()
	b := seedBook(t, s, "user-1", domain.FormatEPUB, 0)

	_, err := repo.UpsertHighlight(ctx, newHighlight(b.ID, "user-1", "epub:a", "one"))
	require.NoError(t, err)
	h := newHighlight(b.ID, "user-1", "epub:b", "two")
	h.ID = "hl-second"
	_, err = repo.UpsertHighlight(ctx, h)
	require.NoError(t, err)

	list, err := repo.ListHighlights(ctx, b.ID, "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	other, err := repo.ListHighlights(ctx, b.ID, "user-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestUpsertHighlight_ConcurrentWritersDoNotDuplicate(t *testing.T) {
	s := newTestStore(t)
	repo := NewAnnotationRepository(s, mockLogger{})
	ctx := context.Background()
	b := seedBook(t, s, "user-1", domain.FormatPDF, 10)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h := newHighlight(b.ID, "user-1", "pdf:1:same", "text")
			h.ID = fmt.Sprintf("hl-writer-%d", i)
			_, err := repo.UpsertHighlight(ctx, h)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	list, err := repo.ListHighlights(ctx, b.ID, "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDeleteHighlight_RequiresOwner(t *testing.T) {
	s := newTestStore(t)
	repo := NewAnnotationRepository(s, mockLogger{})
	ctx := context.Background()
	b := seedBook(t, s, "user-1", domain.FormatPDF, 10)

	h, err := repo.UpsertHighlight(ctx, newHighlight(b.ID, "user-1", "pdf:1:a", "x"))
	require.NoError(t, err)

	assert.ErrorIs(t, repo.DeleteHighlight(ctx, h.ID, "user-2"), domain.ErrNotFound)
	require.NoError(t, repo.DeleteHighlight(ctx, h.ID, "user-1"))
	assert.ErrorIs(t, repo.DeleteHighlight(ctx, h.ID, "user-1"), domain.ErrNotFound)
}

func TestUpsertBookmark_SecondNoteWins(t *testing.T) {
	s := newTestStore(t)
	repo := NewAnnotationRepository(s, mockLogger{})
	ctx := context.Background()
	b := seedBook(t, s, "user-1", domain.FormatPDF, 10)
	now := time.Now().UTC()

	first, err := repo.UpsertBookmark(ctx, &domain.Bookmark{
		ID: "bm-1", BookID: b.ID, UserID: "user-1", PageNumber: 4, Note: "first", CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	second, err := repo.UpsertBookmark(ctx, &domain.Bookmark{
		ID: "bm-2", BookID: b.ID, UserID: "user-1", PageNumber: 4, Note: "second", CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	list, err := repo.ListBookmarks(ctx, b.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "second", list[0].Note)
	assert.Equal(t, 4, list[0].PageNumber)

	assert.ErrorIs(t, repo.DeleteBookmark(ctx, first.ID, "user-2"), domain.ErrNotFound)
	require.NoError(t, repo.DeleteBookmark(ctx, first.ID, "user-1"))
}

func TestUpdateAnnotation_NilKeepsValue(t *testing.T) {
	s := newTestStore(t)
	repo := NewAnnotationRepository(s, mockLogger{})
	ctx := context.Background()
	b := seedBook(t, s, "user-1", domain.FormatPDF, 10)
	now := time.Now().UTC()

	require.NoError(t, repo.CreateAnnotation(ctx, &domain.Annotation{
		ID: "an-1", BookID: b.ID, UserID: "user-1", PageNumber: 2, SelectedText: "quote",
		Note: "original", Color: "yellow", Position: []byte(`{}`), CreatedAt: now, UpdatedAt: now,
	}))

	color := "blue"
	got, err := repo.UpdateAnnotation(ctx, "an-1", "user-1", nil, &color)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Note)
	assert.Equal(t, "blue", got.Color)

	note := "changed"
	got, err = repo.UpdateAnnotation(ctx, "an-1", "user-1", &note, nil)
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Note)
	assert.Equal(t, "blue", got.Color)

	_, err = repo.UpdateAnnotation(ctx, "an-1", "user-2", &note, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := repo.ListAnnotations(ctx, b.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "quote", list[0].SelectedText)

	require.NoError(t, repo.DeleteAnnotation(ctx, "an-1", "user-1"))
}
