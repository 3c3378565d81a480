package service

import (
	"context"
	"sync"
	"time"

	"reader-annotations/internal/domain"
)

type MockLogger struct {
	mu       sync.Mutex
	messages []string
}

func NewMockLogger() *MockLogger {
	return &MockLogger{
		messages: []string{},
	}
}

func (m *MockLogger) record(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, s)
}

func (m *MockLogger) Info(msg string, args ...interface{}) {
	m.record("INFO: " + msg)
}

func (m *MockLogger) Error(msg string, err error, args ...interface{}) {
	m.record("ERROR: " + msg + " - " + err.Error())
}

func (m *MockLogger) Debug(msg string, args ...interface{}) {
	m.record("DEBUG: " + msg)
}

func (m *MockLogger) Warn(msg string, args ...interface{}) {
	m.record("WARN: " + msg)
}

// MockBookRepository keeps books in memory.
type MockBookRepository struct {
	mu          sync.Mutex
	books       map[string]*domain.Book
	checkpoints []domain.Checkpoint
	err         error
}

func NewMockBookRepository(books ...*domain.Book) *MockBookRepository {
	m := &MockBookRepository{books: make(map[string]*domain.Book)}
	for _, b := range books {
		m.books[b.ID] = b
	}
	return m
}

func (m *MockBookRepository) Create(ctx context.Context, b *domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.books[b.ID]; ok {
		return domain.ErrConflict
	}
	cp := *b
	m.books[b.ID] = &cp
	return nil
}

func (m *MockBookRepository) Get(ctx context.Context, id, userID string) (*domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	b, ok := m.books[id]
	if !ok || b.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *MockBookRepository) List(ctx context.Context, userID string) ([]*domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Book, 0)
	for _, b := range m.books {
		if b.UserID == userID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockBookRepository) UpdateStatus(ctx context.Context, id, userID string, status domain.BookStatus) (*domain.Book, error) {
	m.mu.Lock()
	b, ok := m.books[id]
	if !ok || b.UserID != userID {
		m.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	b.Status = status
	m.mu.Unlock()
	return m.Get(ctx, id, userID)
}

func (m *MockBookRepository) Delete(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok || b.UserID != userID {
		return domain.ErrNotFound
	}
	delete(m.books, id)
	return nil
}

func (m *MockBookRepository) SaveCheckpoint(ctx context.Context, cp domain.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints = append(m.checkpoints, cp)
	return nil
}

// MockAnnotationRepository keeps annotations in memory with the same
// uniqueness rules as the SQL store.
type MockAnnotationRepository struct {
	mu          sync.Mutex
	highlights  map[string]*domain.Highlight
	bookmarks   map[string]*domain.Bookmark
	annotations map[string]*domain.Annotation

	conflicts int // UpsertHighlight fails with ErrConflict this many times
	upserts   int
	listErr   error
}

func NewMockAnnotationRepository() *MockAnnotationRepository {
	return &MockAnnotationRepository{
		highlights:  make(map[string]*domain.Highlight),
		bookmarks:   make(map[string]*domain.Bookmark),
		annotations: make(map[string]*domain.Annotation),
	}
}

func (m *MockAnnotationRepository) UpsertHighlight(ctx context.Context, h *domain.Highlight) (*domain.Highlight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.conflicts > 0 {
		m.conflicts--
		return nil, domain.ErrConflict
	}
	for _, existing := range m.highlights {
		if existing.BookID == h.BookID && existing.UserID == h.UserID && existing.AnchorKey == h.AnchorKey {
			existing.Text = h.Text
			existing.ColorName = h.ColorName
			existing.ColorHex = h.ColorHex
			existing.Note = h.Note
			existing.Position = h.Position
			existing.UpdatedAt = h.UpdatedAt
			cp := *existing
			return &cp, nil
		}
	}
	cp := *h
	m.highlights[h.ID] = &cp
	out := cp
	return &out, nil
}

func (m *MockAnnotationRepository) ListHighlights(ctx context.Context, bookID, userID string) ([]*domain.Highlight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*domain.Highlight, 0)
	for _, h := range m.highlights {
		if h.BookID == bookID && h.UserID == userID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockAnnotationRepository) DeleteHighlight(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.highlights[id]
	if !ok || h.UserID != userID {
		return domain.ErrNotFound
	}
	delete(m.highlights, id)
	return nil
}

func (m *MockAnnotationRepository) UpsertBookmark(ctx context.Context, b *domain.Bookmark) (*domain.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.bookmarks {
		if existing.BookID == b.BookID && existing.UserID == b.UserID && existing.PageNumber == b.PageNumber {
			existing.Note = b.Note
			existing.UpdatedAt = b.UpdatedAt
			cp := *existing
			return &cp, nil
		}
	}
	cp := *b
	m.bookmarks[b.ID] = &cp
	out := cp
	return &out, nil
}

func (m *MockAnnotationRepository) ListBookmarks(ctx context.Context, bookID, userID string) ([]*domain.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Bookmark, 0)
	for _, b := range m.bookmarks {
		if b.BookID == bookID && b.UserID == userID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockAnnotationRepository) DeleteBookmark(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookmarks[id]
	if !ok || b.UserID != userID {
		return domain.ErrNotFound
	}
	delete(m.bookmarks, id)
	return nil
}

func (m *MockAnnotationRepository) CreateAnnotation(ctx context.Context, a *domain.Annotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.annotations[a.ID] = &cp
	return nil
}

func (m *MockAnnotationRepository) UpdateAnnotation(ctx context.Context, id, userID string, note, color *string) (*domain.Annotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.annotations[id]
	if !ok || a.UserID != userID {
		return nil, domain.ErrNotFound
	}
	if note != nil {
		a.Note = *note
	}
	if color != nil {
		a.Color = *color
	}
	a.UpdatedAt = time.Now().UTC()
	cp := *a
	return &cp, nil
}

func (m *MockAnnotationRepository) ListAnnotations(ctx context.Context, bookID, userID string) ([]*domain.Annotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Annotation, 0)
	for _, a := range m.annotations {
		if a.BookID == bookID && a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockAnnotationRepository) DeleteAnnotation(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.annotations[id]
	if !ok || a.UserID != userID {
		return domain.ErrNotFound
	}
	delete(m.annotations, id)
	return nil
}

// MockGoalRepository records calls and returns canned results.
type MockGoalRepository struct {
	mu        sync.Mutex
	sessions  map[string]*domain.ReadingSession
	goals     []*domain.ReadingGoal
	upserted  []*domain.ReadingGoal
	rolled    int
	recordErr error
}

func NewMockGoalRepository(goals ...*domain.ReadingGoal) *MockGoalRepository {
	return &MockGoalRepository{sessions: make(map[string]*domain.ReadingSession), goals: goals}
}

func (m *MockGoalRepository) RecordSession(ctx context.Context, s *domain.ReadingSession, loc *time.Location) ([]*domain.ReadingGoal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return nil, m.recordErr
	}
	if _, ok := m.sessions[s.ID]; ok {
		return nil, domain.ErrAlreadyRecorded
	}
	m.sessions[s.ID] = s
	for _, g := range m.goals {
		g.Current += g.Type.Credit(s, false)
	}
	return m.copyGoals(), nil
}

func (m *MockGoalRepository) UpsertGoal(ctx context.Context, g *domain.ReadingGoal) (*domain.ReadingGoal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, g)
	cp := *g
	return &cp, nil
}

func (m *MockGoalRepository) RollForward(ctx context.Context, userID string, at time.Time, loc *time.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rolled++
	return nil
}

func (m *MockGoalRepository) ListGoalsAt(ctx context.Context, userID string, at time.Time) ([]*domain.ReadingGoal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyGoals(), nil
}

func (m *MockGoalRepository) copyGoals() []*domain.ReadingGoal {
	out := make([]*domain.ReadingGoal, 0, len(m.goals))
	for _, g := range m.goals {
		cp := *g
		out = append(out, &cp)
	}
	return out
}
