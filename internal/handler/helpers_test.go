package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"reader-annotations/internal/domain"
	apperrors "reader-annotations/pkg/errors"
)

func createContextWithUser(r *http.Request, user *domain.SupabaseUser) *http.Request {
	ctx := context.WithValue(r.Context(), userContextKey, user)
	return r.WithContext(ctx)
}

func createContextWithToken(r *http.Request, token string) *http.Request {
	ctx := context.WithValue(r.Context(), tokenContextKey, token)
	return r.WithContext(ctx)
}

// fakeAuth stands in for AuthMiddleware and authenticates every request as user.
func fakeAuth(user *domain.SupabaseUser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = createContextWithToken(createContextWithUser(r, user), "test-token")
			next.ServeHTTP(w, r)
		})
	}
}

type mockBookService struct {
	mu    sync.Mutex
	books map[string]*domain.Book
	err   error
}

func newMockBookService() *mockBookService {
	return &mockBookService{books: make(map[string]*domain.Book)}
}

func (m *mockBookService) CreateBook(ctx context.Context, userID string, in *domain.BookInput) (*domain.Book, error) {
	if m.err != nil {
		return nil, m.err
	}
	if in.Title == "" {
		return nil, apperrors.NewValidationError("invalid book", "title is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b := &domain.Book{
		ID:         "bk_new",
		UserID:     userID,
		Title:      in.Title,
		Format:     in.Format,
		TotalPages: in.TotalPages,
		Status:     domain.StatusUnread,
	}
	m.books[b.ID] = b
	return b, nil
}

func (m *mockBookService) GetBook(ctx context.Context, id, userID string) (*domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok || b.UserID != userID {
		return nil, apperrors.NewNotFoundError("book not found")
	}
	return b, nil
}

func (m *mockBookService) ListBooks(ctx context.Context, userID string) ([]*domain.Book, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Book, 0)
	for _, b := range m.books {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockBookService) UpdateBookStatus(ctx context.Context, id, userID string, status domain.BookStatus) (*domain.Book, error) {
	b, err := m.GetBook(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	b.Status = status
	return b, nil
}

func (m *mockBookService) DeleteBook(ctx context.Context, id, userID string) error {
	if _, err := m.GetBook(ctx, id, userID); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.books, id)
	m.mu.Unlock()
	return nil
}

type mockAnnotationService struct {
	lastHighlight *domain.HighlightInput
	lastUpdate    *domain.AnnotationUpdate
	bookmarkPage  int
	bookmarkNote  string
	deleted       []domain.EntityKind
	err           error
}

func (m *mockAnnotationService) UpsertHighlight(ctx context.Context, userID string, in *domain.HighlightInput) (*domain.Highlight, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.lastHighlight = in
	return &domain.Highlight{ID: "hl_1", BookID: in.BookID, UserID: userID, Text: in.Text, ColorName: "yellow", Position: in.Position}, nil
}

func (m *mockAnnotationService) UpsertBookmark(ctx context.Context, userID, bookID string, page int, note string) (*domain.Bookmark, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.bookmarkPage, m.bookmarkNote = page, note
	return &domain.Bookmark{ID: "bm_1", BookID: bookID, UserID: userID, PageNumber: page, Note: note}, nil
}

func (m *mockAnnotationService) CreateAnnotation(ctx context.Context, userID string, in *domain.AnnotationInput) (*domain.Annotation, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Annotation{ID: "an_1", BookID: in.BookID, UserID: userID, SelectedText: in.SelectedText, Position: in.Position}, nil
}

func (m *mockAnnotationService) UpdateAnnotation(ctx context.Context, userID, id string, upd *domain.AnnotationUpdate) (*domain.Annotation, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.lastUpdate = upd
	a := &domain.Annotation{ID: id, UserID: userID}
	if upd.Note != nil {
		a.Note = *upd.Note
	}
	return a, nil
}

func (m *mockAnnotationService) ListForBook(ctx context.Context, bookID, userID string) (*domain.BookAnnotations, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.BookAnnotations{
		BookID:      bookID,
		Highlights:  []*domain.Highlight{{ID: "hl_1", BookID: bookID, UserID: userID}},
		Bookmarks:   []*domain.Bookmark{},
		Annotations: []*domain.Annotation{},
	}, nil
}

func (m *mockAnnotationService) Delete(ctx context.Context, kind domain.EntityKind, id, userID string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, kind)
	return nil
}

type mockGoalService struct {
	recorded *domain.ReadingSession
	goals    []*domain.ReadingGoal
	err      error
}

func (m *mockGoalService) RecordSession(ctx context.Context, s *domain.ReadingSession) ([]*domain.ReadingGoal, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.recorded = s
	return m.goals, nil
}

func (m *mockGoalService) SetGoal(ctx context.Context, userID string, goalType domain.GoalType, period domain.GoalPeriod, target int) (*domain.ReadingGoal, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.ReadingGoal{ID: "gl_1", UserID: userID, Type: goalType, Period: period, Target: target}, nil
}

func (m *mockGoalService) GetGoalProgress(ctx context.Context, userID string) ([]*domain.ReadingGoal, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.goals, nil
}

type mockTrackerService struct {
	lastClient string
	lastBook   string
	lastPage   int
	result     *domain.SessionResult
	err        error
	closed     bool
}

func (m *mockTrackerService) snapshot(state domain.SessionState) *domain.SessionSnapshot {
	return &domain.SessionSnapshot{State: state, BookID: m.lastBook, CurrentPage: m.lastPage}
}

func (m *mockTrackerService) Start(ctx context.Context, userID, clientID, bookID string, page int) (*domain.SessionSnapshot, *domain.SessionResult, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	m.lastClient, m.lastBook, m.lastPage = clientID, bookID, page
	return m.snapshot(domain.SessionActive), nil, nil
}

func (m *mockTrackerService) Pause(userID, clientID string) (*domain.SessionSnapshot, error) {
	m.lastClient = clientID
	return m.snapshot(domain.SessionPaused), m.err
}

func (m *mockTrackerService) Resume(ctx context.Context, userID, clientID, bookID string, page int) (*domain.SessionSnapshot, *domain.SessionResult, error) {
	return m.Start(ctx, userID, clientID, bookID, page)
}

func (m *mockTrackerService) Turn(userID, clientID string, page int) (*domain.SessionSnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.lastClient, m.lastPage = clientID, page
	return m.snapshot(domain.SessionActive), nil
}

func (m *mockTrackerService) End(ctx context.Context, userID, clientID, bookID string, finalPage int) (*domain.SessionResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.lastClient, m.lastBook, m.lastPage = clientID, bookID, finalPage
	return m.result, nil
}

func (m *mockTrackerService) Close() { m.closed = true }

type testServer struct {
	handler     http.Handler
	books       *mockBookService
	annotations *mockAnnotationService
	goals       *mockGoalService
	tracker     *mockTrackerService
}

func newTestServer(user *domain.SupabaseUser) *testServer {
	logger := NewMockHandlerLogger()
	s := &testServer{
		books:       newMockBookService(),
		annotations: &mockAnnotationService{},
		goals:       &mockGoalService{},
		tracker:     &mockTrackerService{},
	}
	s.handler = NewRouter(
		NewAuthHandler(),
		NewBookHandler(s.books, logger),
		NewAnnotationHandler(s.annotations, logger),
		NewSessionHandler(s.goals, s.tracker, logger),
		NewGoalHandler(s.goals, logger),
		fakeAuth(user),
		nil,
	)
	return s
}

func (s *testServer) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}
