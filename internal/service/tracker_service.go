package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"reader-annotations/internal/domain"
	"reader-annotations/internal/tracker"
	apperrors "reader-annotations/pkg/errors"
)

type trackerKey struct {
	userID   string
	clientID string
}

// TrackerService keeps one session tracker per (user, client) so several
// devices of the same user each have their own session.
type TrackerService struct {
	mu       sync.Mutex
	trackers map[trackerKey]*tracker.Tracker

	books   domain.BookRepository
	sink    tracker.SessionSink
	clock   tracker.Clock
	opts    tracker.Options
	logger  domain.Logger
	timeout time.Duration
}

func NewTrackerService(
	books domain.BookRepository,
	sink tracker.SessionSink,
	clock tracker.Clock,
	opts tracker.Options,
	logger domain.Logger,
	timeout time.Duration,
) *TrackerService {
	return &TrackerService{
		trackers: make(map[trackerKey]*tracker.Tracker),
		books:    books,
		sink:     sink,
		clock:    clock,
		opts:     opts,
		logger:   logger,
		timeout:  timeout,
	}
}

func (s *TrackerService) trackerFor(userID, clientID string, create bool) *tracker.Tracker {
	key := trackerKey{userID: userID, clientID: clientID}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trackers[key]
	if !ok && create {
		t = tracker.New(userID, s.clock, s.books, s.sink, s.logger, s.opts)
		s.trackers[key] = t
	}
	return t
}

// release forgets an idle tracker. The tracker is retired under its own
// lock, so a Start racing with release either wins and keeps the tracker
// registered or gets tracker.ErrRetired and picks up a fresh one.
func (s *TrackerService) release(userID, clientID string, t *tracker.Tracker) {
	key := trackerKey{userID: userID, clientID: clientID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trackers[key] == t && t.RetireIfIdle() {
		delete(s.trackers, key)
	}
}

func (s *TrackerService) start(ctx context.Context, userID, clientID string, book *domain.Book, page int, resume bool) (*domain.SessionSnapshot, *domain.SessionResult, error) {
	for {
		t := s.trackerFor(userID, clientID, true)
		var (
			snap      *domain.SessionSnapshot
			preempted *domain.SessionResult
			err       error
		)
		if resume {
			snap, preempted, err = t.Resume(ctx, book, page)
		} else {
			snap, preempted, err = t.Start(ctx, book, page)
		}
		if errors.Is(err, tracker.ErrRetired) {
			continue
		}
		return snap, preempted, err
	}
}

func (s *TrackerService) loadBook(ctx context.Context, userID, bookID string, page int) (*domain.Book, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	book, err := ownedBook(ctx, s.books, bookID, userID)
	if err != nil {
		return nil, err
	}
	if page < 0 || (book.TotalPages > 0 && page > book.TotalPages) {
		return nil, apperrors.NewValidationError("validation failed", "page: is outside the book")
	}
	return book, nil
}

func (s *TrackerService) Start(ctx context.Context, userID, clientID, bookID string, page int) (*domain.SessionSnapshot, *domain.SessionResult, error) {
	book, err := s.loadBook(ctx, userID, bookID, page)
	if err != nil {
		return nil, nil, err
	}
	snap, preempted, err := s.start(ctx, userID, clientID, book, page, false)
	if err != nil {
		return nil, nil, err
	}
	return snap, preempted, nil
}

func (s *TrackerService) Pause(userID, clientID string) (*domain.SessionSnapshot, error) {
	t := s.trackerFor(userID, clientID, false)
	if t == nil {
		return &domain.SessionSnapshot{State: domain.SessionIdle}, nil
	}
	return t.Pause(), nil
}

func (s *TrackerService) Resume(ctx context.Context, userID, clientID, bookID string, page int) (*domain.SessionSnapshot, *domain.SessionResult, error) {
	book, err := s.loadBook(ctx, userID, bookID, page)
	if err != nil {
		return nil, nil, err
	}
	return s.start(ctx, userID, clientID, book, page, true)
}

func (s *TrackerService) Turn(userID, clientID string, page int) (*domain.SessionSnapshot, error) {
	if page < 0 {
		return nil, apperrors.NewValidationError("validation failed", "page: must be 0 or greater")
	}
	t := s.trackerFor(userID, clientID, false)
	if t == nil {
		return &domain.SessionSnapshot{State: domain.SessionIdle}, nil
	}
	return t.Turn(page), nil
}

// End finishes the client's session. With no session it returns (nil, nil).
// finalPage is checked against the book before the session is closed, so a
// bad page leaves the session open.
func (s *TrackerService) End(ctx context.Context, userID, clientID, bookID string, finalPage int) (*domain.SessionResult, error) {
	t := s.trackerFor(userID, clientID, false)
	if t == nil {
		return nil, nil
	}
	if _, err := s.loadBook(ctx, userID, bookID, finalPage); err != nil {
		return nil, err
	}
	res, err := t.End(ctx, bookID, finalPage)
	s.release(userID, clientID, t)
	return res, err
}

// Close stops every tracker. Open sessions are dropped; their last
// checkpoint is what remains.
func (s *TrackerService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, t := range s.trackers {
		t.Close()
		delete(s.trackers, key)
	}
}
