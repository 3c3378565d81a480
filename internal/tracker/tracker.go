// Package tracker measures continuous reading of one book on one client.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"reader-annotations/internal/domain"
)

const (
	DefaultCheckpointInterval = 5 * time.Minute
	DefaultMinDuration        = time.Minute
	DefaultWriteTimeout       = 5 * time.Second
)

// ErrRetired is returned by Start on a tracker that was retired.
var ErrRetired = errors.New("tracker retired")

// Checkpointer persists in-progress reading position.
type Checkpointer interface {
	SaveCheckpoint(ctx context.Context, cp domain.Checkpoint) error
}

// SessionSink receives every session that is long enough to keep.
type SessionSink interface {
	RecordSession(ctx context.Context, s *domain.ReadingSession) ([]*domain.ReadingGoal, error)
}

// Options tunes a Tracker. Zero values fall back to the defaults above.
type Options struct {
	CheckpointInterval time.Duration
	MinDuration        time.Duration
	WriteTimeout       time.Duration
}

func (o Options) withDefaults() Options {
	if o.CheckpointInterval <= 0 {
		o.CheckpointInterval = DefaultCheckpointInterval
	}
	if o.MinDuration <= 0 {
		o.MinDuration = DefaultMinDuration
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	return o
}

// Tracker is the session state machine for one (user, client). All
// transitions and checkpoint callbacks are serialized by mu.
type Tracker struct {
	mu sync.Mutex

	userID       string
	clock        Clock
	checkpointer Checkpointer
	sink         SessionSink
	logger       domain.Logger
	opts         Options

	state       domain.SessionState
	bookID      string
	totalPages  int
	startPage   int
	currentPage int
	startedAt   time.Time

	retired bool

	// generation changes whenever the checkpoint loop is stopped, so a tick
	// delivered to a superseded loop is ignored.
	generation uint64
	stop       chan struct{}
}

// New returns an idle tracker for userID.
func New(userID string, clock Clock, checkpointer Checkpointer, sink SessionSink, logger domain.Logger, opts Options) *Tracker {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Tracker{
		userID:       userID,
		clock:        clock,
		checkpointer: checkpointer,
		sink:         sink,
		logger:       logger,
		opts:         opts.withDefaults(),
		state:        domain.SessionIdle,
	}
}

// State returns the current lifecycle state.
func (t *Tracker) State() domain.SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Snapshot describes the tracker now.
func (t *Tracker) Snapshot() *domain.SessionSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() *domain.SessionSnapshot {
	snap := &domain.SessionSnapshot{State: t.state}
	if t.state == domain.SessionIdle {
		return snap
	}
	started := t.startedAt
	snap.BookID = t.bookID
	snap.StartPage = t.startPage
	snap.CurrentPage = t.currentPage
	snap.StartedAt = &started
	snap.ElapsedSeconds = int(t.clock.Now().Sub(t.startedAt) / time.Second)
	return snap
}

// Start begins a session on book at page. A running session on the same
// book is left alone (or resumed if paused); one on another book is ended
// first and its result returned. If ending it fails the tracker is left
// idle and the new session is not started.
func (t *Tracker) Start(ctx context.Context, book *domain.Book, page int) (*domain.SessionSnapshot, *domain.SessionResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.retired {
		return nil, nil, ErrRetired
	}

	var preempted *domain.SessionResult
	switch t.state {
	case domain.SessionActive:
		if t.bookID == book.ID {
			return t.snapshotLocked(), nil, nil
		}
	case domain.SessionPaused:
		if t.bookID == book.ID {
			t.resumeLocked(page)
			return t.snapshotLocked(), nil, nil
		}
	}
	if t.state != domain.SessionIdle {
		t.logger.Info("Ending session preempted by another book",
			"user_id", t.userID, "book_id", t.bookID, "next_book_id", book.ID)
		res, err := t.endLocked(ctx, t.currentPage)
		if err != nil {
			return nil, res, err
		}
		preempted = res
	}

	t.state = domain.SessionActive
	t.bookID = book.ID
	t.totalPages = book.TotalPages
	t.startPage = page
	t.currentPage = page
	t.startedAt = t.clock.Now()
	t.startCheckpointsLocked()

	t.logger.Debug("Reading session started", "user_id", t.userID, "book_id", book.ID, "page", page)
	return t.snapshotLocked(), preempted, nil
}

// Pause stops checkpointing but keeps the session. Pausing a paused or idle
// tracker does nothing.
func (t *Tracker) Pause() *domain.SessionSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == domain.SessionActive {
		t.stopCheckpointsLocked()
		t.state = domain.SessionPaused
	}
	return t.snapshotLocked()
}

// Resume continues a paused session on the same book. For any other book it
// behaves like Start.
func (t *Tracker) Resume(ctx context.Context, book *domain.Book, page int) (*domain.SessionSnapshot, *domain.SessionResult, error) {
	t.mu.Lock()
	if t.state == domain.SessionPaused && t.bookID == book.ID {
		t.resumeLocked(page)
		snap := t.snapshotLocked()
		t.mu.Unlock()
		return snap, nil, nil
	}
	t.mu.Unlock()
	return t.Start(ctx, book, page)
}

func (t *Tracker) resumeLocked(page int) {
	if page > 0 {
		t.currentPage = page
	}
	t.state = domain.SessionActive
	t.startCheckpointsLocked()
}

// Turn records the page the reader is on.
func (t *Tracker) Turn(page int) *domain.SessionSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != domain.SessionIdle && page >= 0 {
		t.currentPage = page
	}
	return t.snapshotLocked()
}

// End finishes the session on bookID at finalPage. With no session, or a
// session on a different book, it returns (nil, nil). Whatever the sink
// returns the tracker is idle afterwards.
func (t *Tracker) End(ctx context.Context, bookID string, finalPage int) (*domain.SessionResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == domain.SessionIdle {
		return nil, nil
	}
	if t.bookID != bookID {
		t.logger.Warn("Ignoring end for a book without a session",
			"user_id", t.userID, "book_id", bookID, "active_book_id", t.bookID)
		return nil, nil
	}
	return t.endLocked(ctx, finalPage)
}

func (t *Tracker) endLocked(ctx context.Context, finalPage int) (*domain.SessionResult, error) {
	now := t.clock.Now()
	elapsed := now.Sub(t.startedAt)

	sess := &domain.ReadingSession{
		ID:              uuid.NewString(),
		BookID:          t.bookID,
		UserID:          t.userID,
		DurationSeconds: int(elapsed / time.Second),
		PagesRead:       abs(finalPage - t.startPage),
		StartPage:       t.startPage,
		EndPage:         finalPage,
		CreatedAt:       now,
	}
	if t.totalPages > 0 {
		sess.ProgressDelta = float64(finalPage-t.startPage) / float64(t.totalPages)
	}
	t.resetLocked()

	if elapsed < t.opts.MinDuration {
		t.logger.Debug("Discarding short reading session",
			"user_id", sess.UserID, "book_id", sess.BookID, "seconds", sess.DurationSeconds)
		return &domain.SessionResult{Discarded: true}, nil
	}

	goals, err := t.sink.RecordSession(ctx, sess)
	if err != nil {
		t.logger.Error("Failed to record reading session", err, "user_id", sess.UserID, "book_id", sess.BookID)
		return nil, err
	}
	return &domain.SessionResult{Session: sess, Goals: goals}, nil
}

// RetireIfIdle marks an idle tracker as retired and reports whether it did.
// A retired tracker never starts another session.
func (t *Tracker) RetireIfIdle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != domain.SessionIdle {
		return false
	}
	t.retired = true
	return true
}

// Close stops checkpointing and drops any open session without recording it.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
}

func (t *Tracker) resetLocked() {
	t.stopCheckpointsLocked()
	t.state = domain.SessionIdle
	t.bookID = ""
	t.totalPages = 0
	t.startPage = 0
	t.currentPage = 0
	t.startedAt = time.Time{}
}

func (t *Tracker) startCheckpointsLocked() {
	t.stopCheckpointsLocked()
	t.stop = make(chan struct{})
	go t.runCheckpoints(t.generation, t.clock.NewTicker(t.opts.CheckpointInterval), t.stop)
}

func (t *Tracker) stopCheckpointsLocked() {
	t.generation++
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

func (t *Tracker) runCheckpoints(gen uint64, ticker Ticker, stop <-chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			t.checkpoint(gen)
		}
	}
}

// checkpoint saves progress for generation gen. Ticks that arrive after a
// pause, end or restart find a different generation and are dropped.
// Failures are logged and never change the session.
func (t *Tracker) checkpoint(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != domain.SessionActive || t.generation != gen {
		return
	}

	now := t.clock.Now()
	cp := domain.Checkpoint{
		UserID:         t.userID,
		BookID:         t.bookID,
		CurrentPage:    t.currentPage,
		ElapsedSeconds: int(now.Sub(t.startedAt) / time.Second),
		PagesSoFar:     abs(t.currentPage - t.startPage),
		At:             now,
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.opts.WriteTimeout)
	defer cancel()
	if err := t.checkpointer.SaveCheckpoint(ctx, cp); err != nil {
		t.logger.Warn("Checkpoint failed", "user_id", t.userID, "book_id", t.bookID, "error", err)
		return
	}
	t.logger.Debug("Checkpoint saved", "user_id", t.userID, "book_id", t.bookID, "page", cp.CurrentPage)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
