package domain

import (
	"context"
	"time"
)

// ReadingSession is one completed stretch of reading. It is created by the
// session tracker when a session ends and never modified afterwards.
type ReadingSession struct {
	ID              string    `json:"id" validate:"required,uuid"`
	BookID          string    `json:"book_id" validate:"required"`
	UserID          string    `json:"user_id"`
	DurationSeconds int       `json:"duration_seconds" validate:"gte=0"`
	PagesRead       int       `json:"pages_read" validate:"gte=0"`
	StartPage       int       `json:"start_page" validate:"gte=0"`
	EndPage         int       `json:"end_page" validate:"gte=0"`
	ProgressDelta   float64   `json:"progress_delta"`
	CreatedAt       time.Time `json:"created_at"`
}

// SessionState is the tracker's position in its lifecycle.
type SessionState string

const (
	SessionIdle   SessionState = "idle"
	SessionActive SessionState = "active"
	SessionPaused SessionState = "paused"
)

// SessionSnapshot describes a tracker at one instant.
type SessionSnapshot struct {
	State          SessionState `json:"state"`
	BookID         string       `json:"book_id,omitempty"`
	StartPage      int          `json:"start_page,omitempty"`
	CurrentPage    int          `json:"current_page,omitempty"`
	StartedAt      *time.Time   `json:"started_at,omitempty"`
	ElapsedSeconds int          `json:"elapsed_seconds"`
}

// SessionResult is what ending a session produced. Session is nil when the
// session was too short to keep.
type SessionResult struct {
	Session   *ReadingSession `json:"session,omitempty"`
	Goals     []*ReadingGoal  `json:"goals,omitempty"`
	Discarded bool            `json:"discarded"`
}

// TrackerService drives one session tracker per (user, client).
type TrackerService interface {
	Start(ctx context.Context, userID, clientID, bookID string, page int) (*SessionSnapshot, *SessionResult, error)
	Pause(userID, clientID string) (*SessionSnapshot, error)
	Resume(ctx context.Context, userID, clientID, bookID string, page int) (*SessionSnapshot, *SessionResult, error)
	Turn(userID, clientID string, page int) (*SessionSnapshot, error)
	End(ctx context.Context, userID, clientID, bookID string, finalPage int) (*SessionResult, error)
	Close()
}
