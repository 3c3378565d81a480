package domain

import (
	"context"
	"fmt"
	"time"
)

// GoalType is the unit a goal counts.
type GoalType string

const (
	GoalPages   GoalType = "pages"
	GoalMinutes GoalType = "minutes"
	GoalBooks   GoalType = "books"
)

// Valid reports whether t is a known goal type.
func (t GoalType) Valid() bool {
	return t == GoalPages || t == GoalMinutes || t == GoalBooks
}

// Credit is how much a session adds to a goal of this type. finishedBook
// must only be true for the first completion of the book inside the goal's window.
func (t GoalType) Credit(s *ReadingSession, finishedBook bool) int {
	switch t {
	case GoalPages:
		return s.PagesRead
	case GoalMinutes:
		return s.DurationSeconds / 60
	case GoalBooks:
		if finishedBook {
			return 1
		}
	}
	return 0
}

// GoalPeriod is the length of a goal window.
type GoalPeriod string

const (
	PeriodDaily   GoalPeriod = "daily"
	PeriodWeekly  GoalPeriod = "weekly"
	PeriodMonthly GoalPeriod = "monthly"
	PeriodYearly  GoalPeriod = "yearly"
)

// Periods lists every period, shortest first.
var Periods = []GoalPeriod{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly}

// Valid reports whether p is a known period.
func (p GoalPeriod) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

// PeriodWindow is one concrete period instance, e.g. ISO week 42 of 2025.
// Scope fields that do not apply to the period are zero.
type PeriodWindow struct {
	Start time.Time
	End   time.Time
	Year  int
	Month int
	Week  int
	Day   int
}

// Contains reports whether t falls inside [Start, End).
func (w PeriodWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Window returns the instance of p that contains t, with day boundaries in loc.
// Weeks are ISO weeks starting on Monday.
func (p GoalPeriod) Window(t time.Time, loc *time.Location) (PeriodWindow, error) {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)

	switch p {
	case PeriodDaily:
		return PeriodWindow{
			Start: midnight,
			End:   midnight.AddDate(0, 0, 1),
			Year:  y,
			Month: int(m),
			Day:   d,
		}, nil
	case PeriodWeekly:
		offset := (int(t.Weekday()) + 6) % 7
		start := midnight.AddDate(0, 0, -offset)
		isoYear, week := t.ISOWeek()
		return PeriodWindow{
			Start: start,
			End:   start.AddDate(0, 0, 7),
			Year:  isoYear,
			Week:  week,
		}, nil
	case PeriodMonthly:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return PeriodWindow{
			Start: start,
			End:   start.AddDate(0, 1, 0),
			Year:  y,
			Month: int(m),
		}, nil
	case PeriodYearly:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		return PeriodWindow{
			Start: start,
			End:   start.AddDate(1, 0, 0),
			Year:  y,
		}, nil
	}
	return PeriodWindow{}, fmt.Errorf("unknown goal period %q", p)
}

// ReadingGoal is a goal counter for one owner, unit and period instance.
type ReadingGoal struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Type        GoalType   `json:"goal_type"`
	Period      GoalPeriod `json:"period"`
	Target      int        `json:"target"`
	Current     int        `json:"current"`
	Year        int        `json:"year"`
	Month       int        `json:"month,omitempty"`
	Week        int        `json:"week,omitempty"`
	Day         int        `json:"day,omitempty"`
	WindowStart time.Time  `json:"window_start"`
	WindowEnd   time.Time  `json:"window_end"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Percent     float64    `json:"percent"`
}

// Progress returns current/target as a percentage capped at 100.
func (g *ReadingGoal) Progress() float64 {
	if g.Target <= 0 {
		return 0
	}
	pct := float64(g.Current) / float64(g.Target) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// GoalRepository persists goals and records sessions against them.
type GoalRepository interface {
	// RecordSession stores the session and credits every matching goal in one
	// transaction. It returns ErrAlreadyRecorded if the session id exists.
	RecordSession(ctx context.Context, s *ReadingSession, loc *time.Location) ([]*ReadingGoal, error)
	UpsertGoal(ctx context.Context, g *ReadingGoal) (*ReadingGoal, error)
	// RollForward creates the instance containing at for every goal the user has set.
	RollForward(ctx context.Context, userID string, at time.Time, loc *time.Location) error
	ListGoalsAt(ctx context.Context, userID string, at time.Time) ([]*ReadingGoal, error)
}

// GoalService defines the use-case operations for reading goals.
type GoalService interface {
	RecordSession(ctx context.Context, s *ReadingSession) ([]*ReadingGoal, error)
	SetGoal(ctx context.Context, userID string, goalType GoalType, period GoalPeriod, target int) (*ReadingGoal, error)
	GetGoalProgress(ctx context.Context, userID string) ([]*ReadingGoal, error)
}
