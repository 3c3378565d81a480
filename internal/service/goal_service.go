package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reader-annotations/internal/domain"
	"reader-annotations/internal/tracker"
	"reader-annotations/internal/validation"
	apperrors "reader-annotations/pkg/errors"
	"reader-annotations/pkg/id"
)

// maxClockSkew is how far ahead of the server clock a session may be stamped.
const maxClockSkew = time.Minute

// GoalService credits reading sessions to period goals.
type GoalService struct {
	repo        domain.GoalRepository
	validator   *validation.Validator
	logger      domain.Logger
	loc         *time.Location
	timeout     time.Duration
	minDuration time.Duration
	now         func() time.Time
}

// NewGoalService returns a GoalService. Sessions shorter than minDuration
// are refused; zero means tracker.DefaultMinDuration.
func NewGoalService(repo domain.GoalRepository, validator *validation.Validator, logger domain.Logger, loc *time.Location, timeout, minDuration time.Duration) *GoalService {
	if loc == nil {
		loc = time.UTC
	}
	if minDuration <= 0 {
		minDuration = tracker.DefaultMinDuration
	}
	return &GoalService{
		repo:        repo,
		validator:   validator,
		logger:      logger,
		loc:         loc,
		timeout:     timeout,
		minDuration: minDuration,
		now:         time.Now,
	}
}

// RecordSession stores s and credits every goal whose window contains it.
// A session id that was already recorded is accepted without crediting
// anything again, and the current goals are returned. PagesRead is always
// derived from the start and end pages.
func (s *GoalService) RecordSession(ctx context.Context, sess *domain.ReadingSession) ([]*domain.ReadingGoal, error) {
	if sess == nil {
		return nil, apperrors.NewValidationError("session is required")
	}
	if err := s.validator.Validate(sess); err != nil {
		return nil, err
	}
	if sess.UserID == "" {
		return nil, apperrors.NewValidationError("validation failed", "user_id: is required")
	}
	if time.Duration(sess.DurationSeconds)*time.Second < s.minDuration {
		return nil, apperrors.NewValidationError("validation failed",
			fmt.Sprintf("duration_seconds: must be at least %d", int(s.minDuration/time.Second)))
	}

	now := s.now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.CreatedAt.After(now.Add(maxClockSkew)) {
		return nil, apperrors.NewValidationError("validation failed", "created_at: must not be in the future")
	}
	sess.CreatedAt = sess.CreatedAt.UTC()
	sess.PagesRead = pageDistance(sess.StartPage, sess.EndPage)

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	goals, err := s.repo.RecordSession(ctx, sess, s.loc)
	if errors.Is(err, domain.ErrAlreadyRecorded) {
		s.logger.Info("Reading session already recorded", "user_id", sess.UserID, "session_id", sess.ID)
		goals, err = s.repo.ListGoalsAt(ctx, sess.UserID, sess.CreatedAt)
	}
	if err != nil {
		s.logger.Error("Failed to record reading session", err, "user_id", sess.UserID, "book_id", sess.BookID)
		return nil, translate(err, "reading session")
	}

	s.logger.Info("Reading session recorded",
		"user_id", sess.UserID, "book_id", sess.BookID, "session_id", sess.ID,
		"seconds", sess.DurationSeconds, "pages", sess.PagesRead, "goals", len(goals))
	return withPercent(goals), nil
}

// SetGoal sets the target of the goal instance for the current window.
// Progress already made in that window is kept.
func (s *GoalService) SetGoal(ctx context.Context, userID string, goalType domain.GoalType, period domain.GoalPeriod, target int) (*domain.ReadingGoal, error) {
	if !goalType.Valid() {
		return nil, apperrors.NewValidationError("validation failed", "goal_type: must be one of pages, minutes, books")
	}
	if !period.Valid() {
		return nil, apperrors.NewValidationError("validation failed", "period: must be one of daily, weekly, monthly, yearly")
	}
	if target <= 0 {
		return nil, apperrors.NewValidationError("validation failed", "target: must be greater than 0")
	}

	now := s.now().UTC()
	w, err := period.Window(now, s.loc)
	if err != nil {
		return nil, apperrors.NewValidationError("validation failed", err.Error())
	}
	goalID, err := id.Generate(id.PrefixGoal)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to generate id", err)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	g, err := s.repo.UpsertGoal(ctx, &domain.ReadingGoal{
		ID:          goalID,
		UserID:      userID,
		Type:        goalType,
		Period:      period,
		Target:      target,
		Year:        w.Year,
		Month:       w.Month,
		Week:        w.Week,
		Day:         w.Day,
		WindowStart: w.Start,
		WindowEnd:   w.End,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, translate(err, "goal")
	}
	g.Percent = g.Progress()

	s.logger.Info("Goal set", "user_id", userID, "goal_type", string(goalType), "period", string(period), "target", target)
	return g, nil
}

// GetGoalProgress returns the goal instances that cover now. Goals that
// have no instance for the current window yet get an empty one.
func (s *GoalService) GetGoalProgress(ctx context.Context, userID string) ([]*domain.ReadingGoal, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now().UTC()
	if err := s.repo.RollForward(ctx, userID, now, s.loc); err != nil {
		return nil, translate(err, "goals")
	}
	goals, err := s.repo.ListGoalsAt(ctx, userID, now)
	if err != nil {
		return nil, translate(err, "goals")
	}
	return withPercent(goals), nil
}

func pageDistance(start, end int) int {
	if end < start {
		return start - end
	}
	return end - start
}

func withPercent(goals []*domain.ReadingGoal) []*domain.ReadingGoal {
	for _, g := range goals {
		g.Percent = g.Progress()
	}
	return goals
}
