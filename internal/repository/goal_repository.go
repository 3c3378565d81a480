package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"reader-annotations/internal/domain"
	"reader-annotations/pkg/id"
)

const goalColumns = `id, user_id, goal_type, period, target, current_value,
	year, month, week, day, window_start, window_end, updated_at`

// GoalRepository implements domain.GoalRepository on the SQL store.
type GoalRepository struct {
	store  *Store
	logger domain.Logger
}

func NewGoalRepository(store *Store, logger domain.Logger) domain.GoalRepository {
	return &GoalRepository{store: store, logger: logger}
}

func scanGoal(sc scanner) (*domain.ReadingGoal, error) {
	var (
		g           domain.ReadingGoal
		goalType    string
		period      string
		windowStart string
		windowEnd   string
		updatedAt   string
	)
	if err := sc.Scan(&g.ID, &g.UserID, &goalType, &period, &g.Target, &g.Current,
		&g.Year, &g.Month, &g.Week, &g.Day, &windowStart, &windowEnd, &updatedAt); err != nil {
		return nil, err
	}
	g.Type = domain.GoalType(goalType)
	g.Period = domain.GoalPeriod(period)

	var err error
	if g.WindowStart, err = parseTime(windowStart); err != nil {
		return nil, err
	}
	if g.WindowEnd, err = parseTime(windowEnd); err != nil {
		return nil, err
	}
	if g.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

// UpsertGoal creates the goal instance for g's window or changes its target.
// Accumulated progress is never reset by a target change.
func (r *GoalRepository) UpsertGoal(ctx context.Context, g *domain.ReadingGoal) (*domain.ReadingGoal, error) {
	row := r.store.queryRow(ctx, r.store.db, `
		INSERT INTO reading_goals (`+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, goal_type, period, year, month, week, day) DO UPDATE SET
			target = excluded.target,
			updated_at = excluded.updated_at
		RETURNING `+goalColumns,
		g.ID, g.UserID, string(g.Type), string(g.Period), g.Target, g.Current,
		g.Year, g.Month, g.Week, g.Day,
		formatTime(g.WindowStart), formatTime(g.WindowEnd), formatTime(g.UpdatedAt),
	)
	saved, err := scanGoal(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("upsert goal: %w", err)
	}
	return saved, nil
}

// ListGoalsAt returns the user's goal instances whose window contains at.
func (r *GoalRepository) ListGoalsAt(ctx context.Context, userID string, at time.Time) ([]*domain.ReadingGoal, error) {
	return r.listGoalsAt(ctx, r.store.db, userID, at)
}

func (r *GoalRepository) listGoalsAt(ctx context.Context, q execer, userID string, at time.Time) ([]*domain.ReadingGoal, error) {
	ts := formatTime(at)
	rows, err := r.store.query(ctx, q, `
		SELECT `+goalColumns+` FROM reading_goals
		WHERE user_id = ? AND window_start <= ? AND window_end > ?
		ORDER BY goal_type, window_start DESC`, userID, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	goals := make([]*domain.ReadingGoal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

type goalKey struct {
	goalType domain.GoalType
	period   domain.GoalPeriod
}

// RecordSession writes the session and credits every goal whose window
// contains it, all in one transaction. Book progress moves to the session's
// end page. A session id that is already stored yields ErrAlreadyRecorded
// and changes nothing. Pages read must equal the distance between start and
// end page, and both must lie within the book, or ErrSessionMismatch is
// returned.
func (r *GoalRepository) RecordSession(ctx context.Context, s *domain.ReadingSession, loc *time.Location) ([]*domain.ReadingGoal, error) {
	var goals []*domain.ReadingGoal

	err := r.store.withTx(ctx, func(tx *sql.Tx) error {
		var totalPages int
		var status string
		err := r.store.queryRow(ctx, tx,
			`SELECT total_pages, status FROM books WHERE id = ? AND user_id = ?`+r.store.rowLock,
			s.BookID, s.UserID).Scan(&totalPages, &status)
		if err != nil {
			return notFound(err)
		}

		if s.PagesRead != absInt(s.EndPage-s.StartPage) {
			return domain.ErrSessionMismatch
		}
		if totalPages > 0 && (s.StartPage > totalPages || s.EndPage > totalPages) {
			return domain.ErrSessionMismatch
		}

		finished := totalPages > 0 && s.EndPage >= totalPages
		at := formatTime(s.CreatedAt)

		res, err := r.store.exec(ctx, tx, `
			INSERT INTO reading_sessions (
				id, book_id, user_id, duration_seconds, pages_read, start_page,
				end_page, progress_delta, finished_book, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING`,
			s.ID, s.BookID, s.UserID, s.DurationSeconds, s.PagesRead, s.StartPage,
			s.EndPage, s.ProgressDelta, boolToInt(finished), at)
		if err != nil {
			return fmt.Errorf("insert reading session: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return domain.ErrAlreadyRecorded
		}

		newStatus := domain.BookStatus(status)
		if finished {
			newStatus = domain.StatusRead
		} else if newStatus == domain.StatusUnread || newStatus == domain.StatusWantToRead {
			newStatus = domain.StatusReading
		}
		if _, err := r.store.exec(ctx, tx, `
			UPDATE books SET current_page = ?, last_read_at = ?, status = ?, updated_at = ?
			WHERE id = ?`,
			s.EndPage, at, string(newStatus), at, s.BookID); err != nil {
			return fmt.Errorf("update book progress: %w", err)
		}

		instances, err := r.rollForward(ctx, tx, s.UserID, s.CreatedAt, loc)
		if err != nil {
			return err
		}

		for _, inst := range instances {
			key, w := inst.key, inst.window
			var credit int
			if key.goalType == domain.GoalBooks {
				first, err := r.firstCompletionIn(ctx, tx, s, finished, w)
				if err != nil {
					return err
				}
				credit = key.goalType.Credit(s, first)
			} else {
				credit = key.goalType.Credit(s, false)
			}
			if credit <= 0 {
				continue
			}

			if _, err := r.store.exec(ctx, tx, `
				UPDATE reading_goals SET current_value = current_value + ?, updated_at = ?
				WHERE user_id = ? AND goal_type = ? AND period = ?
				  AND year = ? AND month = ? AND week = ? AND day = ?`,
				credit, at, s.UserID, string(key.goalType), string(key.period),
				w.Year, w.Month, w.Week, w.Day); err != nil {
				return fmt.Errorf("increment goal: %w", err)
			}
		}

		goals, err = r.listGoalsAt(ctx, tx, s.UserID, s.CreatedAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return goals, nil
}

// RollForward makes sure every goal the user has set has an instance for
// the window containing at. Existing instances are left untouched.
func (r *GoalRepository) RollForward(ctx context.Context, userID string, at time.Time, loc *time.Location) error {
	return r.store.withTx(ctx, func(tx *sql.Tx) error {
		_, err := r.rollForward(ctx, tx, userID, at, loc)
		return err
	})
}

type goalInstance struct {
	key    goalKey
	window domain.PeriodWindow
}

func (r *GoalRepository) rollForward(ctx context.Context, tx *sql.Tx, userID string, at time.Time, loc *time.Location) ([]goalInstance, error) {
	targets, err := r.latestTargets(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	instances := make([]goalInstance, 0, len(targets))
	for key, target := range targets {
		w, err := key.period.Window(at, loc)
		if err != nil {
			return nil, err
		}
		if err := r.ensureInstance(ctx, tx, userID, key, target, w, at); err != nil {
			return nil, err
		}
		instances = append(instances, goalInstance{key: key, window: w})
	}
	return instances, nil
}

// latestTargets returns, per (type, period), the target of the user's most
// recent goal instance. These are the goals that roll forward into new windows.
func (r *GoalRepository) latestTargets(ctx context.Context, tx *sql.Tx, userID string) (map[goalKey]int, error) {
	rows, err := r.store.query(ctx, tx, `
		SELECT goal_type, period, target FROM reading_goals
		WHERE user_id = ? ORDER BY window_start DESC, updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("load goal targets: %w", err)
	}
	defer rows.Close()

	targets := make(map[goalKey]int)
	for rows.Next() {
		var goalType, period string
		var target int
		if err := rows.Scan(&goalType, &period, &target); err != nil {
			return nil, fmt.Errorf("scan goal target: %w", err)
		}
		key := goalKey{goalType: domain.GoalType(goalType), period: domain.GoalPeriod(period)}
		if _, seen := targets[key]; !seen {
			targets[key] = target
		}
	}
	return targets, rows.Err()
}

func (r *GoalRepository) ensureInstance(ctx context.Context, tx *sql.Tx, userID string, key goalKey, target int, w domain.PeriodWindow, now time.Time) error {
	goalID, err := id.Generate(id.PrefixGoal)
	if err != nil {
		return err
	}
	_, err = r.store.exec(ctx, tx, `
		INSERT INTO reading_goals (`+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, goal_type, period, year, month, week, day) DO NOTHING`,
		goalID, userID, string(key.goalType), string(key.period), target,
		w.Year, w.Month, w.Week, w.Day, formatTime(w.Start), formatTime(w.End), formatTime(now))
	if err != nil {
		return fmt.Errorf("roll goal forward: %w", err)
	}
	return nil
}

// firstCompletionIn reports whether s finishes its book and no earlier
// session in w already did.
func (r *GoalRepository) firstCompletionIn(ctx context.Context, tx *sql.Tx, s *domain.ReadingSession, finished bool, w domain.PeriodWindow) (bool, error) {
	if !finished {
		return false, nil
	}
	var earlier int
	err := r.store.queryRow(ctx, tx, `
		SELECT COUNT(*) FROM reading_sessions
		WHERE user_id = ? AND book_id = ? AND finished_book = 1 AND id <> ?
		  AND created_at >= ? AND created_at < ?`,
		s.UserID, s.BookID, s.ID, formatTime(w.Start), formatTime(w.End)).Scan(&earlier)
	if err != nil {
		return false, fmt.Errorf("count completions: %w", err)
	}
	return earlier == 0, nil
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
