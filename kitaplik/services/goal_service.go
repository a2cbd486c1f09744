package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kitaplik/portal/kitaplik/database/models"
	"github.com/kitaplik/portal/kitaplik/database/repositories"
	"github.com/kitaplik/portal/kitaplik/gamification"
)

// GoalService manages per-user monthly and yearly reading goals. Goals are
// plain book counters and stay outside the XP engine.
type GoalService struct {
	goals repositories.GoalRepository
	clock gamification.Clock
}

func NewGoalService(goals repositories.GoalRepository, clock gamification.Clock) *GoalService {
	if clock == nil {
		clock = gamification.SystemClock()
	}
	return &GoalService{goals: goals, clock: clock}
}

// GoalPair is the user's goals for the current month and year. Either side
// is nil when no target has been set for that period.
type GoalPair struct {
	Monthly *models.ReadingGoal `json:"monthly,omitempty"`
	Yearly  *models.ReadingGoal `json:"yearly,omitempty"`
}

// CurrentGoals loads the goals for the period the clock is in right now.
func (s *GoalService) CurrentGoals(ctx context.Context, userID string) (*GoalPair, error) {
	now := s.clock.Now()

	monthly, err := s.lookup(ctx, models.MonthlyGoalID(userID, now.Year(), now.Month()))
	if err != nil {
		return nil, err
	}
	yearly, err := s.lookup(ctx, models.YearlyGoalID(userID, now.Year()))
	if err != nil {
		return nil, err
	}

	return &GoalPair{Monthly: monthly, Yearly: yearly}, nil
}

func (s *GoalService) lookup(ctx context.Context, id string) (*models.ReadingGoal, error) {
	goal, err := s.goals.GetGoal(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load goal: %w", err)
	}
	return goal, nil
}

// SetGoal creates or retargets the goal for the current period of the given
// type. Progress already earned within the period is kept. The returned flag
// reports whether the call created a new goal rather than retargeting one.
func (s *GoalService) SetGoal(ctx context.Context, userID, goalType string, target int) (*models.ReadingGoal, bool, error) {
	if target <= 0 {
		return nil, false, fmt.Errorf("goal target must be positive, got %d", target)
	}

	now := s.clock.Now()
	goal := &models.ReadingGoal{
		UserID: userID,
		Type:   goalType,
		Year:   now.Year(),
		Goal:   target,
	}

	switch goalType {
	case models.GoalTypeMonthly:
		goal.Month = int(now.Month())
		goal.ID = models.MonthlyGoalID(userID, now.Year(), now.Month())
	case models.GoalTypeYearly:
		goal.ID = models.YearlyGoalID(userID, now.Year())
	default:
		return nil, false, fmt.Errorf("unknown goal type %q", goalType)
	}

	created, err := s.goals.SaveGoal(ctx, goal)
	if err != nil {
		return nil, false, fmt.Errorf("failed to save goal: %w", err)
	}

	slog.Info("Reading goal set",
		slog.String("type", "engine"),
		slog.String("user_id", userID),
		slog.String("goal_type", goalType),
		slog.Int("target", target),
		slog.Bool("created", created))

	saved, err := s.lookup(ctx, goal.ID)
	if err != nil {
		return nil, false, err
	}
	return saved, created, nil
}

// RecordFinishedBooks advances both current-period goals by the number of
// books finished. Periods without a goal are skipped silently.
func (s *GoalService) RecordFinishedBooks(ctx context.Context, userID string, count int) (*GoalPair, error) {
	if count <= 0 {
		return s.CurrentGoals(ctx, userID)
	}

	now := s.clock.Now()
	pair := &GoalPair{}

	monthly, err := s.goals.IncrementGoalProgress(ctx, models.MonthlyGoalID(userID, now.Year(), now.Month()), count)
	if err != nil {
		return nil, fmt.Errorf("failed to advance monthly goal: %w", err)
	}
	pair.Monthly = monthly

	yearly, err := s.goals.IncrementGoalProgress(ctx, models.YearlyGoalID(userID, now.Year()), count)
	if err != nil {
		return nil, fmt.Errorf("failed to advance yearly goal: %w", err)
	}
	pair.Yearly = yearly

	for _, goal := range []*models.ReadingGoal{monthly, yearly} {
		if goal != nil && goal.Reached() && goal.Progress-count < goal.Goal {
			slog.Info("Reading goal reached",
				slog.String("type", "engine"),
				slog.String("user_id", userID),
				slog.String("goal_type", goal.Type),
				slog.Int("goal", goal.Goal))
		}
	}

	return pair, nil
}
