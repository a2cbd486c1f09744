package gamification

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/kitaplik/portal/kitaplik/database/models"
	"github.com/kitaplik/portal/kitaplik/database/repositories"
)

// Service is the task/achievement progression engine. It holds no per-user
// state between calls; everything flows through the injected repositories,
// so any number of portal instances can run it against the same store.
type Service struct {
	config       *Config
	calculator   *Calculator
	templates    repositories.TemplateRepository
	tasks        repositories.TaskRepository
	achievements repositories.AchievementRepository
	progress     repositories.ProgressRepository
	notifier     Notifier
	clock        Clock
	resets       singleflight.Group
}

func NewService(
	config *Config,
	templates repositories.TemplateRepository,
	tasks repositories.TaskRepository,
	achievements repositories.AchievementRepository,
	progress repositories.ProgressRepository,
	notifier Notifier,
	clock Clock,
) *Service {
	if config == nil {
		config = NewDefaultConfig()
	}
	if notifier == nil {
		notifier = NewLogNotifier()
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &Service{
		config:       config,
		calculator:   NewCalculator(config),
		templates:    templates,
		tasks:        tasks,
		achievements: achievements,
		progress:     progress,
		notifier:     notifier,
		clock:        clock,
	}
}

func (s *Service) Calculator() *Calculator { return s.calculator }

// StartSession is the session-start path: assign the initial working set if
// the user has none, run the lazy reset pass, then return the live tasks.
func (s *Service) StartSession(ctx context.Context, userID string) ([]*models.UserTask, error) {
	if err := s.AssignInitialTasks(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.CheckAndResetTasks(ctx, userID); err != nil {
		return nil, err
	}
	return s.tasks.GetUserTasks(ctx, userID)
}

// AssignInitialTasks creates the initial working set of task instances for a
// user with none. Safe to call unconditionally on every session start: the
// existence check makes repeat calls a no-op, and deterministic instance ids
// make a concurrent first contact collide in the store instead of doubling
// the working set.
func (s *Service) AssignInitialTasks(ctx context.Context, userID string) error {
	has, err := s.tasks.HasTasks(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check existing tasks: %w", err)
	}
	if has {
		return nil
	}

	now := s.clock.Now()
	for _, kind := range models.TaskKinds() {
		quota := s.config.quotaFor(kind)
		if quota <= 0 {
			continue
		}

		pool, err := s.templates.ListTaskTemplates(ctx, kind)
		if err != nil {
			return fmt.Errorf("failed to list %s templates: %w", kind, err)
		}
		if len(pool) == 0 {
			slog.Warn("No task templates in catalog for kind",
				slog.String("type", "engine"),
				slog.String("kind", kind),
				slog.String("user_id", userID))
			continue
		}
		if len(pool) < quota {
			// Degraded state, not an error: assign what the catalog has.
			slog.Warn("Catalog has fewer templates than quota",
				slog.String("type", "engine"),
				slog.String("kind", kind),
				slog.Int("quota", quota),
				slog.Int("available", len(pool)))
		}

		for _, tpl := range drawTemplates(pool, quota, nil) {
			task := models.NewUserTask(models.InitialTaskID(userID, tpl.ID), userID, tpl, now)
			if err := s.tasks.CreateUserTask(ctx, task); err != nil {
				if repositories.IsConflict(err) {
					// Another session won the first-contact race.
					continue
				}
				return fmt.Errorf("failed to create task instance: %w", err)
			}
		}
	}

	slog.Info("Initial tasks assigned",
		slog.String("type", "engine"),
		slog.String("user_id", userID))
	return nil
}

// CheckAndResetTasks retires daily/weekly instances whose boundary has been
// crossed and draws replacements. Idempotent: a second immediate call finds
// nothing expired because fresh instances carry lastReset = now. Concurrent
// same-process calls for one user are collapsed into a single pass.
func (s *Service) CheckAndResetTasks(ctx context.Context, userID string) (*ResetResult, error) {
	v, err, _ := s.resets.Do(userID, func() (interface{}, error) {
		return s.resetPass(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*ResetResult), nil
}

func (s *Service) resetPass(ctx context.Context, userID string) (*ResetResult, error) {
	tasks, err := s.tasks.GetUserTasks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	now := s.clock.Now()
	result := &ResetResult{Checked: len(tasks)}

	// Template ids that will still be live after this pass, per kind. The
	// expiring instance's own template is deliberately absent: only
	// duplicates against the user's *other* instances are avoided.
	live := make(map[string]map[string]bool)
	mark := func(kind, templateID string) {
		if live[kind] == nil {
			live[kind] = make(map[string]bool)
		}
		live[kind][templateID] = true
	}
	for _, t := range tasks {
		if !s.boundaryCrossed(t, now) {
			mark(t.Kind, t.TemplateID)
		}
	}

	for _, t := range tasks {
		if !s.boundaryCrossed(t, now) {
			continue
		}
		result.Expired++

		if err := s.tasks.DeleteUserTask(ctx, t.ID); err != nil {
			return nil, fmt.Errorf("failed to retire expired task: %w", err)
		}

		pool, err := s.templates.ListTaskTemplates(ctx, t.Kind)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s templates: %w", t.Kind, err)
		}

		drawn := drawTemplates(pool, 1, live[t.Kind])
		if len(drawn) == 0 {
			slog.Warn("No replacement template available",
				slog.String("type", "engine"),
				slog.String("kind", t.Kind),
				slog.String("user_id", userID))
			continue
		}

		// Replacement ids carry a random suffix, so a plain upsert is safe.
		tpl := drawn[0]
		replacement := models.NewUserTask(models.ReplacementTaskID(userID, tpl.ID), userID, tpl, now)
		if err := s.tasks.PutUserTask(ctx, replacement); err != nil {
			return nil, fmt.Errorf("failed to create replacement task: %w", err)
		}
		mark(t.Kind, tpl.ID)
		result.Replaced++
	}

	if result.Expired > 0 {
		slog.Info("Reset pass replaced expired tasks",
			slog.String("type", "engine"),
			slog.String("user_id", userID),
			slog.Int("expired", result.Expired),
			slog.Int("replaced", result.Replaced))
	}
	return result, nil
}

func (s *Service) boundaryCrossed(t *models.UserTask, now time.Time) bool {
	switch t.Kind {
	case models.TaskKindDaily:
		return dailyBoundaryCrossed(t.LastReset, now)
	case models.TaskKindWeekly:
		return weeklyBoundaryCrossed(t.LastReset, now, s.config.WeekStartDay)
	default:
		// Progressive tasks have no reset boundary.
		return false
	}
}

// CompleteTask marks a task done and converts its reward into XP. Completing
// a missing, foreign or already-completed task is a silent no-op so client
// retries and double-clicks never surface as errors.
func (s *Service) CompleteTask(ctx context.Context, userID, taskID string) (*CompletionResult, error) {
	task, err := s.tasks.GetUserTask(ctx, taskID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return s.currentStanding(ctx, userID)
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}

	if task.UserID != userID || task.Completed {
		slog.Debug("Completion ignored",
			slog.String("type", "engine"),
			slog.String("user_id", userID),
			slog.String("task_id", taskID),
			slog.Bool("already_completed", task.Completed))
		return s.currentStanding(ctx, userID)
	}

	return s.finishTask(ctx, task)
}

// AdvanceProgress feeds an external business event (pages read, favorites
// added, borrows finished) into the user's live progressive tasks. A task
// reaching its target completes through the normal completion path.
func (s *Service) AdvanceProgress(ctx context.Context, userID, progressKind string, delta int) (*AdvanceResult, error) {
	result := &AdvanceResult{}
	if delta <= 0 {
		return result, nil
	}

	tasks, err := s.tasks.GetUserTasks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	for _, t := range tasks {
		if t.Kind != models.TaskKindProgressive || t.Completed || t.ProgressKind != progressKind || t.Target <= 0 {
			continue
		}

		// The increment is a store-side compare-and-add on the pending
		// instance, so concurrent advances never lose counts.
		updated, err := s.tasks.IncrementTaskProgress(ctx, t.ID, userID, delta)
		if err != nil {
			return result, fmt.Errorf("failed to store progress: %w", err)
		}
		if updated == nil {
			// Completed or retired since the load.
			continue
		}
		result.Updated++

		if updated.CurrentProgress >= updated.Target {
			completion, err := s.finishTask(ctx, updated)
			if err != nil {
				return result, err
			}
			if completion.Applied {
				result.Completions = append(result.Completions, completion)
			}
		}
	}

	return result, nil
}

// CheckAndAwardAchievements grants every unachieved template whose level
// threshold the given XP total now clears. A jump across several thresholds
// grants all of them in one pass. Re-running after no change is a no-op.
func (s *Service) CheckAndAwardAchievements(ctx context.Context, userID string, totalXP int64) ([]*models.UserAchievement, error) {
	level := s.calculator.LevelFor(totalXP).Level

	templates, err := s.templates.ListAchievementTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievement templates: %w", err)
	}

	existing, err := s.achievements.GetUserAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievements: %w", err)
	}
	granted := make(map[string]bool, len(existing))
	for _, a := range existing {
		granted[a.Title] = true
	}

	var awarded []*models.UserAchievement
	now := s.clock.Now()
	for _, tpl := range templates {
		if tpl.Level > level || granted[tpl.Title] {
			continue
		}

		achievement := models.NewUserAchievement(uuid.NewString(), userID, tpl, now)
		if err := s.achievements.PutUserAchievement(ctx, achievement); err != nil {
			if repositories.IsConflict(err) {
				// Lost a grant race; the achievement exists, which is all
				// the invariant asks for.
				continue
			}
			return awarded, fmt.Errorf("failed to grant achievement: %w", err)
		}

		granted[tpl.Title] = true
		awarded = append(awarded, achievement)
		s.notifier.NotifyAchievement(ctx, userID, achievement)
	}

	return awarded, nil
}

// GetProgress derives the user's level standing from the stored XP total.
func (s *Service) GetProgress(ctx context.Context, userID string) (Progress, error) {
	total, err := s.progress.GetTotalXP(ctx, userID)
	if err != nil {
		return Progress{}, fmt.Errorf("failed to load xp total: %w", err)
	}
	return s.calculator.LevelFor(total), nil
}

// GetAchievements lists what the user has unlocked so far.
func (s *Service) GetAchievements(ctx context.Context, userID string) ([]*models.UserAchievement, error) {
	return s.achievements.GetUserAchievements(ctx, userID)
}

// GetSnapshot assembles the full gamification state for one user.
func (s *Service) GetSnapshot(ctx context.Context, userID string) (*UserSnapshot, error) {
	tasks, err := s.tasks.GetUserTasks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	achievements, err := s.achievements.GetUserAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievements: %w", err)
	}
	progress, err := s.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserSnapshot{
		Tasks:        tasks,
		Achievements: achievements,
		Progress:     progress,
	}, nil
}

func (s *Service) finishTask(ctx context.Context, task *models.UserTask) (*CompletionResult, error) {
	// The store performs the completed=false compare-and-set; only the
	// submission that wins it converts the reward into XP, so racing
	// double-clicks can never award twice.
	completed, err := s.tasks.CompleteUserTask(ctx, task.ID, task.UserID, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to store completion: %w", err)
	}
	if completed == nil {
		return s.currentStanding(ctx, task.UserID)
	}

	total, err := s.progress.IncrementTotalXP(ctx, completed.UserID, int64(completed.XPReward))
	if err != nil {
		return nil, fmt.Errorf("failed to add xp: %w", err)
	}

	after := s.calculator.LevelFor(total)
	before := s.calculator.LevelFor(total - int64(completed.XPReward))
	leveledUp := after.Level > before.Level
	if leveledUp {
		s.notifier.NotifyLevelUp(ctx, completed.UserID, after.Level)
	}

	awarded, err := s.CheckAndAwardAchievements(ctx, completed.UserID, total)
	if err != nil {
		// The XP is already applied; the next XP change re-runs the award
		// pass, so this is logged rather than propagated.
		slog.Error("Failed to award achievements",
			slog.String("type", "engine"),
			slog.String("user_id", completed.UserID),
			slog.Any("error", err))
		awarded = nil
	}

	return &CompletionResult{
		Applied:         true,
		Task:            completed,
		Progress:        after,
		LeveledUp:       leveledUp,
		NewAchievements: awarded,
	}, nil
}

// currentStanding builds the no-op completion snapshot.
func (s *Service) currentStanding(ctx context.Context, userID string) (*CompletionResult, error) {
	progress, err := s.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &CompletionResult{Applied: false, Progress: progress}, nil
}

// drawTemplates samples up to count distinct templates uniformly at random,
// skipping excluded template ids.
func drawTemplates(pool []*models.TaskTemplate, count int, exclude map[string]bool) []*models.TaskTemplate {
	eligible := make([]*models.TaskTemplate, 0, len(pool))
	for _, tpl := range pool {
		if exclude[tpl.ID] {
			continue
		}
		eligible = append(eligible, tpl)
	}

	rand.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})

	if count > len(eligible) {
		count = len(eligible)
	}
	return eligible[:count]
}
