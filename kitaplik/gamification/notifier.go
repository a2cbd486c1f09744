package gamification

import (
	"context"
	"log/slog"

	"github.com/kitaplik/portal/kitaplik/database/models"
)

// Notifier is the narrow port toward the portal's notification dispatch,
// which lives outside this engine. The engine only announces; delivery,
// batching and user preferences are the collaborator's problem.
type Notifier interface {
	NotifyLevelUp(ctx context.Context, userID string, level int)
	NotifyAchievement(ctx context.Context, userID string, achievement *models.UserAchievement)
}

type logNotifier struct{}

// NewLogNotifier returns a Notifier that only writes structured logs.
func NewLogNotifier() Notifier { return logNotifier{} }

func (logNotifier) NotifyLevelUp(_ context.Context, userID string, level int) {
	slog.Info("User leveled up",
		slog.String("type", "engine"),
		slog.String("user_id", userID),
		slog.Int("level", level))
}

func (logNotifier) NotifyAchievement(_ context.Context, userID string, achievement *models.UserAchievement) {
	slog.Info("Achievement unlocked",
		slog.String("type", "engine"),
		slog.String("user_id", userID),
		slog.String("title", achievement.Title),
		slog.Int("level", achievement.Level))
}
