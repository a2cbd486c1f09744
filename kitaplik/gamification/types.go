package gamification

import "github.com/kitaplik/portal/kitaplik/database/models"

// ResetResult summarizes one lazy reset pass.
type ResetResult struct {
	Checked  int `json:"checked"`
	Expired  int `json:"expired"`
	Replaced int `json:"replaced"`
}

// CompletionResult is the snapshot returned after a completion attempt.
// Applied is false when the call was a no-op (missing task, foreign owner,
// already completed).
type CompletionResult struct {
	Applied         bool                      `json:"applied"`
	Task            *models.UserTask          `json:"task,omitempty"`
	Progress        Progress                  `json:"progress"`
	LeveledUp       bool                      `json:"leveled_up"`
	NewAchievements []*models.UserAchievement `json:"new_achievements,omitempty"`
}

// AdvanceResult summarizes a progressive-task advancement.
type AdvanceResult struct {
	Updated     int                 `json:"updated"`
	Completions []*CompletionResult `json:"completions,omitempty"`
}

// UserSnapshot is the whole gamification state for one user.
type UserSnapshot struct {
	Tasks        []*models.UserTask        `json:"tasks"`
	Achievements []*models.UserAchievement `json:"achievements"`
	Progress     Progress                  `json:"progress"`
}
