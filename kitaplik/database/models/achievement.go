package models

import "time"

// AchievementTemplate is an immutable level-gated catalog entry. Templates
// are matched against granted achievements by title.
type AchievementTemplate struct {
	ID          string    `bson:"_id" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description" json:"description"`
	XPReward    int       `bson:"xp_reward" json:"xp_reward"`
	Level       int       `bson:"level" json:"level"`
	Icon        string    `bson:"icon" json:"icon"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// UserAchievement is a granted copy of a template. Created at most once per
// (user, title) and never deleted.
type UserAchievement struct {
	ID          string    `bson:"_id" json:"id"`
	UserID      string    `bson:"user_id" json:"user_id"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description" json:"description"`
	XPReward    int       `bson:"xp_reward" json:"xp_reward"`
	Level       int       `bson:"level" json:"level"`
	Icon        string    `bson:"icon" json:"icon"`
	Completed   bool      `bson:"completed" json:"completed"`
	CompletedAt time.Time `bson:"completed_at" json:"completed_at"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// NewUserAchievement grants a template to a user.
func NewUserAchievement(id, userID string, tpl *AchievementTemplate, now time.Time) *UserAchievement {
	return &UserAchievement{
		ID:          id,
		UserID:      userID,
		Title:       tpl.Title,
		Description: tpl.Description,
		XPReward:    tpl.XPReward,
		Level:       tpl.Level,
		Icon:        tpl.Icon,
		Completed:   true,
		CompletedAt: now,
		CreatedAt:   now,
	}
}
