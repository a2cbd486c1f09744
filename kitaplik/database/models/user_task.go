package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UserTask is a task instance owned by exactly one user. Daily and weekly
// instances are destroyed and replaced when their reset boundary is crossed;
// progressive instances persist until completed through recorded progress.
type UserTask struct {
	ID          string `bson:"_id" json:"id"`
	UserID      string `bson:"user_id" json:"user_id"`
	TemplateID  string `bson:"template_id" json:"template_id"`
	Title       string `bson:"title" json:"title"`
	Description string `bson:"description" json:"description"`
	Kind        string `bson:"kind" json:"kind"`
	XPReward    int    `bson:"xp_reward" json:"xp_reward"`

	// Progressive instances only
	Target       int    `bson:"target,omitempty" json:"target,omitempty"`
	ProgressKind string `bson:"progress_kind,omitempty" json:"progress_kind,omitempty"`

	CurrentProgress int        `bson:"current_progress" json:"current_progress"`
	Completed       bool       `bson:"completed" json:"completed"`
	CompletedAt     *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	LastReset       time.Time  `bson:"last_reset" json:"last_reset"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// NewUserTask stamps a fresh instance out of a template.
func NewUserTask(id, userID string, tpl *TaskTemplate, now time.Time) *UserTask {
	return &UserTask{
		ID:           id,
		UserID:       userID,
		TemplateID:   tpl.ID,
		Title:        tpl.Title,
		Description:  tpl.Description,
		Kind:         tpl.Kind,
		XPReward:     tpl.XPReward,
		Target:       tpl.Target,
		ProgressKind: tpl.ProgressKind,
		LastReset:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// InitialTaskID is deterministic per (user, template) so that two racing
// first-contact assignments collide on the document id instead of writing
// duplicate instances.
func InitialTaskID(userID, templateID string) string {
	return fmt.Sprintf("%s_%s", userID, templateID)
}

// ReplacementTaskID carries a random suffix: a re-drawn template must never
// collide with the id of the instance it replaces.
func ReplacementTaskID(userID, templateID string) string {
	return fmt.Sprintf("%s_%s_%s", userID, templateID, uuid.NewString())
}
