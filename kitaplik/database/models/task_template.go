package models

import "time"

// Task kind constants
const (
	TaskKindDaily       = "daily"
	TaskKindWeekly      = "weekly"
	TaskKindProgressive = "progressive"
)

// Progress kind constants for progressive templates
const (
	ProgressKindPages     = "pages"
	ProgressKindFavorites = "favorites"
	ProgressKindBorrows   = "borrows"
)

// TaskTemplate is an immutable catalog entry. Instances are stamped out of
// it; the template itself is never mutated after seeding.
type TaskTemplate struct {
	ID          string `bson:"_id" json:"id"`
	Title       string `bson:"title" json:"title"`
	Description string `bson:"description" json:"description"`
	Kind        string `bson:"kind" json:"kind"`
	XPReward    int    `bson:"xp_reward" json:"xp_reward"`

	// Progressive templates only
	Target       int    `bson:"target,omitempty" json:"target,omitempty"`
	ProgressKind string `bson:"progress_kind,omitempty" json:"progress_kind,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// TaskKinds lists every assignable kind in quota order.
func TaskKinds() []string {
	return []string{TaskKindDaily, TaskKindWeekly, TaskKindProgressive}
}
