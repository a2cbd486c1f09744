package models

import (
	"fmt"
	"time"
)

// Goal type constants
const (
	GoalTypeMonthly = "monthly"
	GoalTypeYearly  = "yearly"
)

// ReadingGoal is a per-user book-count goal for a calendar month or year.
// Progress is advanced by finished borrows, outside the XP engine.
type ReadingGoal struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Type      string    `bson:"type" json:"type"`
	Year      int       `bson:"year" json:"year"`
	Month     int       `bson:"month,omitempty" json:"month,omitempty"`
	Goal      int       `bson:"goal" json:"goal"`
	Progress  int       `bson:"progress" json:"progress"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Reached reports whether the goal has been met.
func (g *ReadingGoal) Reached() bool {
	return g.Goal > 0 && g.Progress >= g.Goal
}

func MonthlyGoalID(userID string, year int, month time.Month) string {
	return fmt.Sprintf("%s_%d_%d_%s", userID, year, int(month), GoalTypeMonthly)
}

func YearlyGoalID(userID string, year int) string {
	return fmt.Sprintf("%s_%d_%s", userID, year, GoalTypeYearly)
}
