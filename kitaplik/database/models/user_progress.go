package models

import "time"

// UserProgress is the per-user XP counter document. Level and the XP split
// within a level are derived on read, never stored, so out-of-band XP
// corrections stay consistent.
type UserProgress struct {
	UserID    string    `bson:"_id" json:"user_id"`
	TotalXP   int64     `bson:"total_xp" json:"total_xp"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
