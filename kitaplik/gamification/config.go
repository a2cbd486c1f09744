package gamification

import "time"

type Config struct {
	// Live instance quota per kind
	DailyTaskCount       int
	WeeklyTaskCount      int
	ProgressiveTaskCount int

	// Leveling curve
	BaseXP          int
	LevelMultiplier float64

	// First day of the reset week
	WeekStartDay time.Weekday
}

func NewDefaultConfig() *Config {
	return &Config{
		DailyTaskCount:       2,
		WeeklyTaskCount:      1,
		ProgressiveTaskCount: 1,
		BaseXP:               100,
		LevelMultiplier:      1.5,
		WeekStartDay:         time.Monday,
	}
}

// quotaFor returns the configured live-instance count for a task kind.
func (c *Config) quotaFor(kind string) int {
	switch kind {
	case "daily":
		return c.DailyTaskCount
	case "weekly":
		return c.WeeklyTaskCount
	case "progressive":
		return c.ProgressiveTaskCount
	default:
		return 0
	}
}
