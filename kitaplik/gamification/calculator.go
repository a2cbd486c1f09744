package gamification

import "math"

// Calculator derives level standing from a raw XP total. The curve is
// exponential: completing level n costs floor(baseXP * multiplier^(n-1)).
type Calculator struct {
	config *Config
}

func NewCalculator(config *Config) *Calculator {
	return &Calculator{config: config}
}

// Progress is the derived standing for a given XP total. CurrentXP is the
// amount earned within the current level and is always strictly below
// NextLevelXP, the cost of completing it.
type Progress struct {
	Level       int   `json:"level"`
	CurrentXP   int64 `json:"current_xp"`
	NextLevelXP int64 `json:"next_level_xp"`
	TotalXP     int64 `json:"total_xp"`
}

// LevelFor recomputes the full standing from totalXP. It is a pure function
// and is re-run on every read rather than cached, so out-of-band XP
// corrections are always reflected.
func (c *Calculator) LevelFor(totalXP int64) Progress {
	if totalXP < 0 {
		totalXP = 0
	}

	level := 1
	remaining := totalXP
	threshold := int64(c.config.BaseXP)

	for remaining >= threshold {
		remaining -= threshold
		level++
		threshold = int64(math.Floor(float64(c.config.BaseXP) * math.Pow(c.config.LevelMultiplier, float64(level-1))))
	}

	return Progress{
		Level:       level,
		CurrentXP:   remaining,
		NextLevelXP: threshold,
		TotalXP:     totalXP,
	}
}
