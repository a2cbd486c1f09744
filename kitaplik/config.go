package kitaplik

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log    LogConfig    `toml:"log"`
	Server ServerConfig `toml:"server"`
	Mongo  MongoConfig  `toml:"mongo"`
	Gamify GamifyConfig `toml:"gamify"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type ServerConfig struct {
	Host         string   `toml:"host"`
	Port         int      `toml:"port"`
	AllowOrigins []string `toml:"allow_origins"`
	RateLimit    int      `toml:"rate_limit"`
}

type MongoConfig struct {
	URI         string `toml:"uri"`
	Database    string `toml:"database"`
	ConnTimeout int    `toml:"conn_timeout"` // seconds
}

// GamifyConfig holds the tunable knobs of the task/achievement engine.
// Zero values fall back to the engine defaults (2/1/1, 100 XP, 1.5, Monday).
type GamifyConfig struct {
	DailyTaskCount       int     `toml:"daily_task_count"`
	WeeklyTaskCount      int     `toml:"weekly_task_count"`
	ProgressiveTaskCount int     `toml:"progressive_task_count"`
	BaseXP               int     `toml:"base_xp"`
	LevelMultiplier      float64 `toml:"level_multiplier"`
	WeekStartDay         string  `toml:"week_start_day"`
}
