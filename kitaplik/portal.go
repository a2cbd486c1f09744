package kitaplik

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kitaplik/portal/kitaplik/database"
	"github.com/kitaplik/portal/kitaplik/database/repositories"
	"github.com/kitaplik/portal/kitaplik/gamification"
	"github.com/kitaplik/portal/kitaplik/services"
)

func New(cfg Config, version string, commit string) *Portal {
	return &Portal{
		Cfg:     cfg,
		Version: version,
		Commit:  commit,
	}
}

// Portal aggregates the wired components of the library portal.
type Portal struct {
	Cfg     Config
	Version string
	Commit  string

	DB *database.DB

	TemplateRepository    repositories.TemplateRepository
	TaskRepository        repositories.TaskRepository
	AchievementRepository repositories.AchievementRepository
	ProgressRepository    repositories.ProgressRepository
	GoalRepository        repositories.GoalRepository

	Engine      *gamification.Service
	GoalService *services.GoalService
}

// Setup wires repositories and services on top of the connected database.
func (p *Portal) Setup(ctx context.Context) error {
	if p.DB == nil {
		return fmt.Errorf("portal setup requires a connected database")
	}

	if err := p.DB.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to ensure indexes: %w", err)
	}

	p.TemplateRepository = repositories.NewTemplateRepository(p.DB)
	p.TaskRepository = repositories.NewTaskRepository(p.DB)
	p.AchievementRepository = repositories.NewAchievementRepository(p.DB)
	p.ProgressRepository = repositories.NewProgressRepository(p.DB)
	p.GoalRepository = repositories.NewGoalRepository(p.DB)

	engineCfg, err := p.Cfg.Gamify.EngineConfig()
	if err != nil {
		return err
	}

	clock := gamification.SystemClock()
	p.Engine = gamification.NewService(
		engineCfg,
		p.TemplateRepository,
		p.TaskRepository,
		p.AchievementRepository,
		p.ProgressRepository,
		gamification.NewLogNotifier(),
		clock,
	)
	p.GoalService = services.NewGoalService(p.GoalRepository, clock)

	return nil
}

// EngineConfig converts the TOML knobs into an engine configuration,
// filling defaults for zero values.
func (g GamifyConfig) EngineConfig() (*gamification.Config, error) {
	cfg := gamification.NewDefaultConfig()

	if g.DailyTaskCount > 0 {
		cfg.DailyTaskCount = g.DailyTaskCount
	}
	if g.WeeklyTaskCount > 0 {
		cfg.WeeklyTaskCount = g.WeeklyTaskCount
	}
	if g.ProgressiveTaskCount > 0 {
		cfg.ProgressiveTaskCount = g.ProgressiveTaskCount
	}
	if g.BaseXP > 0 {
		cfg.BaseXP = g.BaseXP
	}
	if g.LevelMultiplier > 1 {
		cfg.LevelMultiplier = g.LevelMultiplier
	}

	if g.WeekStartDay != "" {
		day, err := parseWeekday(g.WeekStartDay)
		if err != nil {
			return nil, err
		}
		cfg.WeekStartDay = day
	}

	return cfg, nil
}

func parseWeekday(name string) (time.Weekday, error) {
	for day := time.Sunday; day <= time.Saturday; day++ {
		if strings.EqualFold(day.String(), name) {
			return day, nil
		}
	}
	return 0, fmt.Errorf("unknown week start day %q", name)
}
