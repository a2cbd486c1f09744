package gamification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitaplik/portal/kitaplik/database/models"
	"github.com/kitaplik/portal/kitaplik/database/repositories"
)

// ---- in-memory fakes -------------------------------------------------------

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeTemplateRepo struct {
	taskTemplates        map[string][]*models.TaskTemplate
	achievementTemplates []*models.AchievementTemplate
}

func (f *fakeTemplateRepo) ListTaskTemplates(_ context.Context, kind string) ([]*models.TaskTemplate, error) {
	return f.taskTemplates[kind], nil
}

func (f *fakeTemplateRepo) ListAchievementTemplates(_ context.Context) ([]*models.AchievementTemplate, error) {
	return f.achievementTemplates, nil
}

func (f *fakeTemplateRepo) InvalidateCache() {}

// fakeTaskRepo stores clones, like the real store: mutations on returned
// structs are invisible until written back.
type fakeTaskRepo struct {
	mu     sync.Mutex
	tasks  map[string]*models.UserTask
	onLoad func(id string) // runs after a load, before any write-back
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]*models.UserTask)}
}

func cloneTask(t *models.UserTask) *models.UserTask {
	c := *t
	return &c
}

func (f *fakeTaskRepo) GetUserTasks(_ context.Context, userID string) ([]*models.UserTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.UserTask
	for _, t := range f.tasks {
		if t.UserID == userID {
			out = append(out, cloneTask(t))
		}
	}
	return out, nil
}

func (f *fakeTaskRepo) GetUserTask(_ context.Context, id string) (*models.UserTask, error) {
	f.mu.Lock()
	t, ok := f.tasks[id]
	var c *models.UserTask
	if ok {
		c = cloneTask(t)
	}
	f.mu.Unlock()
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "user_task", ID: id}
	}
	if f.onLoad != nil {
		f.onLoad(id)
	}
	return c, nil
}

func (f *fakeTaskRepo) CreateUserTask(_ context.Context, task *models.UserTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[task.ID]; ok {
		return &repositories.ConflictError{Entity: "user_task", Field: "_id", Value: task.ID}
	}
	f.tasks[task.ID] = cloneTask(task)
	return nil
}

func (f *fakeTaskRepo) PutUserTask(_ context.Context, task *models.UserTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[task.ID] = cloneTask(task)
	return nil
}

func (f *fakeTaskRepo) DeleteUserTask(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, id)
	return nil
}

func (f *fakeTaskRepo) CompleteUserTask(_ context.Context, id, userID string, completedAt time.Time) (*models.UserTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok || t.UserID != userID || t.Completed {
		return nil, nil
	}
	t.Completed = true
	at := completedAt
	t.CompletedAt = &at
	if t.Target > 0 {
		t.CurrentProgress = t.Target
	}
	return cloneTask(t), nil
}

func (f *fakeTaskRepo) IncrementTaskProgress(_ context.Context, id, userID string, delta int) (*models.UserTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok || t.UserID != userID || t.Completed {
		return nil, nil
	}
	t.CurrentProgress += delta
	return cloneTask(t), nil
}

func (f *fakeTaskRepo) HasTasks(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

type fakeAchievementRepo struct {
	mu           sync.Mutex
	achievements map[string]*models.UserAchievement // keyed user_id + title, mirrors the unique index
}

func newFakeAchievementRepo() *fakeAchievementRepo {
	return &fakeAchievementRepo{achievements: make(map[string]*models.UserAchievement)}
}

func (f *fakeAchievementRepo) GetUserAchievements(_ context.Context, userID string) ([]*models.UserAchievement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.UserAchievement
	for _, a := range f.achievements {
		if a.UserID == userID {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeAchievementRepo) PutUserAchievement(_ context.Context, achievement *models.UserAchievement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := achievement.UserID + "\x00" + achievement.Title
	if _, ok := f.achievements[key]; ok {
		return &repositories.ConflictError{Entity: "user_achievement", Field: "title", Value: achievement.Title}
	}
	c := *achievement
	f.achievements[key] = &c
	return nil
}

type fakeProgressRepo struct {
	mu     sync.Mutex
	totals map[string]int64
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{totals: make(map[string]int64)}
}

func (f *fakeProgressRepo) GetTotalXP(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.totals[userID], nil
}

func (f *fakeProgressRepo) IncrementTotalXP(_ context.Context, userID string, delta int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.totals[userID] += delta
	return f.totals[userID], nil
}

// ---- fixtures --------------------------------------------------------------

func taskTemplate(id, kind string, xp int) *models.TaskTemplate {
	return &models.TaskTemplate{ID: id, Title: "Template " + id, Kind: kind, XPReward: xp}
}

func testCatalog() *fakeTemplateRepo {
	return &fakeTemplateRepo{
		taskTemplates: map[string][]*models.TaskTemplate{
			models.TaskKindDaily: {
				taskTemplate("d1", models.TaskKindDaily, 50),
				taskTemplate("d2", models.TaskKindDaily, 25),
				taskTemplate("d3", models.TaskKindDaily, 40),
			},
			models.TaskKindWeekly: {
				taskTemplate("w1", models.TaskKindWeekly, 200),
				taskTemplate("w2", models.TaskKindWeekly, 100),
			},
			models.TaskKindProgressive: {
				{ID: "p1", Title: "Template p1", Kind: models.TaskKindProgressive,
					XPReward: 150, Target: 300, ProgressKind: models.ProgressKindPages},
				{ID: "p2", Title: "Template p2", Kind: models.TaskKindProgressive,
					XPReward: 75, Target: 5, ProgressKind: models.ProgressKindFavorites},
			},
		},
		achievementTemplates: []*models.AchievementTemplate{
			{ID: "a1", Title: "Beginner", Level: 1, XPReward: 50},
			{ID: "a2", Title: "Reader", Level: 2, XPReward: 100},
			{ID: "a3", Title: "Bookworm", Level: 3, XPReward: 150},
			{ID: "a4", Title: "Master", Level: 10, XPReward: 600},
		},
	}
}

type testEnv struct {
	service *Service
	tasks   *fakeTaskRepo
	ach     *fakeAchievementRepo
	xp      *fakeProgressRepo
	clock   *fakeClock
}

func newTestEnv(t *testing.T, templates *fakeTemplateRepo) *testEnv {
	t.Helper()
	if templates == nil {
		templates = testCatalog()
	}
	env := &testEnv{
		tasks: newFakeTaskRepo(),
		ach:   newFakeAchievementRepo(),
		xp:    newFakeProgressRepo(),
		clock: newFakeClock(time.Date(2026, time.March, 10, 9, 0, 0, 0, time.Local)),
	}
	env.service = NewService(NewDefaultConfig(), templates, env.tasks, env.ach, env.xp, nil, env.clock)
	return env
}

func tasksByKind(tasks []*models.UserTask) map[string][]*models.UserTask {
	out := make(map[string][]*models.UserTask)
	for _, t := range tasks {
		out[t.Kind] = append(out[t.Kind], t)
	}
	return out
}

// ---- assignment ------------------------------------------------------------

func TestAssignInitialTasksQuotas(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	require.NoError(t, env.service.AssignInitialTasks(ctx, "user1"))

	tasks, err := env.tasks.GetUserTasks(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, tasks, 4)

	byKind := tasksByKind(tasks)
	assert.Len(t, byKind[models.TaskKindDaily], 2)
	assert.Len(t, byKind[models.TaskKindWeekly], 1)
	assert.Len(t, byKind[models.TaskKindProgressive], 1)

	// Draws within a kind are distinct templates.
	seen := make(map[string]bool)
	for _, task := range byKind[models.TaskKindDaily] {
		assert.False(t, seen[task.TemplateID], "duplicate template %s", task.TemplateID)
		seen[task.TemplateID] = true
		assert.False(t, task.Completed)
		assert.Equal(t, env.clock.Now(), task.LastReset)
	}
}

func TestAssignInitialTasksIdempotent(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	require.NoError(t, env.service.AssignInitialTasks(ctx, "user1"))
	require.NoError(t, env.service.AssignInitialTasks(ctx, "user1"))

	tasks, err := env.tasks.GetUserTasks(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, tasks, 4)
}

func TestAssignInitialTasksConcurrentFirstContact(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, env.service.AssignInitialTasks(ctx, "user1"))
		}()
	}
	wg.Wait()

	tasks, err := env.tasks.GetUserTasks(ctx, "user1")
	require.NoError(t, err)

	// Deterministic instance ids cap the working set at one instance per
	// drawn template, so racing assignments can never exceed the catalog.
	byKind := tasksByKind(tasks)
	assert.LessOrEqual(t, len(byKind[models.TaskKindDaily]), 3)
	assert.LessOrEqual(t, len(byKind[models.TaskKindWeekly]), 2)
	seen := make(map[string]bool)
	for _, task := range tasks {
		assert.False(t, seen[task.ID])
		seen[task.ID] = true
	}
}

func TestAssignInitialTasksEmptyCatalog(t *testing.T) {
	env := newTestEnv(t, &fakeTemplateRepo{taskTemplates: map[string][]*models.TaskTemplate{}})
	ctx := context.Background()

	require.NoError(t, env.service.AssignInitialTasks(ctx, "user1"))

	tasks, err := env.tasks.GetUserTasks(ctx, "user1")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestAssignInitialTasksShortCatalog(t *testing.T) {
	env := newTestEnv(t, &fakeTemplateRepo{
		taskTemplates: map[string][]*models.TaskTemplate{
			models.TaskKindDaily: {taskTemplate("d1", models.TaskKindDaily, 50)},
		},
	})
	ctx := context.Background()

	require.NoError(t, env.service.AssignInitialTasks(ctx, "user1"))

	tasks, err := env.tasks.GetUserTasks(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "d1", tasks[0].TemplateID)
}

// ---- reset -----------------------------------------------------------------

func TestCheckAndResetTasksBeforeBoundary(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, env.service.AssignInitialTasks(ctx, "user1"))

	env.clock.Advance(6 * time.Hour) // same day

	result, err := env.service.CheckAndResetTasks(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 4, result.Checked)
	assert.Zero(t, result.Expired)
	assert.Zero(t, result.Replaced)
}

func TestCheckAndResetTasksDailyBoundary(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, env.service.AssignInitialTasks(ctx, "user1"))

	before, _ := env.tasks.GetUserTasks(ctx, "user1")
	progressiveID := ""
	for _, task := range before {
		if task.Kind == models.TaskKindProgressive {
			progressiveID = task.ID
		}
	}

	env.clock.Advance(24 * time.Hour)

	result, err := env.service.CheckAndResetTasks(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Expired, "only the daily instances expire")
	assert.Equal(t, 2, result.Replaced)

	after, err := env.tasks.GetUserTasks(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, after, 4)

	byKind := tasksByKind(after)
	assert.Len(t, byKind[models.TaskKindDaily], 2)
	for _, task := range byKind[models.TaskKindDaily] {
		assert.Equal(t, env.clock.Now(), task.LastReset)
		assert.False(t, task.Completed)
	}

	// Progressive instances survive every boundary.
	found := false
	for _, task := range after {
		if task.ID == progressiveID {
			found = true
		}
	}
	assert.True(t, found)

	// No duplicate templates within a kind after replacement.
	seen := make(map[string]bool)
	for _, task := range byKind[models.TaskKindDaily] {
		assert.False(t, seen[task.TemplateID])
		seen[task.TemplateID] = true
	}
}

func TestCheckAndResetTasksIdempotent(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, env.service.AssignInitialTasks(ctx, "user1"))

	env.clock.Advance(24 * time.Hour)

	first, err := env.service.CheckAndResetTasks(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 2, first.Expired)

	second, err := env.service.CheckAndResetTasks(ctx, "user1")
	require.NoError(t, err)
	assert.Zero(t, second.Expired)

	tasks, _ := env.tasks.GetUserTasks(ctx, "user1")
	assert.Len(t, tasks, 4)
}

func TestCheckAndResetTasksWeeklyBoundary(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, env.service.AssignInitialTasks(ctx, "user1"))

	// March 10 2026 is a Tuesday; a week later every boundary has passed.
	env.clock.Advance(7 * 24 * time.Hour)

	result, err := env.service.CheckAndResetTasks(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Expired, "dailies and the weekly expire")

	byKind := tasksByKind(mustTasks(t, env, "user1"))
	assert.Len(t, byKind[models.TaskKindDaily], 2)
	assert.Len(t, byKind[models.TaskKindWeekly], 1)
	assert.Len(t, byKind[models.TaskKindProgressive], 1)
}

func TestCheckAndResetTasksExhaustedPool(t *testing.T) {
	// A single daily template and quota 1: the expiring instance's own
	// template is allowed again, so replacement still succeeds.
	catalog := &fakeTemplateRepo{
		taskTemplates: map[string][]*models.TaskTemplate{
			models.TaskKindDaily: {taskTemplate("d1", models.TaskKindDaily, 50)},
		},
	}
	env := newTestEnv(t, catalog)
	env.service.config.DailyTaskCount = 1
	ctx := context.Background()
	require.NoError(t, env.service.AssignInitialTasks(ctx, "user1"))

	env.clock.Advance(24 * time.Hour)

	result, err := env.service.CheckAndResetTasks(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Expired)
	assert.Equal(t, 1, result.Replaced)

	tasks := mustTasks(t, env, "user1")
	require.Len(t, tasks, 1)
	assert.Equal(t, "d1", tasks[0].TemplateID)
	assert.Equal(t, env.clock.Now(), tasks[0].LastReset)
}

func TestCheckAndResetTasksCompletedInstanceIsReplaced(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, env.service.AssignInitialTasks(ctx, "user1"))

	byKind := tasksByKind(mustTasks(t, env, "user1"))
	daily := byKind[models.TaskKindDaily][0]
	_, err := env.service.CompleteTask(ctx, "user1", daily.ID)
	require.NoError(t, err)

	env.clock.Advance(24 * time.Hour)
	_, err = env.service.CheckAndResetTasks(ctx, "user1")
	require.NoError(t, err)

	// Completion state does not survive a boundary.
	for _, task := range mustTasks(t, env, "user1") {
		if task.Kind == models.TaskKindDaily {
			assert.False(t, task.Completed)
		}
	}
}

func mustTasks(t *testing.T, env *testEnv, userID string) []*models.UserTask {
	t.Helper()
	tasks, err := env.tasks.GetUserTasks(context.Background(), userID)
	require.NoError(t, err)
	return tasks
}

// ---- completion ------------------------------------------------------------

func TestCompleteTaskAppliesReward(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, env.service.AssignInitialTasks(ctx, "user1"))

	task := mustTasks(t, env, "user1")[0]

	result, err := env.service.CompleteTask(ctx, "user1", task.ID)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	require.NotNil(t, result.Task)
	assert.True(t, result.Task.Completed)
	require.NotNil(t, result.Task.CompletedAt)
	assert.Equal(t, int64(task.XPReward), result.Progress.TotalXP)

	total, _ := env.xp.GetTotalXP(ctx, "user1")
	assert.Equal(t, int64(task.XPReward), total)
}

func TestCompleteTaskDoubleSubmit(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, env.service.AssignInitialTasks(ctx, "user1"))

	task := mustTasks(t, env, "user1")[0]

	first, err := env.service.CompleteTask(ctx, "user1", task.ID)
	require.NoError(t, err)
	assert.True(t, first.Applied)

	second, err := env.service.CompleteTask(ctx, "user1", task.ID)
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Equal(t, first.Progress.TotalXP, second.Progress.TotalXP, "no double reward")
}

func TestCompleteTaskUnknownAndForeign(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, env.service.AssignInitialTasks(ctx, "user1"))
	require.NoError(t, env.service.AssignInitialTasks(ctx, "user2"))

	result, err := env.service.CompleteTask(ctx, "user1", "no-such-task")
	require.NoError(t, err)
	assert.False(t, result.Applied)

	victim := mustTasks(t, env, "user2")[0]
	result, err = env.service.CompleteTask(ctx, "user1", victim.ID)
	require.NoError(t, err)
	assert.False(t, result.Applied)

	total, _ := env.xp.GetTotalXP(ctx, "user2")
	assert.Zero(t, total, "foreign completion must not touch the owner")
}

func TestCompleteTaskConcurrentXPConservation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, env.service.AssignInitialTasks(ctx, "user1"))

	tasks := mustTasks(t, env, "user1")
	var expected int64
	for _, task := range tasks {
		expected += int64(task.XPReward)
	}

	var wg sync.WaitGroup
	for _, task := range tasks {
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, err := env.service.CompleteTask(ctx, "user1", id)
				assert.NoError(t, err)
			}(task.ID)
		}
	}
	wg.Wait()

	// The store-side compare on Completed lets exactly one submission per
	// task convert its reward, so the concurrent total is exact.
	total, _ := env.xp.GetTotalXP(ctx, "user1")
	assert.Equal(t, expected, total)
}

func TestCompleteTaskRacingSubmissionsAwardOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, env.service.AssignInitialTasks(ctx, "user1"))

	task := mustTasks(t, env, "user1")[0]

	// Hold both submissions at the point where each has loaded the task as
	// pending, then release them together. The conditional completion write
	// lets only one of them through.
	var gate sync.WaitGroup
	gate.Add(2)
	env.tasks.onLoad = func(string) {
		gate.Done()
		gate.Wait()
	}

	results := make(chan *CompletionResult, 2)
	for i := 0; i < 2; i++ {
		go func() {
			result, err := env.service.CompleteTask(ctx, "user1", task.ID)
			assert.NoError(t, err)
			results <- result
		}()
	}

	applied := 0
	for i := 0; i < 2; i++ {
		if r := <-results; r != nil && r.Applied {
			applied++
		}
	}
	assert.Equal(t, 1, applied, "exactly one submission wins the completion write")

	total, _ := env.xp.GetTotalXP(ctx, "user1")
	assert.Equal(t, int64(task.XPReward), total)
}

// ---- leveling and achievements ---------------------------------------------

func TestCompleteTaskLevelUpAndAchievements(t *testing.T) {
	catalog := testCatalog()
	catalog.taskTemplates[models.TaskKindWeekly] = []*models.TaskTemplate{
		taskTemplate("w-big", models.TaskKindWeekly, 300),
	}
	env := newTestEnv(t, catalog)
	ctx := context.Background()
	require.NoError(t, env.service.AssignInitialTasks(ctx, "user1"))

	byKind := tasksByKind(mustTasks(t, env, "user1"))
	weekly := byKind[models.TaskKindWeekly][0]

	// 300 XP jumps from level 1 straight past level 2 into level 3.
	result, err := env.service.CompleteTask(ctx, "user1", weekly.ID)
	require.NoError(t, err)
	assert.True(t, result.LeveledUp)
	assert.Equal(t, 3, result.Progress.Level)

	titles := make([]string, 0, len(result.NewAchievements))
	for _, a := range result.NewAchievements {
		titles = append(titles, a.Title)
	}
	assert.ElementsMatch(t, []string{"Beginner", "Reader", "Bookworm"}, titles,
		"a multi-threshold jump grants every cleared achievement")
}

func TestAchievementsGrantedAtMostOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	first, err := env.service.CheckAndAwardAchievements(ctx, "user1", 120)
	require.NoError(t, err)
	require.Len(t, first, 2) // levels 1 and 2

	again, err := env.service.CheckAndAwardAchievements(ctx, "user1", 200)
	require.NoError(t, err)
	assert.Empty(t, again)

	all, err := env.ach.GetUserAchievements(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAchievementsConcurrentGrantCollapses(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.service.CheckAndAwardAchievements(ctx, "user1", 120)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := env.ach.GetUserAchievements(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, all, 2, "the title index collapses racing grants")
}

// ---- progressive tasks -----------------------------------------------------

func TestAdvanceProgressAccumulatesAndCompletes(t *testing.T) {
	catalog := &fakeTemplateRepo{
		taskTemplates: map[string][]*models.TaskTemplate{
			models.TaskKindProgressive: {
				{ID: "p1", Title: "Template p1", Kind: models.TaskKindProgressive,
					XPReward: 150, Target: 300, ProgressKind: models.ProgressKindPages},
			},
		},
	}
	env := newTestEnv(t, catalog)
	ctx := context.Background()
	require.NoError(t, env.service.AssignInitialTasks(ctx, "user1"))

	result, err := env.service.AdvanceProgress(ctx, "user1", models.ProgressKindPages, 120)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Empty(t, result.Completions)

	task := mustTasks(t, env, "user1")[0]
	assert.Equal(t, 120, task.CurrentProgress)
	assert.False(t, task.Completed)

	// Crossing the target completes through the normal reward path and
	// clamps progress at the target.
	result, err = env.service.AdvanceProgress(ctx, "user1", models.ProgressKindPages, 500)
	require.NoError(t, err)
	require.Len(t, result.Completions, 1)
	assert.True(t, result.Completions[0].Applied)

	task = mustTasks(t, env, "user1")[0]
	assert.True(t, task.Completed)
	assert.Equal(t, 300, task.CurrentProgress)

	total, _ := env.xp.GetTotalXP(ctx, "user1")
	assert.Equal(t, int64(150), total)
}

func TestAdvanceProgressConcurrentCountsConserved(t *testing.T) {
	catalog := &fakeTemplateRepo{
		taskTemplates: map[string][]*models.TaskTemplate{
			models.TaskKindProgressive: {
				{ID: "p1", Title: "Template p1", Kind: models.TaskKindProgressive,
					XPReward: 150, Target: 300, ProgressKind: models.ProgressKindPages},
			},
		},
	}
	env := newTestEnv(t, catalog)
	ctx := context.Background()
	require.NoError(t, env.service.AssignInitialTasks(ctx, "user1"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.service.AdvanceProgress(ctx, "user1", models.ProgressKindPages, 10)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// The store-side increment means no advance overwrites another.
	task := mustTasks(t, env, "user1")[0]
	assert.Equal(t, 100, task.CurrentProgress)
	assert.False(t, task.Completed)
}

func TestAdvanceProgressIgnoresOtherKindsAndCompleted(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, env.service.AssignInitialTasks(ctx, "user1"))

	byKind := tasksByKind(mustTasks(t, env, "user1"))
	progressive := byKind[models.TaskKindProgressive][0]

	result, err := env.service.AdvanceProgress(ctx, "user1", "unknown-kind", 10)
	require.NoError(t, err)
	assert.Zero(t, result.Updated)

	result, err = env.service.AdvanceProgress(ctx, "user1", progressive.ProgressKind, 0)
	require.NoError(t, err)
	assert.Zero(t, result.Updated, "non-positive deltas are ignored")
}

// ---- session path ----------------------------------------------------------

func TestStartSessionAssignsResetsAndLists(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	tasks, err := env.service.StartSession(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, tasks, 4)

	env.clock.Advance(24 * time.Hour)

	tasks, err = env.service.StartSession(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, tasks, 4)
	for _, task := range tasks {
		if task.Kind == models.TaskKindDaily {
			assert.Equal(t, env.clock.Now(), task.LastReset)
		}
	}
}

func TestGetSnapshot(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, env.service.AssignInitialTasks(ctx, "user1"))

	task := mustTasks(t, env, "user1")[0]
	_, err := env.service.CompleteTask(ctx, "user1", task.ID)
	require.NoError(t, err)

	snapshot, err := env.service.GetSnapshot(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, snapshot.Tasks, 4)
	assert.Equal(t, int64(task.XPReward), snapshot.Progress.TotalXP)
}
