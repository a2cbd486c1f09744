package repositories

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kitaplik/portal/kitaplik/database"
	"github.com/kitaplik/portal/kitaplik/database/models"
	"github.com/kitaplik/portal/kitaplik/logger"
)

const templateCacheSize = 32

// TemplateRepository is the read-only catalog port. Templates change rarely
// (librarian edits), so reads are served through an in-process cache.
type TemplateRepository interface {
	ListTaskTemplates(ctx context.Context, kind string) ([]*models.TaskTemplate, error)
	ListAchievementTemplates(ctx context.Context) ([]*models.AchievementTemplate, error)
	InvalidateCache()
}

type templateRepository struct {
	db    *database.DB
	cache *lru.Cache
}

func NewTemplateRepository(db *database.DB) TemplateRepository {
	cache, _ := lru.New(templateCacheSize)
	return &templateRepository{db: db, cache: cache}
}

func (r *templateRepository) ListTaskTemplates(ctx context.Context, kind string) (templates []*models.TaskTemplate, err error) {
	cacheKey := fmt.Sprintf("tasks:%s", kind)
	if cached, ok := r.cache.Get(cacheKey); ok {
		return cached.([]*models.TaskTemplate), nil
	}

	start := time.Now()
	defer func() { logger.LogQuery("ListTaskTemplates", time.Since(start), err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if kind != "" {
		filter["kind"] = kind
	}

	cursor, err := r.coll(database.CollTaskTemplates).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, &RepositoryError{Operation: "ListTaskTemplates", Entity: "TaskTemplate", Err: err}
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &templates); err != nil {
		return nil, &RepositoryError{Operation: "ListTaskTemplates", Entity: "TaskTemplate", Err: err}
	}

	r.cache.Add(cacheKey, templates)
	return templates, nil
}

func (r *templateRepository) ListAchievementTemplates(ctx context.Context) (templates []*models.AchievementTemplate, err error) {
	const cacheKey = "achievements"
	if cached, ok := r.cache.Get(cacheKey); ok {
		return cached.([]*models.AchievementTemplate), nil
	}

	start := time.Now()
	defer func() { logger.LogQuery("ListAchievementTemplates", time.Since(start), err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.coll(database.CollAchievementTemplates).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "level", Value: 1}}))
	if err != nil {
		return nil, &RepositoryError{Operation: "ListAchievementTemplates", Entity: "AchievementTemplate", Err: err}
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &templates); err != nil {
		return nil, &RepositoryError{Operation: "ListAchievementTemplates", Entity: "AchievementTemplate", Err: err}
	}

	r.cache.Add(cacheKey, templates)
	return templates, nil
}

// InvalidateCache drops all cached listings so the next read hits the store.
// Exposed over POST /catalog/refresh for use after out-of-band catalog edits.
func (r *templateRepository) InvalidateCache() {
	r.cache.Purge()
}

func (r *templateRepository) coll(name string) *mongo.Collection {
	return r.db.Collection(name)
}
