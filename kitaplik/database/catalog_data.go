package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kitaplik/portal/kitaplik/database/models"
)

// InitializeCatalogData inserts the default task and achievement templates
// when the catalog collections are empty. Existing catalogs are left alone so
// librarian edits survive restarts.
func (d *DB) InitializeCatalogData(ctx context.Context) error {
	taskCount, err := d.Collection(CollTaskTemplates).CountDocuments(ctx, map[string]any{})
	if err != nil {
		return fmt.Errorf("failed to count task templates: %w", err)
	}

	if taskCount == 0 {
		slog.Info("Seeding default task templates...")
		docs := make([]any, 0, len(defaultTaskTemplates))
		now := time.Now()
		for i := range defaultTaskTemplates {
			tpl := defaultTaskTemplates[i]
			tpl.CreatedAt = now
			docs = append(docs, tpl)
		}
		if _, err := d.Collection(CollTaskTemplates).InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("failed to seed task templates: %w", err)
		}
		slog.Info("Task templates seeded", slog.Int("count", len(docs)))
	} else {
		slog.Info("Task catalog already initialized, skipping",
			slog.Int64("existing_templates", taskCount))
	}

	achCount, err := d.Collection(CollAchievementTemplates).CountDocuments(ctx, map[string]any{})
	if err != nil {
		return fmt.Errorf("failed to count achievement templates: %w", err)
	}

	if achCount == 0 {
		slog.Info("Seeding default achievement templates...")
		docs := make([]any, 0, len(defaultAchievementTemplates))
		now := time.Now()
		for i := range defaultAchievementTemplates {
			tpl := defaultAchievementTemplates[i]
			tpl.CreatedAt = now
			docs = append(docs, tpl)
		}
		if _, err := d.Collection(CollAchievementTemplates).InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("failed to seed achievement templates: %w", err)
		}
		slog.Info("Achievement templates seeded", slog.Int("count", len(docs)))
	}

	return nil
}

var defaultTaskTemplates = []models.TaskTemplate{
	// Daily
	{
		ID:          "daily-reading",
		Title:       "Günlük Okuma",
		Description: "En az 30 dakika kitap okuyun",
		Kind:        models.TaskKindDaily,
		XPReward:    50,
	},
	{
		ID:          "daily-catalog-browse",
		Title:       "Katalog İncelemesi",
		Description: "Kütüphane kataloğunu inceleyin ve yeni kitaplar keşfedin",
		Kind:        models.TaskKindDaily,
		XPReward:    25,
	},
	{
		ID:          "daily-library-visit",
		Title:       "Kütüphane Ziyareti",
		Description: "Kütüphaneyi ziyaret edin ve çalışma alanlarını kullanın",
		Kind:        models.TaskKindDaily,
		XPReward:    40,
	},

	// Weekly
	{
		ID:          "weekly-book-finish",
		Title:       "Kitap Bitirme",
		Description: "Bir kitabı tamamlayın",
		Kind:        models.TaskKindWeekly,
		XPReward:    200,
	},
	{
		ID:          "weekly-book-review",
		Title:       "Kitap İncelemesi",
		Description: "Okuduğunuz bir kitap hakkında detaylı inceleme yazın",
		Kind:        models.TaskKindWeekly,
		XPReward:    100,
	},
	{
		ID:          "weekly-research",
		Title:       "Araştırma Projesi",
		Description: "Kütüphane kaynaklarını kullanarak bir araştırma projesi yapın",
		Kind:        models.TaskKindWeekly,
		XPReward:    180,
	},

	// Progressive
	{
		ID:           "progressive-page-marathon",
		Title:        "Sayfa Maratonu",
		Description:  "Toplam 300 sayfa okuyun",
		Kind:         models.TaskKindProgressive,
		XPReward:     150,
		Target:       300,
		ProgressKind: models.ProgressKindPages,
	},
	{
		ID:           "progressive-borrow-streak",
		Title:        "Ödünç Alma Serisi",
		Description:  "3 kitap ödünç alın",
		Kind:         models.TaskKindProgressive,
		XPReward:     120,
		Target:       3,
		ProgressKind: models.ProgressKindBorrows,
	},
	{
		ID:           "progressive-favorite-hunter",
		Title:        "Favori Avcısı",
		Description:  "5 kitabı favorilerinize ekleyin",
		Kind:         models.TaskKindProgressive,
		XPReward:     75,
		Target:       5,
		ProgressKind: models.ProgressKindFavorites,
	},
}

var defaultAchievementTemplates = []models.AchievementTemplate{
	{
		ID:          "achievement-level-5",
		Level:       5,
		Title:       "Yeni Başlayan",
		Description: "5. seviyeye ulaştığınız için bu başarımı almaya hak kazandınız.",
		Icon:        "🌱",
		XPReward:    100,
	},
	{
		ID:          "achievement-level-10",
		Level:       10,
		Title:       "Orta Okuyucu",
		Description: "10. seviyeye ulaştığınız için bu başarımı almaya hak kazandınız.",
		Icon:        "📚",
		XPReward:    200,
	},
	{
		ID:          "achievement-level-15",
		Level:       15,
		Title:       "Deneyimli Okuyucu",
		Description: "15. seviyeye ulaştığınız için bu başarımı almaya hak kazandınız.",
		Icon:        "🎓",
		XPReward:    300,
	},
	{
		ID:          "achievement-level-20",
		Level:       20,
		Title:       "Kitap Kurdu",
		Description: "20. seviyeye ulaştığınız için bu başarımı almaya hak kazandınız.",
		Icon:        "🐛",
		XPReward:    400,
	},
	{
		ID:          "achievement-level-25",
		Level:       25,
		Title:       "Bilge Okuyucu",
		Description: "25. seviyeye ulaştığınız için bu başarımı almaya hak kazandınız.",
		Icon:        "🦉",
		XPReward:    500,
	},
	{
		ID:          "achievement-level-30",
		Level:       30,
		Title:       "Kütüphane Ustası",
		Description: "30. seviyeye ulaştığınız için bu başarımı almaya hak kazandınız.",
		Icon:        "👑",
		XPReward:    600,
	},
}
