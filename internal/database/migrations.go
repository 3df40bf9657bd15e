package database

import (
	"fmt"

	applog "github.com/astrasemi/assistant/internal/logger"
	"github.com/astrasemi/assistant/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type compositeIndex struct {
	model   interface{}
	table   string
	name    string
	columns string
}

// compositeIndexes back the hot listing queries. Single-column indexes are
// declared on the models themselves.
var compositeIndexes = []compositeIndex{
	// task listing: role filter + priority/due ordering
	{&models.Task{}, "tasks", "idx_tasks_role_status", "role_id, status"},
	{&models.Task{}, "tasks", "idx_tasks_role_due_date", "role_id, due_date"},

	// forum listing: pinned partition then recency
	{&models.Post{}, "posts", "idx_posts_pinned_created", "is_pinned, created_at"},
	{&models.Answer{}, "answers", "idx_answers_post_deleted", "post_id, is_deleted"},

	// briefing history
	{&models.BriefingLog{}, "briefing_logs", "idx_briefing_logs_role_generated", "role_id, generated_at"},

	// ticket queue
	{&models.ResetTicket{}, "reset_tickets", "idx_reset_tickets_status_created", "status, created_at"},
}

// AddIndexes creates composite indexes that are missing. It is safe to run
// on every start.
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()

	for _, idx := range compositeIndexes {
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		applog.Log.Info("Created index",
			zap.String("index", idx.name),
			zap.String("table", idx.table),
			zap.String("columns", idx.columns),
		)
	}

	return nil
}
