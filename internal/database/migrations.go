package database

import (
	"fmt"

	"gorm.io/gorm"
)

type index struct {
	table   string
	name    string
	columns string
}

// Indexes used by the list and aggregation queries. Single column indexes
// declared on the models are created by AutoMigrate.
var indexes = []index{
	{"projects", "idx_projects_owner_due", "owner_id, due_date"},
	{"projects", "idx_projects_owner_status", "owner_id, status"},
	{"subtasks", "idx_subtasks_project_order", "project_id, sort_order"},
	{"subtasks", "idx_subtasks_project_status", "project_id, status"},
}

// AddIndexes creates the composite indexes that do not exist yet.
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.table, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}
	return nil
}
