package repository

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yukikurage/project-planner-api/internal/models"
)

// GormSubtaskRepository is a GORM implementation of SubtaskRepository
type GormSubtaskRepository struct {
	db *gorm.DB
}

// NewSubtaskRepository creates a new SubtaskRepository
func NewSubtaskRepository(db *gorm.DB) SubtaskRepository {
	return &GormSubtaskRepository{db: db}
}

func (r *GormSubtaskRepository) Create(ctx context.Context, subtask *models.Subtask) error {
	return r.db.WithContext(ctx).Create(subtask).Error
}

func (r *GormSubtaskRepository) CreateBatch(ctx context.Context, subtasks []models.Subtask) error {
	if len(subtasks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&subtasks).Error
}

func (r *GormSubtaskRepository) FindByID(ctx context.Context, projectID, id uint64) (*models.Subtask, error) {
	var subtask models.Subtask
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).First(&subtask, id).Error; err != nil {
		return nil, err
	}
	return &subtask, nil
}

func (r *GormSubtaskRepository) ListByProject(ctx context.Context, projectID uint64, filter SubtaskFilter) ([]models.Subtask, error) {
	query := r.db.WithContext(ctx).Where("project_id = ?", projectID)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Phase != nil {
		query = query.Where("phase = ?", *filter.Phase)
	}

	subtasks := []models.Subtask{}
	if err := query.Order("sort_order ASC, id ASC").Find(&subtasks).Error; err != nil {
		return nil, err
	}
	return subtasks, nil
}

func (r *GormSubtaskRepository) Update(ctx context.Context, subtask *models.Subtask) error {
	return r.db.WithContext(ctx).Save(subtask).Error
}

func (r *GormSubtaskRepository) UpdateDependencies(ctx context.Context, id uint64, dependencies []uint64) error {
	if dependencies == nil {
		dependencies = []uint64{}
	}
	return r.db.WithContext(ctx).
		Model(&models.Subtask{}).
		Where("id = ?", id).
		Update("dependencies", datatypes.JSONSlice[uint64](dependencies)).Error
}

func (r *GormSubtaskRepository) BulkUpdateStatus(ctx context.Context, projectID uint64, ids []uint64, status models.SubtaskStatus, completedDate *time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Subtask{}).
		Where("project_id = ? AND id IN ? AND status <> ?", projectID, ids, status).
		Updates(map[string]interface{}{"status": status, "completed_date": completedDate})
	return result.RowsAffected, result.Error
}

func (r *GormSubtaskRepository) CountInProject(ctx context.Context, projectID uint64, ids []uint64) (int64, error) {
	var count int64
	if len(ids) == 0 {
		return 0, nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.Subtask{}).
		Where("project_id = ? AND id IN ?", projectID, ids).
		Count(&count).Error
	return count, err
}

func (r *GormSubtaskRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Subtask{}, id).Error
}

func (r *GormSubtaskRepository) DeleteByProject(ctx context.Context, projectID uint64) error {
	return r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.Subtask{}).Error
}

func (r *GormSubtaskRepository) CountByStatus(ctx context.Context, projectID uint64) (StatusCounts, error) {
	var rows []struct {
		Status models.SubtaskStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Subtask{}).
		Select("status, COUNT(*) AS count").
		Where("project_id = ?", projectID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return StatusCounts{}, err
	}

	var counts StatusCounts
	for _, row := range rows {
		counts.Total += row.Count
		switch row.Status {
		case models.SubtaskStatusPending:
			counts.Pending = row.Count
		case models.SubtaskStatusInProgress:
			counts.InProgress = row.Count
		case models.SubtaskStatusCompleted:
			counts.Completed = row.Count
		case models.SubtaskStatusBlocked:
			counts.Blocked = row.Count
		}
	}
	return counts, nil
}

func (r *GormSubtaskRepository) MaxOrder(ctx context.Context, projectID uint64) (int, error) {
	var max sql.NullInt64
	err := r.db.WithContext(ctx).
		Model(&models.Subtask{}).
		Select("MAX(sort_order)").
		Where("project_id = ?", projectID).
		Row().Scan(&max)
	if err != nil {
		return 0, err
	}
	return int(max.Int64), nil
}

func (r *GormSubtaskRepository) OrderTaken(ctx context.Context, projectID uint64, order int, excludeID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Subtask{}).
		Where("project_id = ? AND sort_order = ? AND id <> ?", projectID, order, excludeID).
		Count(&count).Error
	return count > 0, err
}
