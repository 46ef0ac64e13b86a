package repository

import (
	"context"

	"gorm.io/gorm"
)

// GormStore is a GORM implementation of Store
type GormStore struct {
	db       *gorm.DB
	projects ProjectRepository
	subtasks SubtaskRepository
}

// NewStore creates a Store on top of db
func NewStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:       db,
		projects: NewProjectRepository(db),
		subtasks: NewSubtaskRepository(db),
	}
}

func (s *GormStore) Projects() ProjectRepository { return s.projects }

func (s *GormStore) Subtasks() SubtaskRepository { return s.subtasks }

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
