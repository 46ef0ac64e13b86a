package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yukikurage/project-planner-api/internal/config"
	"github.com/yukikurage/project-planner-api/internal/models"
	"github.com/yukikurage/project-planner-api/internal/utils"
)

func TestMigrate_Idempotent(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))

	for _, idx := range indexes {
		assert.True(t, db.Migrator().HasIndex(idx.table, idx.name), idx.name)
	}
}

func TestConnect_SQLite(t *testing.T) {
	db, err := Connect(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	_, err = Connect(&config.DatabaseConfig{Driver: "oracle"}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestPaginate(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for i := 0; i < 5; i++ {
		require.NoError(t, db.Create(&models.Project{OwnerID: 1, Name: "p", Timeline: 1}).Error)
	}

	var page []models.Project
	require.NoError(t, db.Order("id").Scopes(Paginate(utils.NewPaginationParams(2, 2))).Find(&page).Error)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(3), page[0].ID)
}
