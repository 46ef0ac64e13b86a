package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/yukikurage/project-planner-api/internal/database"
	"github.com/yukikurage/project-planner-api/internal/dateutil"
	"github.com/yukikurage/project-planner-api/internal/generation"
	"github.com/yukikurage/project-planner-api/internal/models"
	"github.com/yukikurage/project-planner-api/internal/repository"
)

// serviceSuite wires every service on an in-memory database with a clock
// stopped at 2024-01-01.
type serviceSuite struct {
	suite.Suite
	db         *gorm.DB
	store      *repository.GormStore
	clock      *dateutil.ManualClock
	logger     *zap.Logger
	locks      *ProjectLocks
	aggregator *ProgressAggregator
	projects   *ProjectService
	subtasks   *SubtaskService
	ctx        context.Context
}

func (suite *serviceSuite) SetupTest() {
	var err error
	suite.db, err = database.OpenSQLite(":memory:")
	suite.Require().NoError(err)
	suite.Require().NoError(database.Migrate(suite.db))

	suite.store = repository.NewStore(suite.db)
	suite.clock = dateutil.NewManualClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	suite.logger = zaptest.NewLogger(suite.T())
	suite.locks = NewProjectLocks()
	suite.aggregator = NewProgressAggregator(suite.store, suite.logger)
	suite.projects = NewProjectService(suite.store, suite.aggregator, suite.locks, suite.clock, suite.logger)
	suite.subtasks = NewSubtaskService(suite.store, suite.aggregator, suite.locks, suite.clock, suite.logger)
	suite.ctx = context.Background()
}

func (suite *serviceSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func (suite *serviceSuite) createProject(start, due string) *models.Project {
	s, d := date(start), date(due)
	project, err := suite.projects.CreateProject(suite.ctx, CreateProjectInput{
		OwnerID:     1,
		Name:        "Launch website",
		Description: "Build and launch the marketing website",
		StartDate:   &s,
		DueDate:     &d,
		Priority:    models.PriorityHigh,
		Category:    "web",
	})
	suite.Require().NoError(err)
	return project
}

func (suite *serviceSuite) createSubtask(project *models.Project, title string, status models.SubtaskStatus, deps ...uint64) *models.Subtask {
	subtask, err := suite.subtasks.CreateSubtask(suite.ctx, project, CreateSubtaskInput{
		Title:        title,
		Description:  title + " details",
		Status:       status,
		Dependencies: deps,
	})
	suite.Require().NoError(err)
	return subtask
}

func (suite *serviceSuite) reloadProject(id uint64) *models.Project {
	project, err := suite.store.Projects().FindByID(suite.ctx, id)
	suite.Require().NoError(err)
	return project
}

func (suite *serviceSuite) newGenerationService(store repository.Store, text generation.TextGenerator) *GenerationService {
	cache, err := generation.NewPatternCache(16, time.Hour, suite.clock)
	suite.Require().NoError(err)
	scheduler := generation.NewScheduler(suite.clock)
	return NewGenerationService(GenerationDeps{
		Store:      store,
		Generator:  generation.NewAIGenerator(text, time.Second, suite.logger),
		Fallback:   generation.NewFallback(suite.clock, scheduler),
		Scheduler:  scheduler,
		Cache:      cache,
		Aggregator: suite.aggregator,
		Locks:      suite.locks,
		Clock:      suite.clock,
		Logger:     suite.logger,
	})
}
