package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/suite"

	"github.com/yukikurage/project-planner-api/internal/generation"
	"github.com/yukikurage/project-planner-api/internal/models"
	"github.com/yukikurage/project-planner-api/internal/repository"
)

const plannedResponse = "```json\n" + `{
  "subtasks": [
    {"title": "Design", "description": "Wireframes and visual design", "estimatedHours": 8, "phase": "PLANNING", "dependencies": []},
    {"title": "Build", "description": "Implement the pages", "estimatedHours": 16, "dependencies": [0]},
    {"title": "Ship", "description": "Deploy to production", "estimatedHours": 4, "dependencies": [1, 5, "0"]}
  ],
  "criticalPath": [0, 2],
  "milestones": ["Beta"],
  "riskFactors": ["Scope creep"]
}` + "\n```"

type countingText struct {
	reply string
	calls atomic.Int32
}

func (c *countingText) Generate(_ context.Context, _ string) (string, error) {
	c.calls.Add(1)
	return c.reply, nil
}

// blockingText holds every call until release is closed and closes started
// on the first call.
type blockingText struct {
	reply   string
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func newBlockingText(reply string) *blockingText {
	return &blockingText{reply: reply, started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingText) Generate(ctx context.Context, _ string) (string, error) {
	if b.calls.Add(1) == 1 {
		close(b.started)
	}
	select {
	case <-b.release:
		return b.reply, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type failingStore struct {
	repository.Store
}

func (s failingStore) Subtasks() repository.SubtaskRepository {
	return failingSubtasks{s.Store.Subtasks()}
}

func (s failingStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.Transaction(ctx, func(tx repository.Store) error {
		return fn(failingStore{tx})
	})
}

type failingSubtasks struct {
	repository.SubtaskRepository
}

func (failingSubtasks) CreateBatch(context.Context, []models.Subtask) error {
	return errors.New("disk full")
}

type GenerationServiceTestSuite struct {
	serviceSuite
}

func (suite *GenerationServiceTestSuite) TestGenerateSubtasks_PersistsGeneratedSet() {
	text := &countingText{reply: plannedResponse}
	svc := suite.newGenerationService(suite.store, text)
	project := suite.createProject("2024-01-01", "2024-01-31")

	result, err := svc.GenerateSubtasks(suite.ctx, project, false)
	suite.Require().NoError(err)
	suite.Require().Len(result.Subtasks, 3)
	suite.Equal(int32(1), text.calls.Load())

	design, build, ship := result.Subtasks[0], result.Subtasks[1], result.Subtasks[2]
	suite.Equal([]string{"Design", "Build", "Ship"}, []string{design.Title, build.Title, ship.Title})
	suite.Empty(design.Dependencies)
	suite.Equal([]uint64{design.ID}, []uint64(build.Dependencies))
	suite.Equal([]uint64{build.ID}, []uint64(ship.Dependencies))
	suite.Equal(models.PhasePlanning, design.Phase)

	for i, st := range result.Subtasks {
		suite.NotZero(st.ID)
		suite.Equal(i+1, st.Order)
		suite.True(st.AIGenerated)
		suite.Equal(models.SubtaskStatusPending, st.Status)
		suite.False(st.StartDate.Before(project.StartDate), st.Title)
		suite.False(st.DueDate.After(project.DueDate), st.Title)
		suite.False(st.StartDate.After(st.DueDate), st.Title)
	}

	meta := result.Metadata
	suite.False(meta.FallbackUsed)
	suite.False(meta.CacheUsed)
	suite.False(meta.Existing)
	suite.Empty(meta.FallbackReason)
	suite.InDelta(28.0, meta.TotalEstimatedHours, 0.001)
	suite.Equal([]uint64{design.ID, ship.ID}, meta.CriticalPath)
	suite.Equal([]generation.Milestone{{Name: "Beta"}}, meta.Milestones)
	suite.Equal([]string{"Scope creep"}, meta.RiskFactors)
	_, err = ulid.Parse(meta.GenerationID)
	suite.NoError(err)

	stored, err := suite.subtasks.ListSubtasks(suite.ctx, project.ID, repository.SubtaskFilter{})
	suite.Require().NoError(err)
	suite.Len(stored, 3)
	suite.Equal([]uint64{build.ID}, []uint64(stored[2].Dependencies))

	reloaded := suite.reloadProject(project.ID)
	suite.Equal(0, reloaded.Progress)
	suite.Equal(models.ProjectStatusPending, reloaded.Status)
}

func (suite *GenerationServiceTestSuite) TestGenerateSubtasks_FallbackOnRefusal() {
	svc := suite.newGenerationService(suite.store, &countingText{reply: "Sorry, I can't help with that."})
	project := suite.createProject("2024-01-01", "2024-01-31")

	result, err := svc.GenerateSubtasks(suite.ctx, project, false)
	suite.Require().NoError(err)

	titles := make([]string, len(result.Subtasks))
	for i, st := range result.Subtasks {
		titles[i] = st.Title
		suite.False(st.AIGenerated)
		suite.Contains(st.Tags, "fallback")
		if i > 0 {
			suite.Equal([]uint64{result.Subtasks[i-1].ID}, []uint64(st.Dependencies))
		}
	}
	suite.Equal([]string{
		"Requirements analysis",
		"Project plan and architecture",
		"Environment setup",
		"Core implementation",
		"Integration",
		"Review",
		"Testing and quality assurance",
		"Delivery and handover",
	}, titles)

	suite.True(result.Metadata.FallbackUsed)
	suite.Equal(generation.ReasonMalformedResponse, result.Metadata.FallbackReason)
	suite.Len(result.Metadata.CriticalPath, 8)
	suite.NotEmpty(result.Metadata.GenerationID)
}

func (suite *GenerationServiceTestSuite) TestGenerateSubtasks_UnconfiguredProvider() {
	svc := suite.newGenerationService(suite.store, nil)
	project := suite.createProject("2024-01-01", "2024-01-31")

	result, err := svc.GenerateSubtasks(suite.ctx, project, false)
	suite.Require().NoError(err)
	suite.Len(result.Subtasks, 8)
	suite.True(result.Metadata.FallbackUsed)
	suite.Equal(generation.ReasonProviderUnconfigured, result.Metadata.FallbackReason)
	suite.Zero(svc.ClearCache())
}

func (suite *GenerationServiceTestSuite) TestGenerateSubtasks_ExistingAndRegenerate() {
	text := &countingText{reply: plannedResponse}
	svc := suite.newGenerationService(suite.store, text)
	project := suite.createProject("2024-01-01", "2024-01-31")

	first, err := svc.GenerateSubtasks(suite.ctx, project, false)
	suite.Require().NoError(err)

	again, err := svc.GenerateSubtasks(suite.ctx, project, false)
	suite.Require().NoError(err)
	suite.True(again.Metadata.Existing)
	suite.Empty(again.Metadata.GenerationID)
	suite.Equal(first.Subtasks[0].ID, again.Subtasks[0].ID)
	suite.Equal(int32(1), text.calls.Load())

	replaced, err := svc.GenerateSubtasks(suite.ctx, project, true)
	suite.Require().NoError(err)
	suite.False(replaced.Metadata.Existing)
	suite.False(replaced.Metadata.CacheUsed)
	suite.Equal(int32(2), text.calls.Load())
	suite.NotEqual(first.Subtasks[0].ID, replaced.Subtasks[0].ID)

	stored, err := suite.subtasks.ListSubtasks(suite.ctx, project.ID, repository.SubtaskFilter{})
	suite.Require().NoError(err)
	suite.Len(stored, 3)
	suite.Equal(replaced.Subtasks[0].ID, stored[0].ID)
}

func (suite *GenerationServiceTestSuite) TestGenerateSubtasks_SimilarProjectUsesCache() {
	text := &countingText{reply: plannedResponse}
	svc := suite.newGenerationService(suite.store, text)

	_, err := svc.GenerateSubtasks(suite.ctx, suite.createProject("2024-01-01", "2024-01-31"), false)
	suite.Require().NoError(err)

	similar := suite.createProject("2024-01-01", "2024-01-31")
	result, err := svc.GenerateSubtasks(suite.ctx, similar, false)
	suite.Require().NoError(err)

	suite.Equal(int32(1), text.calls.Load())
	suite.True(result.Metadata.CacheUsed)
	suite.False(result.Metadata.FallbackUsed)
	suite.Require().Len(result.Subtasks, 3)
	for _, st := range result.Subtasks {
		suite.Equal(similar.ID, st.ProjectID)
		suite.Empty(st.Dependencies)
		suite.True(st.AIGenerated)
	}

	suite.Equal(1, svc.ClearCache())
	suite.Zero(svc.ClearCache())
}

func (suite *GenerationServiceTestSuite) TestGenerateSubtasks_ConcurrentSimilarProjectIsAdapted() {
	text := newBlockingText(plannedResponse)
	svc := suite.newGenerationService(suite.store, text)
	longer := suite.createProject("2024-01-01", "2024-01-29")
	shorter := suite.createProject("2024-01-01", "2024-01-23")
	suite.Require().Equal(
		generation.Signature(generation.DescriptorFromProject(longer)),
		generation.Signature(generation.DescriptorFromProject(shorter)),
	)

	var (
		wg                  sync.WaitGroup
		first, second       *GenerateResult
		firstErr, secondErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		first, firstErr = svc.GenerateSubtasks(suite.ctx, longer, false)
	}()
	<-text.started
	go func() {
		defer wg.Done()
		second, secondErr = svc.GenerateSubtasks(suite.ctx, shorter, false)
	}()
	time.Sleep(100 * time.Millisecond)
	close(text.release)
	wg.Wait()

	suite.Require().NoError(firstErr)
	suite.Require().NoError(secondErr)
	suite.Equal(int32(1), text.calls.Load())

	suite.False(first.Metadata.CacheUsed)
	suite.Equal([]float64{8, 16, 4}, hoursOf(first.Subtasks))
	suite.NotEmpty(first.Subtasks[1].Dependencies)

	suite.True(second.Metadata.CacheUsed)
	suite.False(second.Metadata.FallbackUsed)
	suite.Equal([]float64{6.5, 12.5, 3}, hoursOf(second.Subtasks))
	for _, st := range second.Subtasks {
		suite.Equal(shorter.ID, st.ProjectID)
		suite.Empty(st.Dependencies)
		suite.False(st.DueDate.After(shorter.DueDate), st.Title)
	}
}

func (suite *GenerationServiceTestSuite) TestGenerateSubtasks_ReschedulesIntoCurrentWindow() {
	svc := suite.newGenerationService(suite.store, &countingText{reply: plannedResponse})
	project := suite.createProject("2024-01-01", "2024-01-31")
	stale := *project

	due := date("2024-01-10")
	_, err := suite.projects.UpdateProject(suite.ctx, project.ID, UpdateProjectInput{DueDate: &due})
	suite.Require().NoError(err)

	result, err := svc.GenerateSubtasks(suite.ctx, &stale, false)
	suite.Require().NoError(err)
	suite.Require().Len(result.Subtasks, 3)
	for _, st := range result.Subtasks {
		suite.False(st.StartDate.Before(date("2024-01-01")), st.Title)
		suite.False(st.DueDate.After(due), st.Title)
		suite.False(st.StartDate.After(st.DueDate), st.Title)
	}
}

func hoursOf(subtasks []models.Subtask) []float64 {
	hours := make([]float64, len(subtasks))
	for i, st := range subtasks {
		hours[i] = st.EstimatedHours
	}
	return hours
}

func (suite *GenerationServiceTestSuite) TestGenerateSubtasks_PersistenceFailureRollsBack() {
	project := suite.createProject("2024-01-01", "2024-01-31")
	kept := suite.createSubtask(project, "Manual task", models.SubtaskStatusPending)

	svc := suite.newGenerationService(failingStore{suite.store}, &countingText{reply: plannedResponse})
	_, err := svc.GenerateSubtasks(suite.ctx, project, true)
	suite.Require().Error(err)
	suite.Contains(err.Error(), "disk full")

	stored, err := suite.subtasks.ListSubtasks(suite.ctx, project.ID, repository.SubtaskFilter{})
	suite.Require().NoError(err)
	suite.Require().Len(stored, 1)
	suite.Equal(kept.ID, stored[0].ID)
}

func TestGenerationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(GenerationServiceTestSuite))
}
