package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"

	"github.com/yukikurage/project-planner-api/internal/dateutil"
	"github.com/yukikurage/project-planner-api/internal/generation"
	"github.com/yukikurage/project-planner-api/internal/models"
	"github.com/yukikurage/project-planner-api/internal/repository"
)

// GenerationService runs the subtask generation pipeline for a project:
// cache or generator, scheduling, fallback on failure, batch persistence,
// dependency resolution and progress aggregation.
type GenerationService struct {
	store      repository.Store
	generator  generation.TaskGenerator
	fallback   *generation.Fallback
	scheduler  *generation.Scheduler
	cache      *generation.PatternCache
	aggregator *ProgressAggregator
	locks      *ProjectLocks
	clock      dateutil.Clock
	logger     *zap.Logger
	inflight   singleflight.Group
}

// GenerationDeps groups the collaborators of GenerationService
type GenerationDeps struct {
	Store      repository.Store
	Generator  generation.TaskGenerator
	Fallback   *generation.Fallback
	Scheduler  *generation.Scheduler
	Cache      *generation.PatternCache
	Aggregator *ProgressAggregator
	Locks      *ProjectLocks
	Clock      dateutil.Clock
	Logger     *zap.Logger
}

func NewGenerationService(deps GenerationDeps) *GenerationService {
	return &GenerationService{
		store:      deps.Store,
		generator:  deps.Generator,
		fallback:   deps.Fallback,
		scheduler:  deps.Scheduler,
		cache:      deps.Cache,
		aggregator: deps.Aggregator,
		locks:      deps.Locks,
		clock:      deps.Clock,
		logger:     deps.Logger,
	}
}

// GenerationMetadata describes how a subtask set was produced
type GenerationMetadata struct {
	GenerationID        string
	TotalEstimatedHours float64
	// CriticalPath holds subtask IDs.
	CriticalPath   []uint64
	Milestones     []generation.Milestone
	RiskFactors    []string
	FallbackUsed   bool
	CacheUsed      bool
	FallbackReason generation.FailureReason
	// Existing is set when the project already had subtasks and nothing was
	// generated.
	Existing bool
}

// GenerateResult is the outcome of GenerateSubtasks
type GenerateResult struct {
	Subtasks []models.Subtask
	Metadata GenerationMetadata
}

// GenerateSubtasks produces and stores subtasks for the project. Without
// regenerate a project that already has subtasks is returned unchanged;
// with regenerate its subtasks are replaced and the pattern cache is
// bypassed. Only persistence failures are returned as errors: generation
// problems are answered with the fallback set.
func (s *GenerationService) GenerateSubtasks(ctx context.Context, project *models.Project, regenerate bool) (*GenerateResult, error) {
	if !regenerate {
		if existing, ok, err := s.existingResult(ctx, s.store, project.ID); err != nil || ok {
			return existing, err
		}
	}

	descriptor := generation.DescriptorFromProject(project).WithDefaults(s.clock.Now())
	set, meta := s.produce(ctx, descriptor, regenerate)

	unlock := s.locks.Lock(project.ID)
	defer unlock()

	var result *GenerateResult
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if !regenerate {
			// Another request may have stored subtasks while we were generating.
			existing, ok, err := s.existingResult(ctx, tx, project.ID)
			if err != nil {
				return err
			}
			if ok {
				result = existing
				return nil
			}
		} else if err := tx.Subtasks().DeleteByProject(ctx, project.ID); err != nil {
			return fmt.Errorf("failed to delete existing subtasks: %w", err)
		}

		// The window may have been edited while the set was being produced.
		current, err := findProject(ctx, tx, project.ID)
		if err != nil {
			return err
		}
		if window := generation.DescriptorFromProject(current).WithDefaults(s.clock.Now()).Window(); !sameWindow(window, descriptor.Window()) {
			s.logger.Info("project window changed during generation, rescheduling",
				zap.Uint64("project_id", project.ID),
				zap.Time("start_date", window.Start),
				zap.Time("due_date", window.Due),
			)
			s.scheduler.Schedule(window, set.Subtasks)
		}

		subtasks, err := s.persist(ctx, tx, project.ID, set, !meta.FallbackUsed)
		if err != nil {
			return err
		}
		if _, _, err := s.aggregator.RecalculateTx(ctx, tx, project.ID); err != nil {
			return err
		}

		meta.GenerationID = ulid.Make().String()
		meta.CriticalPath = criticalPathIDs(set.CriticalPath, subtasks)
		result = &GenerateResult{Subtasks: subtasks, Metadata: meta}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Metadata.Existing {
		s.logger.Info("subtasks generated",
			zap.Uint64("project_id", project.ID),
			zap.String("generation_id", result.Metadata.GenerationID),
			zap.Int("subtasks", len(result.Subtasks)),
			zap.Bool("fallback_used", result.Metadata.FallbackUsed),
			zap.Bool("cache_used", result.Metadata.CacheUsed),
		)
	}
	return result, nil
}

// ClearCache drops every cached pattern and returns how many were removed.
func (s *GenerationService) ClearCache() int {
	n := s.cache.Len()
	s.cache.Clear()
	s.logger.Info("pattern cache cleared", zap.Int("entries", n))
	return n
}

func (s *GenerationService) existingResult(ctx context.Context, store repository.Store, projectID uint64) (*GenerateResult, bool, error) {
	subtasks, err := store.Subtasks().ListByProject(ctx, projectID, repository.SubtaskFilter{})
	if err != nil {
		return nil, false, fmt.Errorf("failed to list subtasks: %w", err)
	}
	if len(subtasks) == 0 {
		return nil, false, nil
	}

	var hours float64
	for _, st := range subtasks {
		hours += st.EstimatedHours
	}
	return &GenerateResult{
		Subtasks: subtasks,
		Metadata: GenerationMetadata{
			TotalEstimatedHours: hours,
			CriticalPath:        []uint64{},
			Milestones:          []generation.Milestone{},
			RiskFactors:         []string{},
			Existing:            true,
		},
	}, true, nil
}

// produce returns a scheduled task set. It never fails: any generation
// failure is answered with the fallback template.
func (s *GenerationService) produce(ctx context.Context, descriptor generation.ProjectDescriptor, bypassCache bool) (*generation.TaskSet, GenerationMetadata) {
	var meta GenerationMetadata

	set, err := s.generate(ctx, descriptor, bypassCache)
	if err != nil {
		failure := generation.AsFailure(err)
		s.logger.Warn("subtask generation failed, using fallback",
			zap.String("project", descriptor.Name),
			zap.String("reason", string(failure.Reason)),
			zap.Error(failure.Err),
		)
		set = s.fallback.Generate(descriptor)
		meta.FallbackUsed = true
		meta.FallbackReason = failure.Reason
	} else {
		s.scheduler.Schedule(descriptor.Window(), set.Subtasks)
		meta.CacheUsed = set.FromCache
	}

	meta.TotalEstimatedHours = set.TotalEstimatedHours
	meta.Milestones = nonNilMilestones(set.Milestones)
	meta.RiskFactors = nonNil(set.RiskFactors)
	return set, meta
}

// generate consults the pattern cache and otherwise calls the generator.
// Concurrent misses for the same signature share one generator call; every
// caller gets its own copy of the result.
func (s *GenerationService) generate(ctx context.Context, descriptor generation.ProjectDescriptor, bypassCache bool) (*generation.TaskSet, error) {
	if !bypassCache {
		if cached, ok := s.cache.Get(descriptor); ok {
			s.logger.Debug("pattern cache hit", zap.String("signature", generation.Signature(descriptor)))
			return cached, nil
		}
	}
	if s.generator == nil {
		return nil, &generation.GenerationFailure{Reason: generation.ReasonProviderUnconfigured, Err: generation.ErrProviderUnconfigured}
	}

	// A regeneration only shares a call with requests for the very same
	// project data; otherwise it would reuse another project's pattern.
	key := generation.Signature(descriptor)
	if bypassCache {
		key = "regenerate|" + descriptorKey(descriptor)
	}
	leader := false
	v, err, _ := s.inflight.Do(key, func() (interface{}, error) {
		leader = true
		set, err := s.generator.Generate(ctx, descriptor)
		if err != nil {
			return nil, err
		}
		s.cache.Put(descriptor, set)
		return &flightResult{
			set:     set,
			key:     descriptorKey(descriptor),
			pattern: generation.NormalizePattern(set, descriptor.Timeline),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	flight, ok := v.(*flightResult)
	if !ok || flight.set == nil {
		return nil, errors.New("generator returned no task set")
	}
	if leader || flight.key == descriptorKey(descriptor) {
		return flight.set.Clone(), nil
	}
	// Joined the call of a similar project: adapt its result like a cache hit.
	s.logger.Debug("reusing concurrent generation for similar project", zap.String("signature", key))
	return generation.AdaptPattern(flight.pattern, descriptor.Timeline), nil
}

type flightResult struct {
	set     *generation.TaskSet
	key     string
	pattern *generation.TaskSet
}

func descriptorKey(d generation.ProjectDescriptor) string {
	return fmt.Sprintf("%s|%s|%d|%s|%s|%s|%s",
		d.Name, d.Description, d.Timeline,
		d.StartDate.Format(time.RFC3339), d.DueDate.Format(time.RFC3339),
		d.Priority, d.Category)
}

// persist stores the set as one batch and then rewrites the index based
// dependencies into the IDs the batch received.
func (s *GenerationService) persist(ctx context.Context, tx repository.Store, projectID uint64, set *generation.TaskSet, aiGenerated bool) ([]models.Subtask, error) {
	subtasks := make([]models.Subtask, len(set.Subtasks))
	orders := batchOrders(set.Subtasks)
	for i, task := range set.Subtasks {
		subtasks[i] = models.Subtask{
			ProjectID:      projectID,
			Title:          task.Title,
			Description:    task.Description,
			Order:          orders[i],
			Priority:       task.Priority,
			EstimatedHours: task.EstimatedHours,
			Status:         models.SubtaskStatusPending,
			Phase:          task.Phase,
			Complexity:     task.Complexity,
			RiskLevel:      task.RiskLevel,
			StartDate:      *task.StartDate,
			DueDate:        *task.DueDate,
			Dependencies:   datatypes.JSONSlice[uint64]{},
			Tags:           datatypes.JSONSlice[string](nonNil(task.Tags)),
			Skills:         datatypes.JSONSlice[string](nonNil(task.Skills)),
			AIGenerated:    aiGenerated,
		}
	}

	if err := tx.Subtasks().CreateBatch(ctx, subtasks); err != nil {
		return nil, fmt.Errorf("failed to store generated subtasks: %w", err)
	}

	ids := make([]uint64, len(subtasks))
	refs := make([][]any, len(subtasks))
	for i := range subtasks {
		ids[i] = subtasks[i].ID
		refs[i] = set.Subtasks[i].Dependencies
	}
	resolved := generation.ResolveDependencies(ids, refs, s.logger.With(zap.Uint64("project_id", projectID)))
	for i, deps := range resolved {
		if len(deps) == 0 {
			continue
		}
		if err := tx.Subtasks().UpdateDependencies(ctx, ids[i], deps); err != nil {
			return nil, fmt.Errorf("failed to store dependencies: %w", err)
		}
		subtasks[i].Dependencies = datatypes.JSONSlice[uint64](deps)
	}
	return subtasks, nil
}

// batchOrders keeps the generator's orders when they are distinct and
// positive, and numbers the tasks 1..n otherwise.
func batchOrders(tasks []generation.TaskDescriptor) []int {
	orders := make([]int, len(tasks))
	seen := make(map[int]bool, len(tasks))
	distinct := true
	for i, t := range tasks {
		if t.Order < 1 || seen[t.Order] {
			distinct = false
		}
		seen[t.Order] = true
		orders[i] = t.Order
	}
	if !distinct {
		for i := range orders {
			orders[i] = i + 1
		}
	}
	return orders
}

func sameWindow(a, b generation.Window) bool {
	return a.Start.Equal(b.Start) && a.Due.Equal(b.Due)
}

func criticalPathIDs(indices []int, subtasks []models.Subtask) []uint64 {
	ids := make([]uint64, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(subtasks) {
			ids = append(ids, subtasks[idx].ID)
		}
	}
	return ids
}

func nonNilMilestones(m []generation.Milestone) []generation.Milestone {
	if m == nil {
		return []generation.Milestone{}
	}
	return m
}
