package generation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukikurage/project-planner-api/internal/dateutil"
	"github.com/yukikurage/project-planner-api/internal/models"
)

func sampleSet() *TaskSet {
	start := day("2024-01-02")
	return &TaskSet{
		Subtasks: []TaskDescriptor{
			{Title: "A", Description: "a", EstimatedHours: 10, Dependencies: []any{}, Tags: []string{"x"}, Skills: []string{}, StartDate: &start},
			{Title: "B", Description: "b", EstimatedHours: 3, Dependencies: []any{float64(0)}, Tags: []string{}, Skills: []string{}},
		},
		TotalEstimatedHours: 13,
		CriticalPath:        []int{0, 1},
		Milestones:          []Milestone{{Name: "done"}},
		RiskFactors:         []string{"late"},
	}
}

func TestSignature(t *testing.T) {
	base := ProjectDescriptor{Category: " Web ", Priority: models.PriorityHigh, Timeline: 10, Description: "short"}
	assert.Equal(t, "web|high|2w|short", Signature(base))

	same := base
	same.Name = "Another name"
	same.Timeline = 14
	assert.Equal(t, Signature(base), Signature(same))

	long := base
	long.Description = strings.Repeat("x", 500)
	assert.NotEqual(t, Signature(base), Signature(long))

	medium := base
	medium.Description = strings.Repeat("x", 150)
	assert.Equal(t, "web|high|2w|medium", Signature(medium))
}

func TestAdaptPattern(t *testing.T) {
	pattern := sampleSet()

	adapted := AdaptPattern(pattern, 60)
	assert.Equal(t, 20.0, adapted.Subtasks[0].EstimatedHours)
	assert.Equal(t, 6.0, adapted.Subtasks[1].EstimatedHours)
	assert.Equal(t, 26.0, adapted.TotalEstimatedHours)
	assert.True(t, adapted.FromCache)
	assert.Empty(t, adapted.CriticalPath)
	for _, task := range adapted.Subtasks {
		assert.Empty(t, task.Dependencies)
		assert.Nil(t, task.StartDate)
		assert.Nil(t, task.DueDate)
	}

	// the pattern itself is untouched
	assert.Equal(t, 10.0, pattern.Subtasks[0].EstimatedHours)
	assert.NotNil(t, pattern.Subtasks[0].StartDate)
	assert.Equal(t, []int{0, 1}, pattern.CriticalPath)

	small := AdaptPattern(pattern, 1)
	assert.Equal(t, 0.5, small.Subtasks[0].EstimatedHours)
	assert.Equal(t, 0.5, small.Subtasks[1].EstimatedHours)
}

func TestPatternCache_PutGetRescales(t *testing.T) {
	clock := dateutil.NewManualClock(day("2024-01-01"))
	cache, err := NewPatternCache(8, time.Hour, clock)
	require.NoError(t, err)

	project := ProjectDescriptor{Category: "web", Priority: models.PriorityLow, Timeline: 14, Description: "d"}
	cache.Put(project, sampleSet())
	assert.Equal(t, 1, cache.Len())

	// same signature, one day shorter
	other := project
	other.Timeline = 13
	got, ok := cache.Get(project)
	require.True(t, ok)
	assert.Equal(t, 10.0, got.Subtasks[0].EstimatedHours)
	assert.True(t, got.FromCache)

	got, ok = cache.Get(other)
	require.True(t, ok)
	assert.Equal(t, 9.5, got.Subtasks[0].EstimatedHours)

	// mutating a returned set does not leak into the cache
	got.Subtasks[0].Title = "changed"
	again, ok := cache.Get(project)
	require.True(t, ok)
	assert.Equal(t, "A", again.Subtasks[0].Title)
}

func TestPatternCache_Expiry(t *testing.T) {
	clock := dateutil.NewManualClock(day("2024-01-01"))
	cache, err := NewPatternCache(8, time.Hour, clock)
	require.NoError(t, err)

	project := ProjectDescriptor{Category: "ops", Priority: models.PriorityMedium, Timeline: 30}
	cache.Put(project, sampleSet())

	clock.Advance(59 * time.Minute)
	_, ok := cache.Get(project)
	assert.True(t, ok)

	clock.Advance(2 * time.Minute)
	_, ok = cache.Get(project)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestPatternCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache, err := NewPatternCache(2, 0, dateutil.NewManualClock(day("2024-01-01")))
	require.NoError(t, err)

	a := ProjectDescriptor{Category: "a", Timeline: 30}
	b := ProjectDescriptor{Category: "b", Timeline: 30}
	c := ProjectDescriptor{Category: "c", Timeline: 30}

	cache.Put(a, sampleSet())
	cache.Put(b, sampleSet())
	_, ok := cache.Get(a)
	require.True(t, ok)
	cache.Put(c, sampleSet())

	_, ok = cache.Get(b)
	assert.False(t, ok)
	_, ok = cache.Get(a)
	assert.True(t, ok)
	_, ok = cache.Get(c)
	assert.True(t, ok)
}

func TestPatternCache_ClearAndEmptyPut(t *testing.T) {
	cache, err := NewPatternCache(4, 0, nil)
	require.NoError(t, err)

	project := ProjectDescriptor{Category: "x", Timeline: 30}
	cache.Put(project, &TaskSet{})
	assert.Equal(t, 0, cache.Len())

	cache.Put(project, sampleSet())
	cache.Clear()
	_, ok := cache.Get(project)
	assert.False(t, ok)
}

func TestNewPatternCache_InvalidSize(t *testing.T) {
	_, err := NewPatternCache(0, time.Hour, nil)
	assert.Error(t, err)
}
