package generation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukikurage/project-planner-api/internal/dateutil"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr(t time.Time) *time.Time {
	return &t
}

func undatedTasks(n int) []TaskDescriptor {
	tasks := make([]TaskDescriptor, n)
	for i := range tasks {
		tasks[i] = TaskDescriptor{Title: "task", EstimatedHours: 4}
	}
	return tasks
}

func TestSchedule_PositionalDates(t *testing.T) {
	clock := dateutil.NewManualClock(day("2024-01-01"))
	s := NewScheduler(clock)
	w := Window{Start: day("2024-01-01"), Due: day("2024-01-11")}

	tasks := undatedTasks(5)
	s.Schedule(w, tasks)

	require.NotNil(t, tasks[2].StartDate)
	assert.Equal(t, day("2024-01-05"), *tasks[2].StartDate)
	assert.Equal(t, day("2024-01-07"), *tasks[2].DueDate)

	assert.Equal(t, day("2024-01-01"), *tasks[0].StartDate)
	assert.Equal(t, day("2024-01-11"), *tasks[4].DueDate)
	assertContained(t, w, tasks)
}

func TestSchedule_KeepsUsableSuppliedDates(t *testing.T) {
	clock := dateutil.NewManualClock(day("2024-01-01"))
	s := NewScheduler(clock)
	w := Window{Start: day("2024-01-01"), Due: day("2024-01-31")}

	tasks := []TaskDescriptor{
		{EstimatedHours: 8, StartDate: ptr(day("2024-01-03")), DueDate: ptr(day("2024-01-06"))},
		// no due: derived from the estimate, 20h => 3 days
		{EstimatedHours: 20, StartDate: ptr(day("2024-01-10"))},
		// start before the window is ignored
		{EstimatedHours: 4, StartDate: ptr(day("2023-12-01")), DueDate: ptr(day("2024-03-01"))},
	}
	s.Schedule(w, tasks)

	assert.Equal(t, day("2024-01-03"), *tasks[0].StartDate)
	assert.Equal(t, day("2024-01-06"), *tasks[0].DueDate)
	assert.Equal(t, day("2024-01-10"), *tasks[1].StartDate)
	assert.Equal(t, day("2024-01-13"), *tasks[1].DueDate)
	assertContained(t, w, tasks)
}

func TestSchedule_StrictOrdering(t *testing.T) {
	clock := dateutil.NewManualClock(day("2024-01-01"))
	w := Window{Start: day("2024-01-01"), Due: day("2024-01-31")}
	build := func() []TaskDescriptor {
		return []TaskDescriptor{
			{EstimatedHours: 8, StartDate: ptr(day("2024-01-20"))},
			{EstimatedHours: 8, StartDate: ptr(day("2024-01-05"))},
		}
	}

	strict := NewScheduler(clock)
	tasks := build()
	strict.Schedule(w, tasks)
	assert.Equal(t, day("2024-01-20"), *tasks[1].StartDate)
	assertContained(t, w, tasks)

	loose := NewScheduler(clock)
	loose.StrictOrdering = false
	tasks = build()
	loose.Schedule(w, tasks)
	assert.Equal(t, day("2024-01-05"), *tasks[1].StartDate)
	assertContained(t, w, tasks)
}

func TestSchedule_StartsNoEarlierThanToday(t *testing.T) {
	clock := dateutil.NewManualClock(day("2024-01-15").Add(10 * time.Hour))
	s := NewScheduler(clock)
	w := Window{Start: day("2024-01-01"), Due: day("2024-01-31")}

	tasks := undatedTasks(4)
	tasks[3].StartDate = ptr(day("2024-01-02"))
	s.Schedule(w, tasks)

	for i, task := range tasks {
		assert.False(t, task.StartDate.Before(day("2024-01-15")), "task %d starts before today", i)
	}
	assertContained(t, w, tasks)
}

func TestSchedule_ContainmentWithMixedInput(t *testing.T) {
	clock := dateutil.NewManualClock(day("2024-02-01"))
	s := NewScheduler(clock)

	windows := []Window{
		{Start: day("2024-02-01"), Due: day("2024-02-02")},
		{Start: day("2024-02-01"), Due: day("2024-02-01")},
		{Start: day("2024-02-01"), Due: day("2024-05-01")},
		// inverted window collapses onto its start
		{Start: day("2024-02-10"), Due: day("2024-02-05")},
	}
	for _, w := range windows {
		tasks := []TaskDescriptor{
			{EstimatedHours: 100},
			{EstimatedHours: 1, DueDate: ptr(day("2030-01-01"))},
			{EstimatedHours: 3, StartDate: ptr(day("2024-02-01")), DueDate: ptr(day("2024-01-01"))},
			{EstimatedHours: 0.5, StartDate: ptr(day("2024-04-30"))},
			{EstimatedHours: 12},
		}
		s.Schedule(w, tasks)
		if !w.Due.After(w.Start) {
			w.Due = w.Start
		}
		assertContained(t, w, tasks)
	}
}

func TestSchedule_EmptyTaskList(t *testing.T) {
	s := NewScheduler(nil)
	assert.NotPanics(t, func() {
		s.Schedule(Window{Start: day("2024-01-01"), Due: day("2024-01-02")}, nil)
	})
}

func assertContained(t *testing.T, w Window, tasks []TaskDescriptor) {
	t.Helper()
	for i, task := range tasks {
		require.NotNil(t, task.StartDate, "task %d has no start", i)
		require.NotNil(t, task.DueDate, "task %d has no due", i)
		assert.False(t, task.StartDate.Before(w.Start), "task %d starts before window", i)
		assert.False(t, task.DueDate.Before(*task.StartDate), "task %d ends before it starts", i)
		assert.False(t, task.DueDate.After(w.Due), "task %d ends after window", i)
	}
}
