package generation

import (
	"math"
	"time"

	"github.com/yukikurage/project-planner-api/internal/dateutil"
)

// Window is the [Start, Due] interval a project's subtasks must fit in.
type Window struct {
	Start time.Time
	Due   time.Time
}

// Scheduler assigns start and due dates to generated subtasks. Dates
// supplied by the generator are kept when they are usable; otherwise dates
// are derived from the task's position in the set.
type Scheduler struct {
	clock dateutil.Clock

	// StrictOrdering pulls each task's start forward to its predecessor's
	// start, so start dates never decrease with the task index even when
	// supplied dates are trusted.
	StrictOrdering bool
}

func NewScheduler(clock dateutil.Clock) *Scheduler {
	if clock == nil {
		clock = dateutil.SystemClock{}
	}
	return &Scheduler{clock: clock, StrictOrdering: true}
}

// Schedule sets StartDate and DueDate on every task so that
// w.Start <= start <= due <= w.Due.
func (s *Scheduler) Schedule(w Window, tasks []TaskDescriptor) {
	n := len(tasks)
	if n == 0 {
		return
	}
	if !w.Due.After(w.Start) {
		w.Due = w.Start
	}

	days := dateutil.DaysBetween(w.Start, w.Due)
	today := dateutil.StartOfDay(s.clock.Now().In(w.Start.Location()))
	earliest := w.Start
	if today.After(w.Start) && !today.After(w.Due) {
		earliest = today
	}

	var prevStart time.Time
	for i := range tasks {
		t := &tasks[i]

		var start time.Time
		trusted := t.StartDate != nil &&
			!t.StartDate.Before(w.Start) &&
			!t.StartDate.Before(today) &&
			!t.StartDate.After(w.Due)
		if trusted {
			start = *t.StartDate
		} else {
			offset := int(math.Floor(float64(i) / float64(n) * float64(days)))
			start = dateutil.Min(dateutil.Max(dateutil.AddDays(w.Start, offset), earliest), w.Due)
		}
		if s.StrictOrdering && i > 0 && start.Before(prevStart) {
			start = prevStart
		}

		var due time.Time
		switch {
		case t.DueDate != nil && t.DueDate.After(start) && !t.DueDate.After(w.Due):
			due = *t.DueDate
		case trusted:
			due = dateutil.Min(dateutil.AddDays(start, dateutil.DurationDays(t.EstimatedHours)), w.Due)
		default:
			due = dateutil.Proportional(w.Start, w.Due, float64(i+1)/float64(n))
		}

		start = dateutil.Clamp(start, w.Start, w.Due)
		due = dateutil.Clamp(due, start, w.Due)

		t.StartDate = &start
		t.DueDate = &due
		prevStart = start
	}
}
