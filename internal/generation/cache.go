package generation

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/yukikurage/project-planner-api/internal/constants"
	"github.com/yukikurage/project-planner-api/internal/dateutil"
)

// patternBaseTimeline is the timeline cached hours are normalized to.
const patternBaseTimeline = 30

type patternEntry struct {
	set      *TaskSet
	storedAt time.Time
}

// PatternCache memoizes generated task sets under a coarse project
// signature so structurally similar projects can reuse them. It is bounded
// (least recently used entries are evicted) and entries expire after ttl.
type PatternCache struct {
	entries *lru.Cache[string, patternEntry]
	ttl     time.Duration
	clock   dateutil.Clock
}

// NewPatternCache creates a cache holding at most size patterns. A ttl of
// zero disables expiry.
func NewPatternCache(size int, ttl time.Duration, clock dateutil.Clock) (*PatternCache, error) {
	entries, err := lru.New[string, patternEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create pattern cache: %w", err)
	}
	if clock == nil {
		clock = dateutil.SystemClock{}
	}
	return &PatternCache{entries: entries, ttl: ttl, clock: clock}, nil
}

// Signature is the cache key of a project: category, priority, timeline in
// weeks and a description length bucket.
func Signature(project ProjectDescriptor) string {
	weeks := int(math.Ceil(float64(project.Timeline) / 7))
	return fmt.Sprintf("%s|%s|%dw|%s",
		strings.ToLower(strings.TrimSpace(project.Category)),
		strings.ToLower(string(project.Priority)),
		weeks,
		descriptionBucket(project.Description),
	)
}

func descriptionBucket(description string) string {
	switch n := utf8.RuneCountInString(strings.TrimSpace(description)); {
	case n < 100:
		return "short"
	case n < 400:
		return "medium"
	default:
		return "long"
	}
}

// Get returns the cached pattern for the project, adapted to its timeline.
func (c *PatternCache) Get(project ProjectDescriptor) (*TaskSet, bool) {
	key := Signature(project)
	entry, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.clock.Now().Sub(entry.storedAt) > c.ttl {
		c.entries.Remove(key)
		return nil, false
	}
	return AdaptPattern(entry.set, project.Timeline), true
}

// Put stores a generated set for the project. Hours are normalized to a
// 30 day timeline so Get can rescale them for any project sharing the key.
func (c *PatternCache) Put(project ProjectDescriptor, set *TaskSet) {
	if set == nil || len(set.Subtasks) == 0 {
		return
	}
	c.entries.Add(Signature(project), patternEntry{set: NormalizePattern(set, project.Timeline), storedAt: c.clock.Now()})
}

// NormalizePattern copies a set generated for the given timeline with its
// hours scaled to the 30 day base AdaptPattern expects.
func NormalizePattern(set *TaskSet, timeline int) *TaskSet {
	pattern := set.Clone()
	if timeline <= 0 {
		timeline = patternBaseTimeline
	}
	scale := float64(patternBaseTimeline) / float64(timeline)
	for i := range pattern.Subtasks {
		pattern.Subtasks[i].EstimatedHours *= scale
	}
	pattern.TotalEstimatedHours = pattern.SumHours()
	return pattern
}

// Clear drops every cached pattern.
func (c *PatternCache) Clear() {
	c.entries.Purge()
}

func (c *PatternCache) Len() int {
	return c.entries.Len()
}

// AdaptPattern copies a 30-day normalized pattern for a project with the
// given timeline: hours are multiplied by timeline/30 and rounded to the
// nearest half hour, and everything tied to the original task positions or
// window (dependencies, dates, critical path) is cleared.
func AdaptPattern(pattern *TaskSet, timeline int) *TaskSet {
	out := pattern.Clone()
	if timeline <= 0 {
		timeline = patternBaseTimeline
	}
	scale := float64(timeline) / float64(patternBaseTimeline)
	for i := range out.Subtasks {
		t := &out.Subtasks[i]
		t.EstimatedHours = roundHalfHour(t.EstimatedHours * scale)
		t.Dependencies = []any{}
		t.StartDate = nil
		t.DueDate = nil
	}
	out.CriticalPath = []int{}
	out.TotalEstimatedHours = out.SumHours()
	out.FromCache = true
	return out
}

func roundHalfHour(h float64) float64 {
	return math.Max(math.Round(h*2)/2, constants.MinEstimatedHours)
}
