package constants

// Context keys
const (
	ContextKeyUserID  = "user_id"
	ContextKeyProject = "project"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Generation limits
const (
	MinGeneratedTasks = 5
	MaxGeneratedTasks = 15
	// MaxAcceptedTasks is the hard ceiling on subtasks accepted from a
	// generator response; anything above it is treated as malformed.
	MaxAcceptedTasks = 30
)

// Project defaults
const (
	DefaultTimelineDays   = 30
	DefaultEstimatedHours = 2.0
	MinEstimatedHours     = 0.5
)

const SessionName = "planner_session"
