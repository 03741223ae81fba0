package scheduler

import "time"

// Event represents a scheduler lifecycle event
// ------------------------------------------
type Event any

type SweepStarted struct {
	Scheduler string
	Run       int
	StartedAt time.Time
}

type SweepCompleted struct {
	Scheduler string
	Run       int
	Duration  time.Duration
}

type SweepFailed struct {
	Scheduler string
	Run       int
	Err       error
	Duration  time.Duration
}

type SweepScheduled struct {
	Scheduler string
	Run       int
	At        time.Time
	Wait      time.Duration
}

type SchedulerStopped struct {
	Scheduler string
	Runs      int
	Reason    error // ctx.Err() at shutdown
}
