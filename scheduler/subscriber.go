package scheduler

// Subscriber handles event subscriptions.
type Subscriber struct {
	done             chan struct{}
	startedHandler   func(SweepStarted)
	completedHandler func(SweepCompleted)
	failedHandler    func(SweepFailed)
	scheduledHandler func(SweepScheduled)
	stoppedHandler   func(SchedulerStopped)
}

// OnSweepStarted sets the handler for SweepStarted events
func OnSweepStarted(fn func(SweepStarted)) func(*Subscriber) {
	return func(s *Subscriber) { s.startedHandler = fn }
}

// OnSweepCompleted sets the handler for SweepCompleted events
func OnSweepCompleted(fn func(SweepCompleted)) func(*Subscriber) {
	return func(s *Subscriber) { s.completedHandler = fn }
}

// OnSweepFailed sets the handler for SweepFailed events
func OnSweepFailed(fn func(SweepFailed)) func(*Subscriber) {
	return func(s *Subscriber) { s.failedHandler = fn }
}

// OnSweepScheduled sets the handler for SweepScheduled events
func OnSweepScheduled(fn func(SweepScheduled)) func(*Subscriber) {
	return func(s *Subscriber) { s.scheduledHandler = fn }
}

// OnSchedulerStopped sets the handler for SchedulerStopped events
func OnSchedulerStopped(fn func(SchedulerStopped)) func(*Subscriber) {
	return func(s *Subscriber) { s.stoppedHandler = fn }
}

// NewSubscriber creates a Subscriber with the given options and starts the dispatch loop.
// Returns a closer function that waits for all events to be processed.
//
// Example:
//
//	closer := scheduler.NewSubscriber(events,
//	  scheduler.OnSweepFailed(func(e scheduler.SweepFailed) { ... }),
//	)
//	defer closer()  // Ensures all events processed before exit
func NewSubscriber(events <-chan Event, opts ...func(*Subscriber)) func() {
	s := &Subscriber{
		done:             make(chan struct{}),
		startedHandler:   func(SweepStarted) {},     // nop by default
		completedHandler: func(SweepCompleted) {},   // nop by default
		failedHandler:    func(SweepFailed) {},      // nop by default
		scheduledHandler: func(SweepScheduled) {},   // nop by default
		stoppedHandler:   func(SchedulerStopped) {}, // nop by default
	}

	for _, opt := range opts {
		opt(s)
	}

	go func() {
		defer close(s.done)
		for ev := range events {
			switch e := ev.(type) {
			case SweepStarted:
				s.startedHandler(e)
			case SweepCompleted:
				s.completedHandler(e)
			case SweepFailed:
				s.failedHandler(e)
			case SweepScheduled:
				s.scheduledHandler(e)
			case SchedulerStopped:
				s.stoppedHandler(e)
			}
		}
	}()

	return func() {
		<-s.done
	}
}
