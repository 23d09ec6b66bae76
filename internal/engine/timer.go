package engine

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// studentResultsDisplay is how long a student keeps seeing the results
// of a concluded poll before returning to the waiting screen.
const studentResultsDisplay = 15 * time.Second

// scheduleDisplayClear arms the one-shot post-poll display timer for the
// given poll id, replacing any previous one. The fired task is guarded
// on the id, so even a timer that already fired cannot clear a newer
// poll. Called only on the engine goroutine.
func (e *Engine) scheduleDisplayClear(pollID string) {
	e.cancelDisplayClear()

	timer := e.clock.NewTimer(studentResultsDisplay)
	cancel := make(chan struct{})
	e.displayTimer = timer
	e.displayCancel = cancel

	done := e.stopped
	go func() {
		select {
		case <-timer.Chan():
			e.enqueue(displayClear{pollID: pollID})
		case <-cancel:
			stopAndDrainTimer(timer)
		case <-done:
			stopAndDrainTimer(timer)
		}
	}()
}

// cancelDisplayClear stops a pending display timer, if any.
func (e *Engine) cancelDisplayClear() {
	if e.displayCancel != nil {
		close(e.displayCancel)
		e.displayCancel = nil
		e.displayTimer = nil
	}
}

// stopAndDrainTimer safely stops a timer and drains its channel, per the
// time.Timer.Stop documentation, so no goroutine is left behind.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
