package engine

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/rohit0033/live-polling/internal/models"
	"github.com/rohit0033/live-polling/internal/push"
)

// task is one unit of work for the engine goroutine. Every state
// mutation in the engine is a task: push events, REST completions,
// local actions, and clock ticks all arrive here, so reapplying a
// server echo of our own change is just an idempotent re-run of the
// same handler.
type task interface {
	apply(e *Engine)
}

// taskForEvent converts a push event into its reconciler task. An error
// means the payload is malformed; the event is logged and dropped.
func taskForEvent(event push.Event) (task, error) {
	payload, err := push.ParseEventPayload(event)
	if err != nil {
		return nil, err
	}

	switch p := payload.(type) {
	case push.PollPayload:
		switch event.Type {
		case push.EventPollCreated:
			return pollCreated{poll: p.Poll}, nil
		case push.EventPollEnded:
			return pollEnded{poll: p.Poll}, nil
		case push.EventPollTimeout:
			return pollTimeout{poll: p.Poll}, nil
		}
	case push.ResultsPayload:
		return resultsUpdated{pollID: p.PollID, responses: p.Responses}, nil
	case models.ChatMessage:
		return chatReceived{message: p}, nil
	case push.StudentJoinedPayload:
		return participantJoined{id: p.Student.ID, name: p.Student.Name}, nil
	case push.StudentKickedPayload:
		return participantKicked{studentID: p.StudentID}, nil
	}
	return nil, fmt.Errorf("no task for event type %s", event.Type)
}

// tick advances the countdown. The value clamps at zero; hitting zero
// never closes the poll, only a server event does.
type tick struct{}

func (tick) apply(e *Engine) {
	if e.remaining != nil && *e.remaining > 0 {
		v := *e.remaining - 1
		e.remaining = &v
	}
}

// connectivity records a transport transition. Coming back up re-runs
// the snapshot sync so a reconnect converges on server state.
type connectivity struct {
	connected bool
}

func (t connectivity) apply(e *Engine) {
	e.session.Connected = t.connected
	if t.connected {
		e.maybeSync()
	}
}

// setRole assigns the client role and triggers the initial sync.
type setRole struct {
	role models.Role
}

func (t setRole) apply(e *Engine) {
	e.session.Role = t.role
	e.maybeSync()
}

// setDisplayName records the self-asserted name; students cannot
// register without one, so it re-evaluates the sync.
type setDisplayName struct {
	name string
}

func (t setDisplayName) apply(e *Engine) {
	e.session.DisplayName = t.name
	e.maybeSync()
}

// pollCreated replaces the current poll wholesale and resets all
// per-poll state. Any pending post-poll display clear is cancelled so
// it cannot wipe the new poll.
type pollCreated struct {
	poll *models.Poll
}

func (t pollCreated) apply(e *Engine) {
	e.cancelDisplayClear()
	e.current = t.poll.Clone()
	e.selectedOption = ""
	e.hasSubmitted = false
	e.waiting = false
	v := t.poll.MaxTime
	e.remaining = &v
	log.Info().Str("poll_id", t.poll.ID).Int("max_time", t.poll.MaxTime).Msg("poll created")
}

// resultsUpdated replaces the current poll's responses wholesale. The
// server owns the tally, so there is nothing to merge.
type resultsUpdated struct {
	pollID    string
	responses map[string]int
}

func (t resultsUpdated) apply(e *Engine) {
	if e.current == nil || e.current.ID != t.pollID {
		log.Debug().Str("poll_id", t.pollID).Msg("results update for a poll that is not current, ignoring")
		return
	}
	responses := make(map[string]int, len(t.responses))
	for option, count := range t.responses {
		responses[option] = count
	}
	e.current.Responses = responses
}

// pollEnded marks the current poll closed and records it in history.
// Only the status flows into the current poll; the payload's record is
// what history keeps. Students get a delayed clear so they can read the
// results before the waiting screen returns.
type pollEnded struct {
	poll *models.Poll
}

func (t pollEnded) apply(e *Engine) {
	closed := t.poll.Clone()
	closed.Status = models.PollStatusClosed
	e.recordConcluded(closed)

	if e.current != nil && e.current.ID == closed.ID {
		e.current.Status = models.PollStatusClosed
	}
	e.remaining = nil
	log.Info().Str("poll_id", closed.ID).Msg("poll ended")

	if e.session.Role == models.RoleStudent {
		e.scheduleDisplayClear(closed.ID)
	}
}

// pollTimeout overwrites the current poll wholesale with the server's
// closed record, guarded on the id, and notifies the teacher.
type pollTimeout struct {
	poll *models.Poll
}

func (t pollTimeout) apply(e *Engine) {
	closed := t.poll.Clone()
	closed.Status = models.PollStatusClosed

	if e.current != nil && e.current.ID == closed.ID {
		e.current = closed.Clone()
	}
	e.recordConcluded(closed)
	e.remaining = nil
	log.Info().Str("poll_id", closed.ID).Msg("poll timed out")

	if e.session.Role == models.RoleTeacher {
		e.notifier.PollEnded(closed.Clone())
	}
}

// recordConcluded upserts a closed poll into history, newest first:
// an existing entry is replaced in place, otherwise the poll is
// prepended. The single ordering policy covers both ended and
// timed-out polls.
func (e *Engine) recordConcluded(poll *models.Poll) {
	for i := range e.history {
		if e.history[i].ID == poll.ID {
			e.history[i] = *poll.Clone()
			return
		}
	}
	e.history = append([]models.Poll{*poll.Clone()}, e.history...)
}

// displayClear returns a student to the waiting screen after the
// post-poll results display. Guarded on the poll id captured at
// schedule time: if a new poll arrived in the window this is a no-op.
type displayClear struct {
	pollID string
}

func (t displayClear) apply(e *Engine) {
	if e.current == nil || e.current.ID != t.pollID {
		log.Debug().Str("poll_id", t.pollID).Msg("stale display clear, ignoring")
		return
	}
	e.current = nil
	e.waiting = true
}

// chatReceived appends a message in arrival order. No dedup and no cap:
// the sender's own messages also arrive here via the server echo, which
// is the single source of ordering truth.
type chatReceived struct {
	message models.ChatMessage
}

func (t chatReceived) apply(e *Engine) {
	e.messages = append(e.messages, t.message)
}

// participantJoined upserts a student into the roster by id. The wire
// payload carries no session token, so the roster's own is used.
type participantJoined struct {
	id   string
	name string
}

func (t participantJoined) apply(e *Engine) {
	roster := make([]models.Participant, 0, len(e.participants)+1)
	for _, p := range e.participants {
		if p.ID != t.id {
			roster = append(roster, p)
		}
	}
	roster = append(roster, models.Participant{
		ID:        t.id,
		Name:      t.name,
		SessionID: e.session.SessionToken,
	})
	e.participants = roster
}

// participantKicked removes a student from the roster. When it is this
// client's own id, the kicked flag is set and never cleared.
type participantKicked struct {
	studentID string
}

func (t participantKicked) apply(e *Engine) {
	roster := make([]models.Participant, 0, len(e.participants))
	for _, p := range e.participants {
		if p.ID != t.studentID {
			roster = append(roster, p)
		}
	}
	e.participants = roster

	if e.session.Role == models.RoleStudent && t.studentID != "" && t.studentID == e.session.StudentID {
		e.session.Kicked = true
		log.Warn().Str("student_id", t.studentID).Msg("this client was kicked from the classroom")
	}
}

// answerAccepted locks in a successful submission. Guarded on the poll
// id so a late response cannot mark a newer poll as answered.
type answerAccepted struct {
	pollID string
	answer string
}

func (t answerAccepted) apply(e *Engine) {
	if e.current == nil || e.current.ID != t.pollID {
		log.Debug().Str("poll_id", t.pollID).Msg("answer accepted for a poll that is not current, ignoring")
		return
	}
	e.hasSubmitted = true
	e.selectedOption = t.answer
}

// answerRejected resets the submitted flag after a failed submission.
type answerRejected struct{}

func (answerRejected) apply(e *Engine) {
	e.hasSubmitted = false
}
