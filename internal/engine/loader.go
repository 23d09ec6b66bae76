package engine

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/rohit0033/live-polling/internal/models"
)

// maybeSync pulls a fresh snapshot from the REST API whenever a role is
// known and the channel is up. It runs on every such re-evaluation
// (role set, name set, reconnect), which is also what implicitly
// retries a failed student registration: there is no dedicated backoff.
// Called only on the engine goroutine.
func (e *Engine) maybeSync() {
	if e.session.Role == models.RoleNone || !e.session.Connected {
		return
	}

	ctx := e.runCtx
	if ctx == nil {
		ctx = context.Background()
	}

	go e.loadActivePoll(ctx)

	if e.session.Role == models.RoleTeacher {
		go e.loadHistory(ctx)
	}

	if e.session.Role == models.RoleStudent && e.session.StudentID == "" && e.session.DisplayName != "" {
		go e.register(ctx, e.session.DisplayName, e.session.SessionToken)
	}
}

func (e *Engine) loadActivePoll(ctx context.Context) {
	poll, err := e.api.ActivePoll(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("active poll fetch failed, falling open to waiting")
	}
	e.enqueue(snapshotLoaded{poll: poll, err: err})
}

func (e *Engine) loadHistory(ctx context.Context) {
	history, err := e.api.PollHistory(ctx)
	if err != nil {
		// History is best-effort; the next sync will try again.
		log.Debug().Err(err).Msg("poll history fetch failed")
		return
	}
	e.enqueue(historyLoaded{history: history})
}

func (e *Engine) register(ctx context.Context, name, sessionToken string) {
	id, err := e.api.JoinStudent(ctx, name, sessionToken)
	if err != nil {
		log.Error().Err(err).Msg("student registration failed, will retry on next state change")
		return
	}
	e.enqueue(joined{studentID: id})
}

// snapshotLoaded applies the pull-fetched active poll. A missing poll or
// a transport failure both fall open to the waiting state, but neither
// may clobber a poll that arrived over the push channel while the fetch
// was in flight.
type snapshotLoaded struct {
	poll *models.Poll
	err  error
}

func (t snapshotLoaded) apply(e *Engine) {
	if t.poll == nil {
		if e.current == nil {
			e.waiting = true
		}
		return
	}
	if e.current != nil && e.current.ID != t.poll.ID {
		log.Debug().Str("poll_id", t.poll.ID).Msg("stale active poll fetch, ignoring")
		return
	}
	e.current = t.poll.Clone()
	v := t.poll.MaxTime
	e.remaining = &v
	e.waiting = false
}

// historyLoaded replaces poll history wholesale with the server's view.
type historyLoaded struct {
	history []models.Poll
}

func (t historyLoaded) apply(e *Engine) {
	history := make([]models.Poll, len(t.history))
	for i := range t.history {
		history[i] = *t.history[i].Clone()
	}
	e.history = history
}

// joined stores the server-assigned student identity. The first
// assignment wins; a duplicate registration response is ignored.
type joined struct {
	studentID string
}

func (t joined) apply(e *Engine) {
	if e.session.StudentID != "" {
		return
	}
	e.session.StudentID = t.studentID
	log.Info().Str("student_id", t.studentID).Msg("registered as student")
}
