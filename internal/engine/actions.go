package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rohit0033/live-polling/internal/api"
	"github.com/rohit0033/live-polling/internal/models"
	"github.com/rohit0033/live-polling/internal/push"
)

// SetRole assigns this client's role. Setting a role while connected
// triggers the initial snapshot sync.
func (e *Engine) SetRole(role models.Role) {
	e.enqueue(setRole{role: role})
}

// SetDisplayName records the self-asserted display name.
func (e *Engine) SetDisplayName(name string) {
	e.enqueue(setDisplayName{name: name})
}

// CreatePoll asks the server to create a poll. Teacher-only: any other
// role is a logged no-op, not an error. On success the authoritative
// record goes through the same reconciler path the push echo will take,
// and the event is emitted so other clients see it.
func (e *Engine) CreatePoll(ctx context.Context, question string, options []string, maxTime int, correctAnswers []string) {
	snap := e.Snapshot()
	if snap.Role != models.RoleTeacher {
		log.Warn().Str("role", string(snap.Role)).Msg("create poll ignored for non-teacher role")
		return
	}

	poll, err := e.api.CreatePoll(ctx, api.CreatePollRequest{
		Question:       question,
		Options:        options,
		MaxTime:        maxTime,
		CorrectAnswers: correctAnswers,
		CreatedBy:      snap.DisplayName,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create poll")
		e.notifier.ActionFailed("create poll", err.Error())
		return
	}

	e.enqueue(pollCreated{poll: poll})
	e.emit(push.EventPollCreated, push.PollPayload{Poll: poll})
}

// SubmitAnswer records this student's answer. Requires a registered
// student id; missing identity is a logged no-op. Only an explicit
// success locks the submission in, and any failure resets the
// submitted flag.
func (e *Engine) SubmitAnswer(ctx context.Context, pollID, answer string) {
	snap := e.Snapshot()
	if snap.StudentID == "" || pollID == "" {
		log.Error().Str("poll_id", pollID).Msg("submit answer requires a registered student id and a poll id")
		return
	}

	if err := e.api.SubmitAnswer(ctx, snap.StudentID, pollID, answer); err != nil {
		log.Error().Err(err).Str("poll_id", pollID).Msg("failed to submit answer")
		e.enqueue(answerRejected{})

		var rejection *api.RejectionError
		if errors.As(err, &rejection) {
			e.notifier.ActionFailed("submit answer", rejection.Message)
		}
		return
	}

	e.enqueue(answerAccepted{pollID: pollID, answer: answer})
}

// EndPoll closes a poll. Teacher-only silent no-op otherwise. This is
// the one action that propagates its error so the caller can react;
// on success the closed record flows through the reconciler and the
// end signal is emitted for the server to broadcast.
func (e *Engine) EndPoll(ctx context.Context, pollID string) error {
	snap := e.Snapshot()
	if snap.Role != models.RoleTeacher {
		log.Warn().Str("role", string(snap.Role)).Msg("end poll ignored for non-teacher role")
		return nil
	}

	poll, err := e.api.EndPoll(ctx, pollID)
	if err != nil {
		log.Error().Err(err).Str("poll_id", pollID).Msg("failed to end poll")
		return fmt.Errorf("end poll %s: %w", pollID, err)
	}

	e.enqueue(pollEnded{poll: poll})
	e.emit(push.EventPollEnded, push.EndPollSignal{PollID: pollID})
	return nil
}

// RemoveParticipant kicks a student. Teacher-only silent no-op
// otherwise. No local mutation on success: the roster updates when the
// server's kick event comes back on the push channel.
func (e *Engine) RemoveParticipant(ctx context.Context, studentID string) {
	snap := e.Snapshot()
	if snap.Role != models.RoleTeacher {
		log.Warn().Str("role", string(snap.Role)).Msg("remove participant ignored for non-teacher role")
		return
	}

	if err := e.api.KickStudent(ctx, studentID); err != nil {
		log.Error().Err(err).Str("student_id", studentID).Msg("failed to remove participant")
	}
}

// SendMessage emits a chat message stamped with the local clock. The
// message is not appended locally; it shows up when the server echoes
// it back on the event stream.
func (e *Engine) SendMessage(text string) {
	text = strings.TrimSpace(text)
	snap := e.Snapshot()
	if text == "" || snap.DisplayName == "" {
		log.Debug().Msg("send message requires non-empty text and a display name")
		return
	}

	e.emit(push.EventChatMessage, models.ChatMessage{
		Sender:    snap.DisplayName,
		Text:      text,
		Timestamp: e.clock.Now().UTC().Format(time.RFC3339),
	})
}
