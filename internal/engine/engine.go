package engine

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/rohit0033/live-polling/internal/api"
	"github.com/rohit0033/live-polling/internal/models"
	"github.com/rohit0033/live-polling/internal/push"
)

// PushChannel is the engine's view of the classroom push transport.
// Events and StateChanges are registered once at startup and must remain
// valid across transport-level reconnects.
type PushChannel interface {
	Connect()
	Close() error
	Events() <-chan push.Event
	StateChanges() <-chan bool
	Emit(event push.Event) error
	IsConnected() bool
}

// Notifier receives user-facing side effects the engine cannot render
// itself: the teacher's poll-timeout notification and business-rule
// rejections from the server.
type Notifier interface {
	PollEnded(poll *models.Poll)
	ActionFailed(action, message string)
}

type nopNotifier struct{}

func (nopNotifier) PollEnded(*models.Poll) {}

func (nopNotifier) ActionFailed(string, string) {}

// Engine keeps one client's view of the classroom consistent with the
// server. All state lives on a single goroutine (Run) that consumes
// typed tasks: push events, REST completions, local actions, and clock
// ticks. No two tasks are ever applied concurrently, so handlers need no
// locking; the UI reads immutable snapshots through Snapshot.
type Engine struct {
	session  *models.Session
	api      *api.Client
	channel  PushChannel
	clock    clockwork.Clock
	notifier Notifier

	tasks   chan task
	stopped chan struct{}
	runCtx  context.Context

	// State below is owned by the Run goroutine.
	current        *models.Poll
	history        []models.Poll
	participants   []models.Participant
	messages       []models.ChatMessage
	remaining      *int
	waiting        bool
	selectedOption string
	hasSubmitted   bool

	displayTimer  clockwork.Timer
	displayCancel chan struct{}

	store snapshotStore
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the engine's clock, used by tests with a fake.
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithNotifier installs a notifier for user-facing side effects.
func WithNotifier(notifier Notifier) Option {
	return func(e *Engine) { e.notifier = notifier }
}

// New creates an engine bound to a session, the REST client, and a push
// channel. Nothing runs until Run is called.
func New(session *models.Session, apiClient *api.Client, channel PushChannel, opts ...Option) *Engine {
	e := &Engine{
		session:  session,
		api:      apiClient,
		channel:  channel,
		clock:    clockwork.NewRealClock(),
		notifier: nopNotifier{},
		tasks:    make(chan task, 256),
		stopped:  make(chan struct{}),
		waiting:  true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.publish()
	return e
}

// Run connects the push channel and processes tasks until the context
// is cancelled. The countdown ticker starts here unconditionally and is
// never stopped while the engine runs; it only ever drives the display,
// poll lifecycle stays server-authoritative.
func (e *Engine) Run(ctx context.Context) {
	e.runCtx = ctx
	defer close(e.stopped)

	e.channel.Connect()

	ticker := e.clock.NewTicker(time.Second)
	defer ticker.Stop()

	events := e.channel.Events()
	states := e.channel.StateChanges()

	log.Info().Str("session", e.session.SessionToken).Msg("engine started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("engine shutting down")
			return

		case <-ticker.Chan():
			e.apply(tick{})

		case connected, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			e.apply(connectivity{connected: connected})

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			t, err := taskForEvent(event)
			if err != nil {
				log.Error().Err(err).Str("event_type", string(event.Type)).Msg("dropping malformed push event")
				continue
			}
			e.apply(t)

		case t := <-e.tasks:
			e.apply(t)
		}
	}
}

// apply runs one task on the engine goroutine and publishes the
// resulting snapshot.
func (e *Engine) apply(t task) {
	t.apply(e)
	e.publish()
}

// enqueue hands a task to the engine goroutine. Callers may block
// briefly when the queue is full; after shutdown tasks are discarded.
func (e *Engine) enqueue(t task) {
	select {
	case e.tasks <- t:
	case <-e.stopped:
		log.Debug().Msg("task discarded after engine shutdown")
	}
}

// emit sends an event on the push channel. Failures are logged, not
// returned; the server echoes authoritative state back on the event
// stream either way.
func (e *Engine) emit(eventType push.EventType, payload interface{}) {
	event, err := push.NewEvent(eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build push event")
		return
	}
	if err := e.channel.Emit(event); err != nil {
		log.Warn().Err(err).Str("event_type", string(eventType)).Msg("failed to emit push event")
	}
}
