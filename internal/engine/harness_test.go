package engine_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/rohit0033/live-polling/internal/api"
	"github.com/rohit0033/live-polling/internal/engine"
	"github.com/rohit0033/live-polling/internal/models"
	"github.com/rohit0033/live-polling/internal/push"
)

// classroomStub plays the classroom server's REST side for engine tests.
// Fields configure responses; requests are recorded for assertions.
type classroomStub struct {
	t *testing.T

	mu        sync.Mutex
	active    *models.Poll
	history   []models.Poll
	joinID    string
	answerErr string
	endErr    bool
	answers   []map[string]string
	kicked    []string

	srv *httptest.Server
}

func newClassroomStub(t *testing.T) *classroomStub {
	t.Helper()
	s := &classroomStub{t: t, joinID: "s1"}

	mux := http.NewServeMux()
	mux.HandleFunc("/polls/active", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		active := s.active.Clone()
		s.mu.Unlock()
		if active == nil {
			s.respond(w, http.StatusNotFound, api.Envelope{Success: false, Error: "No active poll"})
			return
		}
		s.respond(w, http.StatusOK, api.Envelope{Success: true, Data: s.marshal(active)})
	})
	mux.HandleFunc("/polls/history", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		history := append([]models.Poll(nil), s.history...)
		s.mu.Unlock()
		s.respond(w, http.StatusOK, api.Envelope{Success: true, Data: s.marshal(history)})
	})
	mux.HandleFunc("/polls/create", func(w http.ResponseWriter, r *http.Request) {
		var req api.CreatePollRequest
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&req))
		poll := models.Poll{
			ID:             "poll-created-1",
			Question:       req.Question,
			Options:        req.Options,
			Responses:      map[string]int{},
			CorrectAnswers: req.CorrectAnswers,
			CreatedBy:      req.CreatedBy,
			Status:         models.PollStatusActive,
			MaxTime:        req.MaxTime,
		}
		s.respond(w, http.StatusCreated, api.Envelope{Success: true, Data: s.marshal(poll)})
	})
	mux.HandleFunc("/polls/", func(w http.ResponseWriter, r *http.Request) {
		// POST /polls/{id}/end
		s.mu.Lock()
		endErr := s.endErr
		s.mu.Unlock()
		if endErr {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/polls/"), "/end")
		poll := models.Poll{ID: id, Status: models.PollStatusClosed}
		s.respond(w, http.StatusOK, api.Envelope{Success: true, Data: s.marshal(poll)})
	})
	mux.HandleFunc("/students/join", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		joinID := s.joinID
		s.mu.Unlock()
		s.respond(w, http.StatusOK, api.Envelope{Success: true, Data: s.marshal(map[string]string{"_id": joinID})})
	})
	mux.HandleFunc("/students/answer", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&body))
		s.mu.Lock()
		s.answers = append(s.answers, body)
		answerErr := s.answerErr
		s.mu.Unlock()
		if answerErr != "" {
			s.respond(w, http.StatusOK, api.Envelope{Success: false, Error: answerErr})
			return
		}
		s.respond(w, http.StatusOK, api.Envelope{Success: true})
	})
	mux.HandleFunc("/students/kick/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/students/kick/")
		s.mu.Lock()
		s.kicked = append(s.kicked, id)
		s.mu.Unlock()
		s.respond(w, http.StatusOK, api.Envelope{Success: true})
	})

	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *classroomStub) respond(w http.ResponseWriter, status int, env api.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(s.t, json.NewEncoder(w).Encode(env))
}

func (s *classroomStub) marshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	require.NoError(s.t, err)
	return data
}

func (s *classroomStub) recordedAnswers() []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]string(nil), s.answers...)
}

func (s *classroomStub) recordedKicks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.kicked...)
}

// fakeChannel is an in-memory push channel for engine tests.
type fakeChannel struct {
	events chan push.Event
	states chan bool

	mu      sync.Mutex
	emitted []push.Event
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		events: make(chan push.Event, 64),
		states: make(chan bool, 8),
	}
}

func (c *fakeChannel) Connect() {}

func (c *fakeChannel) Close() error { return nil }

func (c *fakeChannel) Events() <-chan push.Event { return c.events }

func (c *fakeChannel) StateChanges() <-chan bool { return c.states }

func (c *fakeChannel) IsConnected() bool { return true }

func (c *fakeChannel) Emit(event push.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitted = append(c.emitted, event)
	return nil
}

func (c *fakeChannel) emittedEvents() []push.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]push.Event(nil), c.emitted...)
}

// pushEvent delivers a server-originated event to the engine.
func (c *fakeChannel) pushEvent(t *testing.T, eventType push.EventType, payload interface{}) {
	t.Helper()
	event, err := push.NewEvent(eventType, payload)
	require.NoError(t, err)
	c.events <- event
}

// recordingNotifier captures engine side effects.
type recordingNotifier struct {
	mu       sync.Mutex
	ended    []string
	failures []string
}

func (n *recordingNotifier) PollEnded(poll *models.Poll) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ended = append(n.ended, poll.ID)
}

func (n *recordingNotifier) ActionFailed(action, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, action+": "+message)
}

func (n *recordingNotifier) endedPolls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.ended...)
}

func (n *recordingNotifier) failed() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.failures...)
}

type testEngine struct {
	eng      *engine.Engine
	clock    *clockwork.FakeClock
	stub     *classroomStub
	channel  *fakeChannel
	notifier *recordingNotifier
}

// startEngine boots a running engine with a fake clock, a stub REST
// server, and a fake push channel already reporting connected.
func startEngine(t *testing.T, role models.Role, name string, configure func(*classroomStub)) *testEngine {
	t.Helper()

	stub := newClassroomStub(t)
	if configure != nil {
		configure(stub)
	}

	channel := newFakeChannel()
	notifier := &recordingNotifier{}
	clock := clockwork.NewFakeClock()
	session := models.NewSession()

	eng := engine.New(session, api.NewClient(stub.srv.URL), channel,
		engine.WithClock(clock),
		engine.WithNotifier(notifier),
	)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go eng.Run(ctx)

	// The countdown ticker is armed unconditionally at startup.
	clock.BlockUntil(1)

	eng.SetDisplayName(name)
	eng.SetRole(role)
	channel.states <- true

	return &testEngine{eng: eng, clock: clock, stub: stub, channel: channel, notifier: notifier}
}

// waitFor polls the engine snapshot until cond holds.
func waitFor(t *testing.T, eng *engine.Engine, cond func(engine.Snapshot) bool, msg string) engine.Snapshot {
	t.Helper()
	var snap engine.Snapshot
	require.Eventually(t, func() bool {
		snap = eng.Snapshot()
		return cond(snap)
	}, 2*time.Second, 10*time.Millisecond, msg)
	return snap
}
