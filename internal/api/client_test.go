package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohit0033/live-polling/internal/api"
	"github.com/rohit0033/live-polling/internal/models"
)

func respond(t *testing.T, w http.ResponseWriter, status int, env api.Envelope) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(env))
}

func dataJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestActivePoll(t *testing.T) {
	t.Run("returns the active poll", func(t *testing.T) {
		poll := models.Poll{ID: "p1", Question: "2+2?", Options: []string{"3", "4"}, Status: models.PollStatusActive, MaxTime: 30}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/polls/active", r.URL.Path)
			respond(t, w, http.StatusOK, api.Envelope{Success: true, Data: dataJSON(t, poll)})
		}))
		defer srv.Close()

		got, err := api.NewClient(srv.URL).ActivePoll(context.Background())
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "p1", got.ID)
		assert.Equal(t, []string{"3", "4"}, got.Options)
	})

	t.Run("404 means no active poll, not an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			respond(t, w, http.StatusNotFound, api.Envelope{Success: false, Error: "No active poll"})
		}))
		defer srv.Close()

		got, err := api.NewClient(srv.URL).ActivePoll(context.Background())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("empty success envelope means no active poll", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			respond(t, w, http.StatusOK, api.Envelope{Success: true})
		}))
		defer srv.Close()

		got, err := api.NewClient(srv.URL).ActivePoll(context.Background())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("transport failure is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		_, err := api.NewClient(srv.URL).ActivePoll(context.Background())
		require.Error(t, err)
	})
}

func TestCreatePoll(t *testing.T) {
	t.Run("returns the created record", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/polls/create", r.URL.Path)
			var req api.CreatePollRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "What?", req.Question)
			assert.Equal(t, "Ms. Rao", req.CreatedBy)

			poll := models.Poll{ID: "p1", Question: req.Question, Options: req.Options, Status: models.PollStatusActive, MaxTime: req.MaxTime}
			respond(t, w, http.StatusCreated, api.Envelope{Success: true, Data: dataJSON(t, poll)})
		}))
		defer srv.Close()

		poll, err := api.NewClient(srv.URL).CreatePoll(context.Background(), api.CreatePollRequest{
			Question:  "What?",
			Options:   []string{"A", "B"},
			MaxTime:   60,
			CreatedBy: "Ms. Rao",
		})
		require.NoError(t, err)
		assert.Equal(t, "p1", poll.ID)
		assert.Equal(t, 60, poll.MaxTime)
	})

	t.Run("success=false is a rejection with the server message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			respond(t, w, http.StatusOK, api.Envelope{Success: false, Error: "another poll is active"})
		}))
		defer srv.Close()

		_, err := api.NewClient(srv.URL).CreatePoll(context.Background(), api.CreatePollRequest{Question: "What?"})
		require.Error(t, err)
		var rejection *api.RejectionError
		require.ErrorAs(t, err, &rejection)
		assert.Equal(t, "another poll is active", rejection.Message)
	})
}

func TestJoinStudent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/students/join", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Asha", body["name"])
		assert.NotEmpty(t, body["sessionId"])
		respond(t, w, http.StatusOK, api.Envelope{Success: true, Data: dataJSON(t, map[string]string{"_id": "s42"})})
	}))
	defer srv.Close()

	id, err := api.NewClient(srv.URL).JoinStudent(context.Background(), "Asha", "session-abc")
	require.NoError(t, err)
	assert.Equal(t, "s42", id)
}

func TestSubmitAnswer(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "s42", body["studentId"])
			assert.Equal(t, "p1", body["pollId"])
			assert.Equal(t, "A", body["answer"])
			respond(t, w, http.StatusOK, api.Envelope{Success: true})
		}))
		defer srv.Close()

		require.NoError(t, api.NewClient(srv.URL).SubmitAnswer(context.Background(), "s42", "p1", "A"))
	})

	t.Run("rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			respond(t, w, http.StatusOK, api.Envelope{Success: false, Error: "already answered"})
		}))
		defer srv.Close()

		err := api.NewClient(srv.URL).SubmitAnswer(context.Background(), "s42", "p1", "A")
		var rejection *api.RejectionError
		require.ErrorAs(t, err, &rejection)
		assert.Equal(t, "already answered", rejection.Message)
	})
}

func TestEndPoll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/polls/p1/end", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		poll := models.Poll{ID: "p1", Status: models.PollStatusClosed}
		respond(t, w, http.StatusOK, api.Envelope{Success: true, Data: dataJSON(t, poll)})
	}))
	defer srv.Close()

	poll, err := api.NewClient(srv.URL).EndPoll(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, models.PollStatusClosed, poll.Status)
}

func TestKickStudent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/students/kick/s9", r.URL.Path)
		assert.Equal(t, http.MethodDelete, r.Method)
		respond(t, w, http.StatusOK, api.Envelope{Success: true})
	}))
	defer srv.Close()

	require.NoError(t, api.NewClient(srv.URL).KickStudent(context.Background(), "s9"))
}

func TestPollHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/polls/history", r.URL.Path)
		history := []models.Poll{{ID: "p2", Status: models.PollStatusClosed}, {ID: "p1", Status: models.PollStatusClosed}}
		respond(t, w, http.StatusOK, api.Envelope{Success: true, Data: dataJSON(t, history)})
	}))
	defer srv.Close()

	history, err := api.NewClient(srv.URL).PollHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "p2", history[0].ID)
}
