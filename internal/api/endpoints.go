package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rohit0033/live-polling/internal/models"
)

// ActivePoll fetches the currently active poll. It returns (nil, nil)
// when the server reports no active poll, either with a 404 or with an
// empty success envelope; both mean "wait for the teacher".
func (c *Client) ActivePoll(ctx context.Context) (*models.Poll, error) {
	env, status, err := c.call(ctx, http.MethodGet, "/polls/active", nil, http.StatusNotFound)
	if err != nil {
		return nil, fmt.Errorf("fetch active poll: %w", err)
	}
	if status == http.StatusNotFound || !env.Success || len(env.Data) == 0 {
		return nil, nil
	}

	var poll models.Poll
	if err := json.Unmarshal(env.Data, &poll); err != nil {
		return nil, fmt.Errorf("decode active poll: %w", err)
	}
	return &poll, nil
}

// PollHistory fetches all closed polls, newest first.
func (c *Client) PollHistory(ctx context.Context) ([]models.Poll, error) {
	env, _, err := c.call(ctx, http.MethodGet, "/polls/history", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch poll history: %w", err)
	}
	if !env.Success {
		return nil, &RejectionError{Message: env.Error}
	}

	var history []models.Poll
	if err := json.Unmarshal(env.Data, &history); err != nil {
		return nil, fmt.Errorf("decode poll history: %w", err)
	}
	return history, nil
}

// CreatePollRequest is the body for POST /polls/create.
type CreatePollRequest struct {
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	MaxTime        int      `json:"maxTime"`
	CorrectAnswers []string `json:"correctAnswers"`
	CreatedBy      string   `json:"createdBy"`
}

// CreatePoll asks the server to create and broadcast a new poll and
// returns the authoritative created record.
func (c *Client) CreatePoll(ctx context.Context, req CreatePollRequest) (*models.Poll, error) {
	env, _, err := c.call(ctx, http.MethodPost, "/polls/create", req)
	if err != nil {
		return nil, fmt.Errorf("create poll: %w", err)
	}
	if !env.Success {
		return nil, &RejectionError{Message: env.Error}
	}

	var poll models.Poll
	if err := json.Unmarshal(env.Data, &poll); err != nil {
		return nil, fmt.Errorf("decode created poll: %w", err)
	}
	return &poll, nil
}

// EndPoll closes a poll and returns the authoritative closed record.
func (c *Client) EndPoll(ctx context.Context, pollID string) (*models.Poll, error) {
	endpoint := fmt.Sprintf("/polls/%s/end", url.PathEscape(pollID))
	env, _, err := c.call(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("end poll: %w", err)
	}
	if !env.Success {
		return nil, &RejectionError{Message: env.Error}
	}

	var poll models.Poll
	if err := json.Unmarshal(env.Data, &poll); err != nil {
		return nil, fmt.Errorf("decode ended poll: %w", err)
	}
	return &poll, nil
}

type joinRequest struct {
	Name      string `json:"name"`
	SessionID string `json:"sessionId"`
}

type joinResponse struct {
	ID string `json:"_id"`
}

// JoinStudent registers this client as a student and returns the
// server-assigned student id.
func (c *Client) JoinStudent(ctx context.Context, name, sessionToken string) (string, error) {
	env, _, err := c.call(ctx, http.MethodPost, "/students/join", joinRequest{Name: name, SessionID: sessionToken})
	if err != nil {
		return "", fmt.Errorf("join as student: %w", err)
	}
	if !env.Success {
		return "", &RejectionError{Message: env.Error}
	}

	var resp joinResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		return "", fmt.Errorf("decode join response: %w", err)
	}
	return resp.ID, nil
}

type answerRequest struct {
	StudentID string `json:"studentId"`
	PollID    string `json:"pollId"`
	Answer    string `json:"answer"`
}

// SubmitAnswer records a student's answer. Only an explicit success=true
// counts as accepted.
func (c *Client) SubmitAnswer(ctx context.Context, studentID, pollID, answer string) error {
	env, _, err := c.call(ctx, http.MethodPost, "/students/answer", answerRequest{
		StudentID: studentID,
		PollID:    pollID,
		Answer:    answer,
	})
	if err != nil {
		return fmt.Errorf("submit answer: %w", err)
	}
	if !env.Success {
		return &RejectionError{Message: env.Error}
	}
	return nil
}

// KickStudent removes a student from the classroom. The roster update
// arrives through the push channel, not through this response.
func (c *Client) KickStudent(ctx context.Context, studentID string) error {
	endpoint := fmt.Sprintf("/students/kick/%s", url.PathEscape(studentID))
	env, _, err := c.call(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("kick student: %w", err)
	}
	if !env.Success {
		return &RejectionError{Message: env.Error}
	}
	return nil
}
