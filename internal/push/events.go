package push

import (
	"encoding/json"
	"fmt"

	"github.com/rohit0033/live-polling/internal/models"
)

// EventType identifies a push event on the classroom channel. The names
// are the socket event names the classroom server speaks.
type EventType string

const (
	EventPollCreated    EventType = "teacher:createPoll"
	EventResultsUpdated EventType = "poll:resultsUpdate"
	EventPollEnded      EventType = "poll:end"
	EventPollTimeout    EventType = "poll:timeout"
	EventChatMessage    EventType = "chat:message"
	EventStudentJoined  EventType = "student:join"
	EventStudentKicked  EventType = "student:kick"
)

// Event is the wire envelope for all push events, in both directions.
type Event struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewEvent builds an outbound event, marshaling the payload.
func NewEvent(eventType EventType, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Data: data}, nil
}

// PollPayload wraps a full poll record, used by poll lifecycle events.
type PollPayload struct {
	Poll *models.Poll `json:"poll"`
}

// ResultsPayload carries a wholesale replacement of a poll's responses.
type ResultsPayload struct {
	PollID    string         `json:"pollId"`
	Responses map[string]int `json:"responses"`
}

// StudentJoinedPayload announces a student joining the roster.
type StudentJoinedPayload struct {
	Student struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"student"`
}

// StudentKickedPayload announces a student's removal.
type StudentKickedPayload struct {
	StudentID string `json:"studentId"`
}

// EndPollSignal is the outbound payload a teacher emits after ending a
// poll; the server broadcasts the full closed record in response.
type EndPollSignal struct {
	PollID string `json:"pollId"`
}

// ParseEventPayload parses event data into the appropriate payload
// struct. An error means the payload is malformed and must be dropped,
// never applied.
func ParseEventPayload(event Event) (interface{}, error) {
	switch event.Type {
	case EventPollCreated, EventPollEnded, EventPollTimeout:
		var payload PollPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, fmt.Errorf("parse %s payload: %w", event.Type, err)
		}
		if payload.Poll == nil {
			return nil, fmt.Errorf("parse %s payload: missing poll", event.Type)
		}
		return payload, nil

	case EventResultsUpdated:
		var payload ResultsPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, fmt.Errorf("parse %s payload: %w", event.Type, err)
		}
		if payload.Responses == nil {
			return nil, fmt.Errorf("parse %s payload: responses is not a mapping", event.Type)
		}
		return payload, nil

	case EventChatMessage:
		var payload models.ChatMessage
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, fmt.Errorf("parse %s payload: %w", event.Type, err)
		}
		return payload, nil

	case EventStudentJoined:
		var payload StudentJoinedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, fmt.Errorf("parse %s payload: %w", event.Type, err)
		}
		return payload, nil

	case EventStudentKicked:
		var payload StudentKickedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, fmt.Errorf("parse %s payload: %w", event.Type, err)
		}
		return payload, nil

	default:
		return nil, fmt.Errorf("unknown event type: %s", event.Type)
	}
}
