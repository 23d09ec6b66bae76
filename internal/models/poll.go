package models

// PollStatus defines the lifecycle state of a poll.
type PollStatus string

const (
	PollStatusActive PollStatus = "active"
	PollStatusClosed PollStatus = "closed"
)

// Poll represents one multiple-choice question broadcast to the classroom.
// Field names follow the classroom server's JSON contract, which uses
// Mongo-style `_id` identifiers.
type Poll struct {
	ID             string         `json:"_id"`
	Question       string         `json:"question"`
	Options        []string       `json:"options"`
	Responses      map[string]int `json:"responses"`
	CorrectAnswers []string       `json:"correctAnswers"`
	CreatedBy      string         `json:"createdBy"`
	Status         PollStatus     `json:"status"`
	MaxTime        int            `json:"maxTime"`
	CreatedAt      string         `json:"createdAt"`
}

// Clone returns a deep copy of the poll so callers can hand it out
// without exposing engine-owned state.
func (p *Poll) Clone() *Poll {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Options != nil {
		cp.Options = make([]string, len(p.Options))
		copy(cp.Options, p.Options)
	}
	if p.CorrectAnswers != nil {
		cp.CorrectAnswers = make([]string, len(p.CorrectAnswers))
		copy(cp.CorrectAnswers, p.CorrectAnswers)
	}
	if p.Responses != nil {
		cp.Responses = make(map[string]int, len(p.Responses))
		for k, v := range p.Responses {
			cp.Responses[k] = v
		}
	}
	return &cp
}

// Participant is a student known to the roster. Participants are created
// on join and removed on kick; a disconnect does not remove them.
type Participant struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	SessionID string `json:"sessionId"`
}

// ChatMessage is a single chat entry. Timestamp is ISO-8601 as produced
// by the sending client.
type ChatMessage struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}
