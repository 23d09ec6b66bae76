package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Role defines what a client is allowed to do in a classroom session.
type Role string

const (
	RoleNone    Role = ""
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Session is the identity of one client process: a self-asserted display
// name plus a random session token generated once at startup. StudentID
// is assigned by the server after a successful join and stays empty for
// teachers. Kicked is sticky: once set it is never cleared.
//
// The session is owned by the engine and mutated only on its loop; other
// goroutines read it through engine snapshots.
type Session struct {
	Role         Role
	DisplayName  string
	SessionToken string
	StudentID    string
	Connected    bool
	Kicked       bool
}

// NewSession creates a session with a fresh token. The token format
// mirrors the original client's "session-" prefix so server-side logs
// stay recognizable.
func NewSession() *Session {
	return &Session{
		SessionToken: fmt.Sprintf("session-%s", uuid.NewString()),
	}
}
