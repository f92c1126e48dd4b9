// Package domain contains entities without logic, just meta-data.
package domain

import "errors"

const MaxDisplayNameLen = 36

var (
	ErrNameEmpty   = errors.New("display name empty")
	ErrNameTooLong = errors.New("display name too long")
)

// ConnectionID identifies one live transport connection. Never reused.
type ConnectionID string

// Participant is a connection's membership record within a room.
type Participant struct {
	ID          ConnectionID `json:"id"`
	DisplayName string       `json:"username"`
	IsHost      bool         `json:"isHost"`
	JoinedAt    int64        `json:"joinedAt"`
	IsReady     bool         `json:"isReady"`
	Status      string       `json:"status,omitempty"`
}

// NewParticipant avoids raw literals in callers and keeps validation in one place.
func NewParticipant(id ConnectionID, name string, isHost bool, joinedAt int64) (*Participant, error) {
	if len(name) == 0 {
		return nil, ErrNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return nil, ErrNameTooLong
	}
	return &Participant{
		ID:          id,
		DisplayName: name,
		IsHost:      isHost,
		JoinedAt:    joinedAt,
	}, nil
}
