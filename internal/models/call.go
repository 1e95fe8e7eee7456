package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CallStatus string

const (
	CallStatusWaiting CallStatus = "waiting"
	CallStatusActive  CallStatus = "active"
	CallStatusEnded   CallStatus = "ended"
)

type ParticipantRole string

const (
	RolePatient  ParticipantRole = "patient"
	RoleProvider ParticipantRole = "provider"
	RoleObserver ParticipantRole = "observer"
)

// VideoCall is a video consultation attached to a booking.
type VideoCall struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BookingID       string             `bson:"booking_id" json:"booking_id"`
	HostID          string             `bson:"host_id" json:"host_id"`
	Status          CallStatus         `bson:"status" json:"status"`
	Participants    []CallParticipant  `bson:"participants" json:"participants"`
	MaxParticipants int                `bson:"max_participants" json:"max_participants"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	StartedAt       *time.Time         `bson:"started_at,omitempty" json:"started_at,omitempty"`
	EndedAt         *time.Time         `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
	EndedBy         string             `bson:"ended_by,omitempty" json:"ended_by,omitempty"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
	Version         int64              `bson:"version" json:"-"`
}

type CallParticipant struct {
	UserID   string          `bson:"user_id" json:"user_id"`
	Role     ParticipantRole `bson:"role" json:"role"`
	JoinedAt time.Time       `bson:"joined_at" json:"joined_at"`
	LeftAt   *time.Time      `bson:"left_at,omitempty" json:"left_at,omitempty"`
}

// Present reports whether the participant is currently in the call.
func (p CallParticipant) Present() bool {
	return p.LeftAt == nil
}

// ActiveParticipants returns how many participants have joined and not left.
func (c *VideoCall) ActiveParticipants() int {
	n := 0
	for _, p := range c.Participants {
		if p.Present() {
			n++
		}
	}
	return n
}

// Participant returns the latest entry for userID, or nil.
func (c *VideoCall) Participant(userID string) *CallParticipant {
	for i := len(c.Participants) - 1; i >= 0; i-- {
		if c.Participants[i].UserID == userID {
			return &c.Participants[i]
		}
	}
	return nil
}
