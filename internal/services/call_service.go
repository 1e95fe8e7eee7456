package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"monobase/internal/ice"
	"monobase/internal/models"
	"monobase/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrCallNotFound     = errors.New("call not found")
	ErrCallEnded        = errors.New("call has ended")
	ErrCallFull         = errors.New("call is full")
	ErrNotParticipant   = errors.New("user is not a participant of this call")
	ErrInvalidCallID    = errors.New("invalid call id")
	ErrInvalidRole      = errors.New("invalid participant role")
	ErrConcurrentUpdate = errors.New("call was modified concurrently")
)

// Call events broadcast to subscribers of a call room.
const (
	EventParticipantJoined = "participant_joined"
	EventParticipantLeft   = "participant_left"
	EventCallEnded         = "call_ended"
)

const maxUpdateAttempts = 3

// CallNotifier fans call events out to connected clients.
type CallNotifier interface {
	NotifyCall(callID, event string, data map[string]interface{})
}

type CallService struct {
	repo            CallRepository
	iceService      *IceService
	notifier        CallNotifier
	maxParticipants int
	timeout         time.Duration
	now             func() time.Time
}

func NewCallService(repo CallRepository, iceService *IceService, notifier CallNotifier, maxParticipants int, timeout time.Duration) *CallService {
	return &CallService{
		repo:            repo,
		iceService:      iceService,
		notifier:        notifier,
		maxParticipants: maxParticipants,
		timeout:         timeout,
		now:             time.Now,
	}
}

// ParseCallID converts a hex call id.
func ParseCallID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidCallID
	}
	return oid, nil
}

func (s *CallService) CreateCall(ctx context.Context, bookingID, hostID string) (*models.VideoCall, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now()
	call := &models.VideoCall{
		BookingID:       bookingID,
		HostID:          hostID,
		Status:          models.CallStatusWaiting,
		Participants:    []models.CallParticipant{},
		MaxParticipants: s.maxParticipants,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, call); err != nil {
		logger.LogError(err, "Failed to create call", map[string]interface{}{
			"booking_id": bookingID,
			"host_id":    hostID,
		})
		return nil, err
	}

	logger.LogCallEvent("call_created", call.ID.Hex(), hostID, map[string]interface{}{
		"booking_id": bookingID,
	})
	return call, nil
}

func (s *CallService) GetCall(ctx context.Context, id string) (*models.VideoCall, error) {
	oid, err := ParseCallID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.repo.FindByID(ctx, oid)
}

func (s *CallService) CallsForBooking(ctx context.Context, bookingID string) ([]models.VideoCall, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.repo.FindByBooking(ctx, bookingID)
}

// JoinCall adds userID to the call and returns the ICE servers the client
// should use for its peer connection. Joining twice is a no-op.
func (s *CallService) JoinCall(ctx context.Context, id, userID string, role models.ParticipantRole) (*models.VideoCall, []ice.Server, error) {
	if !validRole(role) {
		return nil, nil, ErrInvalidRole
	}

	var rejoined bool
	call, err := s.mutate(ctx, id, func(call *models.VideoCall) (bool, error) {
		if call.Status == models.CallStatusEnded {
			return false, ErrCallEnded
		}
		if p := call.Participant(userID); p != nil && p.Present() {
			rejoined = true
			return false, nil
		}
		if call.ActiveParticipants() >= call.MaxParticipants {
			return false, ErrCallFull
		}

		now := s.now()
		call.Participants = append(call.Participants, models.CallParticipant{
			UserID:   userID,
			Role:     role,
			JoinedAt: now,
		})
		if call.Status == models.CallStatusWaiting {
			call.Status = models.CallStatusActive
		}
		if call.StartedAt == nil {
			call.StartedAt = &now
		}
		return true, nil
	})
	if err != nil {
		return nil, nil, err
	}

	if !rejoined {
		s.publish(call, EventParticipantJoined, userID, map[string]interface{}{
			"role":         role,
			"participants": call.ActiveParticipants(),
		})
	}

	return call, s.iceService.Servers(), nil
}

// LeaveCall marks userID as gone. The call returns to waiting when the last
// participant leaves.
func (s *CallService) LeaveCall(ctx context.Context, id, userID string) (*models.VideoCall, error) {
	call, err := s.mutate(ctx, id, func(call *models.VideoCall) (bool, error) {
		if call.Status == models.CallStatusEnded {
			return false, ErrCallEnded
		}
		p := call.Participant(userID)
		if p == nil || !p.Present() {
			return false, ErrNotParticipant
		}

		now := s.now()
		p.LeftAt = &now
		if call.ActiveParticipants() == 0 {
			call.Status = models.CallStatusWaiting
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(call, EventParticipantLeft, userID, map[string]interface{}{
		"participants": call.ActiveParticipants(),
	})
	return call, nil
}

// EndCall terminates the call for everyone. Only the host or someone who
// joined may end it.
func (s *CallService) EndCall(ctx context.Context, id, userID string) (*models.VideoCall, error) {
	call, err := s.mutate(ctx, id, func(call *models.VideoCall) (bool, error) {
		if call.Status == models.CallStatusEnded {
			return false, ErrCallEnded
		}
		if call.HostID != userID && call.Participant(userID) == nil {
			return false, ErrNotParticipant
		}

		now := s.now()
		for i := range call.Participants {
			if call.Participants[i].Present() {
				call.Participants[i].LeftAt = &now
			}
		}
		call.Status = models.CallStatusEnded
		call.EndedAt = &now
		call.EndedBy = userID
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	var duration time.Duration
	if call.StartedAt != nil {
		duration = call.EndedAt.Sub(*call.StartedAt)
	}
	s.publish(call, EventCallEnded, userID, map[string]interface{}{
		"duration_seconds": int64(duration.Seconds()),
	})
	return call, nil
}

// mutate loads the call, applies fn and stores the result, retrying when a
// concurrent writer won the version check. fn returns false to skip the write.
func (s *CallService) mutate(ctx context.Context, id string, fn func(*models.VideoCall) (bool, error)) (*models.VideoCall, error) {
	oid, err := ParseCallID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	for attempt := 1; ; attempt++ {
		call, err := s.repo.FindByID(ctx, oid)
		if err != nil {
			return nil, err
		}

		changed, err := fn(call)
		if err != nil {
			return nil, err
		}
		if !changed {
			return call, nil
		}

		call.UpdatedAt = s.now()
		err = s.repo.Update(ctx, call)
		if err == nil {
			return call, nil
		}
		if !errors.Is(err, ErrConcurrentUpdate) || attempt >= maxUpdateAttempts {
			return nil, fmt.Errorf("call %s: %w", id, err)
		}
		logger.WithField("call_id", id).Debug("Retrying call update after version conflict")
	}
}

func (s *CallService) publish(call *models.VideoCall, event, userID string, data map[string]interface{}) {
	callID := call.ID.Hex()
	logger.LogCallEvent(event, callID, userID, data)

	if s.notifier == nil {
		return
	}
	payload := map[string]interface{}{
		"user_id": userID,
		"status":  call.Status,
	}
	for k, v := range data {
		payload[k] = v
	}
	s.notifier.NotifyCall(callID, event, payload)
}

func validRole(role models.ParticipantRole) bool {
	switch role {
	case models.RolePatient, models.RoleProvider, models.RoleObserver:
		return true
	}
	return false
}
