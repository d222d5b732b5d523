package service

import "errors"

var (
	ErrEventNotFound        = errors.New("simulation event not found")
	ErrInvalidTransition    = errors.New("invalid event status transition")
	ErrScenarioNotPublished = errors.New("scenario must be published before the event")
	ErrEventLocked          = errors.New("event can no longer be changed")

	ErrRegistrationClosed   = errors.New("registration is closed for this event")
	ErrRoleNotTargeted      = errors.New("this event is not open to your role")
	ErrEventFull            = errors.New("event is full")
	ErrAlreadyRegistered    = errors.New("already registered for this event")
	ErrRegistrationRejected = errors.New("registration was rejected")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrRegistrationLocked   = errors.New("registration can no longer be changed")
	ErrInvalidReview        = errors.New("registration cannot be reviewed in its current status")
	ErrUserNotFound         = errors.New("user not found or inactive")

	ErrEventNotOngoing   = errors.New("event is not ongoing")
	ErrAttendanceClosed  = errors.New("attendance can only be recorded for ongoing or completed events")
	ErrNotApproved       = errors.New("participant has no approved registration")
	ErrAlreadyCheckedIn  = errors.New("already checked in")
	ErrNotCheckedIn      = errors.New("not checked in")
	ErrAlreadyCheckedOut = errors.New("already checked out")
)
