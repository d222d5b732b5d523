package service

import "errors"

var (
	ErrTemplateNotFound    = errors.New("certificate template not found")
	ErrInvalidTemplate     = errors.New("certificate template does not render")
	ErrCertificateNotFound = errors.New("certificate not found")
	ErrEventNotFound       = errors.New("simulation event not found")
	ErrEventNotCompleted   = errors.New("certificates are only issued for completed events")
	ErrUserNotFound        = errors.New("user not found")
	ErrNotAttended         = errors.New("participant did not attend the event")
	ErrNotPassed           = errors.New("participant did not pass the event evaluation")
	ErrAlreadyRevoked      = errors.New("certificate is already revoked")
	ErrNumbersExhausted    = errors.New("certificate numbers for this year are used up")
)
