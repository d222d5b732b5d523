package service

import "errors"

var (
	ErrResourceNotFound    = errors.New("resource not found")
	ErrAssignmentNotFound  = errors.New("assignment not found")
	ErrMaintenanceNotFound = errors.New("maintenance log not found")
	ErrEventNotFound       = errors.New("simulation event not found")

	ErrInvalidQuantity     = errors.New("quantity must be greater than zero")
	ErrResourceUnavailable = errors.New("resource is retired or under maintenance")
	ErrInsufficientStock   = errors.New("not enough available stock")
	ErrEventClosed         = errors.New("event is completed or cancelled")
	ErrAlreadyReturned     = errors.New("assignment already returned")
	ErrReturnMismatch      = errors.New("returned plus damaged must equal the assigned quantity")
	ErrTotalBelowAssigned  = errors.New("total quantity cannot be below the quantity out on events")
	ErrResourceInUse       = errors.New("resource still has items out on events")
	ErrMaintenanceClosed   = errors.New("maintenance log is already completed")
	ErrMaintenanceOpen     = errors.New("complete the open maintenance first")
)
