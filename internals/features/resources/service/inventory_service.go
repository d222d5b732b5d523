package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/resources/dto"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/resources/model"
	simModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/model"
)

/* ===============================
   Stock arithmetic
=================================*/

// ApplyAssign takes qty out of stock.
func ApplyAssign(r *model.ResourceModel, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if r.Status == model.ResourceRetired || r.Status == model.ResourceUnderMaintenance {
		return ErrResourceUnavailable
	}
	if r.QuantityAvailable < qty {
		return ErrInsufficientStock
	}
	r.QuantityAvailable -= qty
	r.RecomputeStatus()
	return nil
}

// ApplyReturn puts returned items back and writes damaged items off.
func ApplyReturn(r *model.ResourceModel, assigned, returned, damaged int) error {
	if returned < 0 || damaged < 0 || returned+damaged != assigned {
		return ErrReturnMismatch
	}
	r.QuantityAvailable += returned
	r.QuantityTotal -= damaged
	r.RecomputeStatus()
	return nil
}

// SetTotal changes the total and moves available by the same delta.
func SetTotal(r *model.ResourceModel, total int) error {
	if total < r.Assigned() {
		return ErrTotalBelowAssigned
	}
	r.QuantityAvailable += total - r.QuantityTotal
	r.QuantityTotal = total
	r.RecomputeStatus()
	return nil
}

// SetStatus retires a resource or brings a retired one back.
func SetStatus(r *model.ResourceModel, status string) error {
	switch status {
	case model.ResourceRetired:
		if r.Assigned() > 0 {
			return ErrResourceInUse
		}
		r.Status = model.ResourceRetired
	case model.ResourceAvailable:
		if r.Status == model.ResourceUnderMaintenance {
			return ErrMaintenanceOpen
		}
		r.Status = model.ResourceAvailable
		r.RecomputeStatus()
	}
	return nil
}

/* ===============================
   Transactions
=================================*/

func lockResource(tx *gorm.DB, id uuid.UUID) (*model.ResourceModel, error) {
	var r model.ResourceModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&r, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}
	return &r, nil
}

func saveStock(tx *gorm.DB, r *model.ResourceModel) error {
	return tx.Model(r).Updates(map[string]any{
		"quantity_total":     r.QuantityTotal,
		"quantity_available": r.QuantityAvailable,
		"status":             r.Status,
	}).Error
}

// AssignToEvent reserves stock for an event that is not yet completed or cancelled.
func AssignToEvent(ctx context.Context, db *gorm.DB, resourceID uuid.UUID, req dto.AssignRequest, by *uuid.UUID, now time.Time) (*model.ResourceEventAssignmentModel, *model.ResourceModel, error) {
	var (
		a model.ResourceEventAssignmentModel
		r *model.ResourceModel
	)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ev simModel.SimulationEventModel
		if err := tx.Select("id", "status").First(&ev, "id = ?", req.EventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}
		if ev.Status == simModel.EventCompleted || ev.Status == simModel.EventCancelled {
			return ErrEventClosed
		}

		var err error
		if r, err = lockResource(tx, resourceID); err != nil {
			return err
		}
		if err := ApplyAssign(r, req.Quantity); err != nil {
			return err
		}
		if err := saveStock(tx, r); err != nil {
			return err
		}

		a = model.ResourceEventAssignmentModel{
			ResourceID: r.ID,
			EventID:    ev.ID,
			Quantity:   req.Quantity,
			Status:     model.AssignmentAssigned,
			AssignedAt: now,
			AssignedBy: by,
			Notes:      req.Notes,
		}
		return tx.Create(&a).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &a, r, nil
}

// ReturnFromEvent closes an assignment. Damaged items leave the total.
func ReturnFromEvent(ctx context.Context, db *gorm.DB, assignmentID uuid.UUID, req dto.ReturnRequest, now time.Time) (*model.ResourceEventAssignmentModel, *model.ResourceModel, error) {
	var (
		a model.ResourceEventAssignmentModel
		r *model.ResourceModel
	)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&a, "id = ?", assignmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAssignmentNotFound
			}
			return err
		}
		if a.Status != model.AssignmentAssigned {
			return ErrAlreadyReturned
		}

		var err error
		if r, err = lockResource(tx, a.ResourceID); err != nil {
			return err
		}
		if err := ApplyReturn(r, a.Quantity, req.ReturnedQuantity, req.DamagedQuantity); err != nil {
			return err
		}
		if err := saveStock(tx, r); err != nil {
			return err
		}

		changes := map[string]any{
			"status":            model.AssignmentReturned,
			"returned_at":       now,
			"returned_quantity": req.ReturnedQuantity,
			"damaged_quantity":  req.DamagedQuantity,
		}
		if req.Notes != nil {
			changes["notes"] = *req.Notes
		}
		if err := tx.Model(&a).Updates(changes).Error; err != nil {
			return err
		}
		return tx.First(&a, "id = ?", a.ID).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &a, r, nil
}

// UpdateStock applies a new total and/or status under a row lock.
func UpdateStock(ctx context.Context, db *gorm.DB, resourceID uuid.UUID, total *int, status *string) (*model.ResourceModel, error) {
	var r *model.ResourceModel
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if r, err = lockResource(tx, resourceID); err != nil {
			return err
		}
		if total != nil {
			if err := SetTotal(r, *total); err != nil {
				return err
			}
		}
		if status != nil {
			if err := SetStatus(r, *status); err != nil {
				return err
			}
		}
		return saveStock(tx, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// OpenMaintenance logs work on a resource and marks it under maintenance.
func OpenMaintenance(ctx context.Context, db *gorm.DB, resourceID uuid.UUID, req dto.OpenMaintenanceRequest, by *uuid.UUID, now time.Time) (*model.ResourceMaintenanceLogModel, *model.ResourceModel, error) {
	var (
		l model.ResourceMaintenanceLogModel
		r *model.ResourceModel
	)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if r, err = lockResource(tx, resourceID); err != nil {
			return err
		}
		if r.Status == model.ResourceRetired {
			return ErrResourceUnavailable
		}
		started := now
		if req.StartedAt != nil {
			started = req.StartedAt.UTC()
		}
		l = model.ResourceMaintenanceLogModel{
			ResourceID:      r.ID,
			MaintenanceType: req.MaintenanceType,
			Description:     req.Description,
			Cost:            req.Cost,
			PerformedBy:     req.PerformedBy,
			StartedAt:       started,
			Status:          model.MaintenanceOpen,
			RecordedBy:      by,
		}
		if err := tx.Create(&l).Error; err != nil {
			return err
		}
		r.Status = model.ResourceUnderMaintenance
		return saveStock(tx, r)
	})
	if err != nil {
		return nil, nil, err
	}
	return &l, r, nil
}

// CompleteMaintenance closes a log. The resource leaves maintenance once
// no other log is open.
func CompleteMaintenance(ctx context.Context, db *gorm.DB, logID uuid.UUID, req dto.CompleteMaintenanceRequest, now time.Time) (*model.ResourceMaintenanceLogModel, *model.ResourceModel, error) {
	var (
		l model.ResourceMaintenanceLogModel
		r *model.ResourceModel
	)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&l, "id = ?", logID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMaintenanceNotFound
			}
			return err
		}
		if l.Status != model.MaintenanceOpen {
			return ErrMaintenanceClosed
		}

		done := now
		if req.CompletedAt != nil {
			done = req.CompletedAt.UTC()
		}
		changes := map[string]any{"status": model.MaintenanceCompleted, "completed_at": done}
		if req.Cost != nil {
			changes["cost"] = *req.Cost
		}
		if req.Description != nil {
			changes["description"] = *req.Description
		}
		if err := tx.Model(&l).Updates(changes).Error; err != nil {
			return err
		}
		if err := tx.First(&l, "id = ?", l.ID).Error; err != nil {
			return err
		}

		var err error
		if r, err = lockResource(tx, l.ResourceID); err != nil {
			return err
		}
		var open int64
		if err := tx.Model(&model.ResourceMaintenanceLogModel{}).
			Where("resource_id = ? AND status = ?", r.ID, model.MaintenanceOpen).
			Count(&open).Error; err != nil {
			return err
		}
		if open == 0 && r.Status == model.ResourceUnderMaintenance {
			r.Status = model.ResourceAvailable
			r.RecomputeStatus()
		}
		return saveStock(tx, r)
	})
	if err != nil {
		return nil, nil, err
	}
	return &l, r, nil
}
