package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/certificates/model"
	evalService "github.com/JBFaner/DisasterTraining-sub003/internals/features/evaluations/service"
	simModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/model"
	userModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/dbtime"
	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/mail"
)

const numberRetries = 3

// Issued is the outcome of issuing to one participant.
type Issued struct {
	Certificate *model.CertificateModel
	User        *userModel.UserModel
	Event       *simModel.SimulationEventModel
	Created     bool
}

// Skipped names a participant a bulk issue passed over.
type Skipped struct {
	UserID uuid.UUID `json:"user_id"`
	Reason string    `json:"reason"`
}

type BulkResult struct {
	Issued   []model.CertificateModel `json:"issued"`
	Existing int                      `json:"existing"`
	Skipped  []Skipped                `json:"skipped"`
}

// Issue creates a certificate for a participant of a completed event.
// The participant must have attended, and must have passed when the event
// has a finalized evaluation. A live certificate is returned unchanged.
func Issue(ctx context.Context, db *gorm.DB, eventID, userID uuid.UUID, templateID *uuid.UUID, by *uuid.UUID, now time.Time) (*Issued, error) {
	var out *Issued
	var err error
	for attempt := 0; attempt < numberRetries; attempt++ {
		out, err = issueOnce(ctx, db, eventID, userID, templateID, by, now)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
	}
	return out, err
}

func issueOnce(ctx context.Context, db *gorm.DB, eventID, userID uuid.UUID, templateID *uuid.UUID, by *uuid.UUID, now time.Time) (*Issued, error) {
	out := &Issued{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ev simModel.SimulationEventModel
		if err := tx.First(&ev, "id = ?", eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}
		if ev.Status != simModel.EventCompleted {
			return ErrEventNotCompleted
		}
		out.Event = &ev

		var u userModel.UserModel
		if err := tx.First(&u, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		out.User = &u

		var existing model.CertificateModel
		err := tx.Where("user_id = ? AND event_id = ? AND revoked_at IS NULL", userID, eventID).
			Take(&existing).Error
		if err == nil {
			out.Certificate = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var att simModel.AttendanceModel
		if err := tx.Where("event_id = ? AND user_id = ?", eventID, userID).Take(&att).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotAttended
			}
			return err
		}
		if !simModel.Attended(att.Status) {
			return ErrNotAttended
		}

		result, evaluated, err := evalService.FinalizedResult(ctx, tx, eventID, userID)
		if err != nil {
			return err
		}
		if evaluated && (result == nil || !result.Passed) {
			return ErrNotPassed
		}

		tpl, err := pickTemplate(tx, templateID)
		if err != nil {
			return err
		}
		number, err := nextNumber(tx, now.Year())
		if err != nil {
			return err
		}

		data := model.TemplateData{
			ParticipantName:   u.FullName,
			EventTitle:        ev.Title,
			EventDate:         dbtime.FormatDate(dbtime.ToLocal(ev.StartsAt)),
			CertificateNumber: number,
			IssuedDate:        dbtime.FormatDate(dbtime.ToLocal(now)),
		}
		cert := model.CertificateModel{
			Number:           number,
			UserID:           u.ID,
			EventID:          ev.ID,
			RecipientName:    u.FullName,
			VerificationCode: NewVerificationCode(),
			IssuedAt:         now,
			IssuedBy:         by,
		}
		if result != nil {
			data.Score = fmt.Sprintf("%.2f%%", result.Percentage)
			cert.ParticipantEvaluationID = &result.ID
		}
		body := DefaultBody
		if tpl != nil {
			body = tpl.Body
			cert.TemplateID = &tpl.ID
		}
		if cert.RenderedHTML, err = Render(body, data); err != nil {
			return err
		}
		if err := tx.Create(&cert).Error; err != nil {
			return err
		}
		out.Certificate = &cert
		out.Created = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// IssueForEvent issues to every attendee of the event. Participants who
// fail the evaluation are reported as skipped.
func IssueForEvent(ctx context.Context, db *gorm.DB, eventID uuid.UUID, templateID *uuid.UUID, by *uuid.UUID, now time.Time) (*BulkResult, []*Issued, error) {
	var ev simModel.SimulationEventModel
	if err := db.WithContext(ctx).Select("id", "status").First(&ev, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrEventNotFound
		}
		return nil, nil, err
	}
	if ev.Status != simModel.EventCompleted {
		return nil, nil, ErrEventNotCompleted
	}

	var userIDs []uuid.UUID
	if err := db.WithContext(ctx).Model(&simModel.AttendanceModel{}).
		Where("event_id = ? AND status IN ?", eventID,
			[]string{simModel.AttendancePresent, simModel.AttendanceLate}).
		Order("created_at ASC").
		Pluck("user_id", &userIDs).Error; err != nil {
		return nil, nil, err
	}

	res := &BulkResult{Issued: []model.CertificateModel{}, Skipped: []Skipped{}}
	var created []*Issued
	for _, uid := range userIDs {
		is, err := Issue(ctx, db, eventID, uid, templateID, by, now)
		switch {
		case errors.Is(err, ErrNotPassed), errors.Is(err, ErrNotAttended), errors.Is(err, ErrUserNotFound):
			res.Skipped = append(res.Skipped, Skipped{UserID: uid, Reason: err.Error()})
			continue
		case err != nil:
			return nil, nil, err
		}
		if !is.Created {
			res.Existing++
			continue
		}
		res.Issued = append(res.Issued, *is.Certificate)
		created = append(created, is)
	}
	return res, created, nil
}

// Notify mails the recipient of a newly issued certificate.
func Notify(is *Issued) {
	if is == nil || !is.Created || is.User == nil || is.Event == nil {
		return
	}
	mail.SendAsync(mail.Default(), mail.CertificateIssuedMessage(
		is.User.Email, is.User.FullName, is.Event.Title,
		is.Certificate.Number, is.Certificate.VerificationCode))
}

// Revoke marks a certificate revoked. A new one may then be issued.
func Revoke(ctx context.Context, db *gorm.DB, id uuid.UUID, reason string, now time.Time) (*model.CertificateModel, error) {
	var cert model.CertificateModel
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cert, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCertificateNotFound
			}
			return err
		}
		if cert.IsRevoked() {
			return ErrAlreadyRevoked
		}
		reason = strings.TrimSpace(reason)
		if err := tx.Model(&cert).Updates(map[string]any{
			"revoked_at":    now,
			"revoke_reason": reason,
		}).Error; err != nil {
			return err
		}
		cert.RevokedAt, cert.RevokeReason = &now, &reason
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// Verify looks a certificate up by number and checks its code.
func Verify(ctx context.Context, db *gorm.DB, number, code string) (*model.CertificateModel, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	code = strings.ToUpper(strings.TrimSpace(code))
	if number == "" || code == "" {
		return nil, ErrCertificateNotFound
	}
	var cert model.CertificateModel
	if err := db.WithContext(ctx).Where("number = ?", number).Take(&cert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCertificateNotFound
		}
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(cert.VerificationCode), []byte(code)) != 1 {
		return nil, ErrCertificateNotFound
	}
	return &cert, nil
}

func pickTemplate(tx *gorm.DB, id *uuid.UUID) (*model.CertificateTemplateModel, error) {
	var tpl model.CertificateTemplateModel
	if id != nil {
		if err := tx.First(&tpl, "id = ?", *id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTemplateNotFound
			}
			return nil, err
		}
		return &tpl, nil
	}
	err := tx.Where("is_default = ?", true).Order("updated_at DESC").Take(&tpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

// nextNumber continues the year's sequence. A concurrent issue may take
// the same number; the unique index rejects it and Issue retries.
func nextNumber(tx *gorm.DB, year int) (string, error) {
	var last []string
	err := tx.Model(&model.CertificateModel{}).
		Where("number LIKE ?", fmt.Sprintf("%s-%d-%%", NumberPrefix, year)).
		Order("number DESC").
		Limit(1).
		Pluck("number", &last).Error
	if err != nil {
		return "", err
	}
	seq := 0
	if len(last) > 0 {
		seq, _ = ParseSequence(last[0])
	}
	if seq >= MaxSequence {
		return "", ErrNumbersExhausted
	}
	return FormatNumber(year, seq+1), nil
}
