package registration

import (
	"context"
	"errors"
	"time"

	"saazebharat/internal/content"
	"saazebharat/internal/database"
	"saazebharat/internal/model"

	"github.com/google/uuid"
)

// Defaults used when an admin rejects without giving a reason.
const (
	defaultRejectReason      = "The provided identity document was unclear or did not meet our verification standards."
	defaultBatchRejectReason = "Selection criteria mismatch or capacity limits reached during the review process."
)

// Approve issues a ticket to a registration awaiting review. force lifts the
// pending_review requirement but never re-issues an existing ticket.
func (m *Manager) Approve(ctx context.Context, adminID uuid.UUID, id uuid.UUID, force bool, ip string) (model.Registration, error) {
	return m.approve(ctx, &adminID, id, force, ip)
}

func (m *Manager) approve(ctx context.Context, adminID *uuid.UUID, id uuid.UUID, force bool, ip string) (model.Registration, error) {
	qrID, err := NewQRID()
	if err != nil {
		return model.Registration{}, err
	}

	reg, err := m.store.TransitionToApproved(ctx, id, qrID, force)
	if err != nil {
		if errors.Is(err, database.ErrNotEligible) {
			if _, getErr := m.store.GetRegistrationByID(ctx, id); errors.Is(getErr, database.ErrRegistrationNotFound) {
				return model.Registration{}, database.ErrRegistrationNotFound
			}
		}
		return model.Registration{}, err
	}

	m.sendTicketEmail(ctx, reg)
	m.audit.Record(ctx, adminID, "registration_approved", reg.ID.String(), "registration", ip,
		map[string]any{"email": reg.Email, "qrId": qrID, "forced": force})
	return reg, nil
}

// Reject declines a registration. An empty reason falls back to a default so
// the applicant always receives an explanation. Unlike approval it is not
// state-guarded; a later rejection overwrites an earlier decision.
func (m *Manager) Reject(ctx context.Context, adminID uuid.UUID, id uuid.UUID, reason string, ip string) (model.Registration, error) {
	if reason == "" {
		reason = defaultRejectReason
	}
	reg, err := m.store.TransitionToRejected(ctx, id, reason)
	if err != nil {
		return model.Registration{}, err
	}

	m.sendRejectionEmail(ctx, reg, reason)
	m.audit.Record(ctx, &adminID, "registration_rejected", reg.ID.String(), "registration", ip,
		map[string]any{"email": reg.Email, "reason": reason})
	return reg, nil
}

type BatchResult struct {
	Succeeded []uuid.UUID `json:"succeeded"`
	Skipped   []uuid.UUID `json:"skipped"`
}

// BatchApprove applies Approve to each id independently. Ineligible or
// missing ids are skipped, never failing the batch.
func (m *Manager) BatchApprove(ctx context.Context, adminID uuid.UUID, ids []uuid.UUID, ip string) BatchResult {
	var result BatchResult
	for _, id := range ids {
		if _, err := m.approve(ctx, &adminID, id, false, ip); err != nil {
			m.logger.Debug("batch approve skipped", "registration_id", id, "error", err)
			result.Skipped = append(result.Skipped, id)
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	m.audit.Record(ctx, &adminID, "registrations_batch_approved", "", "registration", ip,
		map[string]any{"requested": len(ids), "approved": len(result.Succeeded)})
	return result
}

// BatchReject rejects every id still in pending_review; anything else is
// skipped.
func (m *Manager) BatchReject(ctx context.Context, adminID uuid.UUID, ids []uuid.UUID, reason string, ip string) BatchResult {
	if reason == "" {
		reason = defaultBatchRejectReason
	}
	var result BatchResult
	for _, id := range ids {
		reg, err := m.store.RejectIfPendingReview(ctx, id, reason)
		if err != nil {
			m.logger.Debug("batch reject skipped", "registration_id", id, "error", err)
			result.Skipped = append(result.Skipped, id)
			continue
		}
		m.sendRejectionEmail(ctx, reg, reason)
		result.Succeeded = append(result.Succeeded, id)
	}
	m.audit.Record(ctx, &adminID, "registrations_batch_rejected", "", "registration", ip,
		map[string]any{"requested": len(ids), "rejected": len(result.Succeeded), "reason": reason})
	return result
}

// Remove deletes a registration outright. The audit entry is written first so
// the deleted record's identity survives it.
func (m *Manager) Remove(ctx context.Context, adminID uuid.UUID, id uuid.UUID, ip string) error {
	reg, err := m.store.GetRegistrationByID(ctx, id)
	if err != nil {
		return err
	}

	m.audit.Record(ctx, &adminID, "registration_deleted", reg.ID.String(), "registration", ip,
		map[string]any{"email": reg.Email, "category": reg.Category, "status": reg.Status})
	return m.store.DeleteRegistration(ctx, id)
}

// CheckIn marks an issued ticket as used at the gate. A ticket checks in at
// most once.
func (m *Manager) CheckIn(ctx context.Context, adminID uuid.UUID, qrID string, ip string) (model.Registration, error) {
	reg, err := m.store.MarkCheckedIn(ctx, qrID, time.Now())
	if err != nil {
		return model.Registration{}, err
	}

	m.audit.Record(ctx, &adminID, "registration_checked_in", reg.ID.String(), "registration", ip,
		map[string]any{"qrId": qrID})
	return reg, nil
}

func (m *Manager) sendTicketEmail(ctx context.Context, reg model.Registration) {
	if reg.QRID == nil {
		return
	}

	payload := TicketPayload(*reg.QRID, reg.Category, m.ticketKey)
	img, err := QRImageDataURL(payload)
	if err != nil {
		m.logger.Warn("ticket qr not rendered", "registration_id", reg.ID, "error", err)
		return
	}

	subject := m.content.Text(ctx, content.KeyApprovalSubject)
	body := content.Render(m.content.Text(ctx, content.KeyApprovalBody), map[string]string{
		"name":     reg.DisplayName(),
		"category": string(reg.Category),
		"qrId":     *reg.QRID,
	})
	body += `<br><img src="` + img + `" alt="Entry pass QR code">`

	if err := m.mailer.Send(reg.Email, subject, body); err != nil {
		m.logger.Warn("ticket email not sent", "registration_id", reg.ID, "error", err)
	}
}

func (m *Manager) sendRejectionEmail(ctx context.Context, reg model.Registration, reason string) {
	subject := m.content.Text(ctx, content.KeyRejectSubject)
	body := content.Render(m.content.Text(ctx, content.KeyRejectBody), map[string]string{
		"name":     reg.DisplayName(),
		"category": string(reg.Category),
		"reason":   reason,
	})
	if err := m.mailer.Send(reg.Email, subject, body); err != nil {
		m.logger.Warn("rejection email not sent", "registration_id", reg.ID, "error", err)
	}
}
