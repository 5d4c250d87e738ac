package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"saazebharat/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const registrationColumns = `id, category, email, phone, full_name, organization,
	is_email_verified, status, qr_id, is_checked_in, check_in_time,
	verification_otp, otp_expires, rejection_reason, document_key, details,
	created_at, updated_at`

type registrationRow interface {
	Scan(dest ...any) error
}

func scanRegistration(row registrationRow) (model.Registration, error) {
	var (
		reg        model.Registration
		rawDetails []byte
	)
	err := row.Scan(
		&reg.ID, &reg.Category, &reg.Email, &reg.Phone, &reg.FullName, &reg.Organization,
		&reg.IsEmailVerified, &reg.Status, &reg.QRID, &reg.IsCheckedIn, &reg.CheckInTime,
		&reg.VerificationOTP, &reg.OTPExpires, &reg.RejectionReason, &reg.DocumentKey, &rawDetails,
		&reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		return reg, err
	}

	reg.Details, err = model.DecodeDetails(reg.Category, rawDetails)
	if err != nil {
		return reg, fmt.Errorf("decode stored details for %s: %w", reg.ID, err)
	}
	return reg, nil
}

func (db *Database) CreateRegistration(ctx context.Context, reg model.Registration) error {
	details, err := model.EncodeDetails(reg.Details)
	if err != nil {
		return err
	}

	_, err = db.Pool.Exec(ctx, `INSERT INTO tbl_registration
		(id, category, email, phone, full_name, organization, is_email_verified, status,
		 qr_id, is_checked_in, check_in_time, verification_otp, otp_expires,
		 rejection_reason, document_key, details, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		reg.ID, reg.Category, reg.Email, reg.Phone, reg.FullName, reg.Organization,
		reg.IsEmailVerified, reg.Status, reg.QRID, reg.IsCheckedIn, reg.CheckInTime,
		reg.VerificationOTP, reg.OTPExpires, reg.RejectionReason, reg.DocumentKey, details,
		reg.CreatedAt, reg.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (db *Database) GetRegistrationByID(ctx context.Context, id uuid.UUID) (model.Registration, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM tbl_registration WHERE id = $1`, id)
	reg, err := scanRegistration(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return reg, ErrRegistrationNotFound
	}
	return reg, err
}

func (db *Database) GetRegistrationByEmail(ctx context.Context, email string) (model.Registration, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM tbl_registration WHERE lower(email) = lower($1)`, email)
	reg, err := scanRegistration(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return reg, ErrRegistrationNotFound
	}
	return reg, err
}

func (db *Database) GetRegistrationByQRID(ctx context.Context, qrID string) (model.Registration, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM tbl_registration WHERE qr_id = $1`, qrID)
	reg, err := scanRegistration(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return reg, ErrRegistrationNotFound
	}
	return reg, err
}

// UpdateSubmission rewrites the mutable intake fields of an unverified
// registration, including the freshly issued OTP. The previous code stops
// matching and is therefore permanently invalid.
func (db *Database) UpdateSubmission(ctx context.Context, reg model.Registration) error {
	details, err := model.EncodeDetails(reg.Details)
	if err != nil {
		return err
	}

	tag, err := db.Pool.Exec(ctx, `UPDATE tbl_registration SET
		category = $2, phone = $3, full_name = $4, organization = $5,
		verification_otp = $6, otp_expires = $7, document_key = COALESCE($8, document_key),
		details = $9, updated_at = NOW()
		WHERE id = $1 AND is_email_verified = FALSE`,
		reg.ID, reg.Category, reg.Phone, reg.FullName, reg.Organization,
		reg.VerificationOTP, reg.OTPExpires, reg.DocumentKey, details)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotEligible
	}
	return nil
}

// MarkVerified flips the record to verified and clears both OTP fields in one
// guarded statement. Returns false when the guard fails: already verified,
// code mismatch, or expired.
func (db *Database) MarkVerified(ctx context.Context, id uuid.UUID, code string, now time.Time, next model.Status) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `UPDATE tbl_registration SET
		is_email_verified = TRUE, status = $4,
		verification_otp = NULL, otp_expires = NULL, updated_at = NOW()
		WHERE id = $1 AND is_email_verified = FALSE
		  AND verification_otp = $2 AND otp_expires > $3`,
		id, code, now, next)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// TransitionToApproved performs the approval as a single compare-and-set so
// two concurrent calls cannot both issue a ticket. An already-approved record
// (qr_id set) never matches, forced or not.
func (db *Database) TransitionToApproved(ctx context.Context, id uuid.UUID, qrID string, forced bool) (model.Registration, error) {
	row := db.Pool.QueryRow(ctx, `UPDATE tbl_registration SET
		status = $4, qr_id = $2, updated_at = NOW()
		WHERE id = $1 AND qr_id IS NULL AND (status = $5 OR $3)
		RETURNING `+registrationColumns,
		id, qrID, forced, model.StatusApproved, model.StatusPendingReview)
	reg, err := scanRegistration(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return reg, ErrNotEligible
	}
	return reg, err
}

// TransitionToRejected moves any existing registration to rejected,
// overwriting a previous decision. Re-rejecting is deliberately permitted.
func (db *Database) TransitionToRejected(ctx context.Context, id uuid.UUID, reason string) (model.Registration, error) {
	row := db.Pool.QueryRow(ctx, `UPDATE tbl_registration SET
		status = $3, rejection_reason = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+registrationColumns,
		id, reason, model.StatusRejected)
	reg, err := scanRegistration(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return reg, ErrRegistrationNotFound
	}
	return reg, err
}

// RejectIfPendingReview is the batch-reject guard: only records still awaiting
// review are touched.
func (db *Database) RejectIfPendingReview(ctx context.Context, id uuid.UUID, reason string) (model.Registration, error) {
	row := db.Pool.QueryRow(ctx, `UPDATE tbl_registration SET
		status = $3, rejection_reason = $2, updated_at = NOW()
		WHERE id = $1 AND status = $4
		RETURNING `+registrationColumns,
		id, reason, model.StatusRejected, model.StatusPendingReview)
	reg, err := scanRegistration(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return reg, ErrNotEligible
	}
	return reg, err
}

func (db *Database) DeleteRegistration(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM tbl_registration WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRegistrationNotFound
	}
	return nil
}

// MarkCheckedIn records gate entry against an issued ticket, once.
func (db *Database) MarkCheckedIn(ctx context.Context, qrID string, at time.Time) (model.Registration, error) {
	row := db.Pool.QueryRow(ctx, `UPDATE tbl_registration SET
		is_checked_in = TRUE, check_in_time = $2, updated_at = NOW()
		WHERE qr_id = $1 AND is_checked_in = FALSE
		RETURNING `+registrationColumns,
		qrID, at)
	reg, err := scanRegistration(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish a spent ticket from an unknown one.
		if _, lookupErr := db.GetRegistrationByQRID(ctx, qrID); lookupErr == nil {
			return reg, ErrAlreadyCheckedIn
		}
		return reg, ErrRegistrationNotFound
	}
	return reg, err
}

type ListRegistrationsParams struct {
	Category      string
	Status        string
	AttendanceDay string
	Search        string
	Page          int
	Limit         int
}

// ListRegistrations returns one page of verified registrations plus the total
// match count. Unverified records are invisible to this query.
func (db *Database) ListRegistrations(ctx context.Context, params ListRegistrationsParams) ([]model.Registration, int64, error) {
	where := `WHERE is_email_verified = TRUE`
	args := []any{}

	appendArg := func(clause string, value any) {
		args = append(args, value)
		where += ` AND ` + clause + `$` + strconv.Itoa(len(args))
	}

	if params.Category != "" {
		appendArg(`category = `, params.Category)
	}
	if params.Status != "" {
		appendArg(`status = `, params.Status)
	}
	if params.AttendanceDay != "" {
		appendArg(`details->>'attendanceDay' = `, params.AttendanceDay)
	}
	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		args = append(args, pattern)
		n := strconv.Itoa(len(args))
		where += ` AND (full_name ILIKE $` + n + ` OR email ILIKE $` + n + ` OR details::text ILIKE $` + n + `)`
	}

	var total int64
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM tbl_registration `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, params.Limit, (params.Page-1)*params.Limit)
	query := `SELECT ` + registrationColumns + ` FROM tbl_registration ` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, err
		}
		regs = append(regs, reg)
	}
	return regs, total, rows.Err()
}

func (db *Database) CountVerified(ctx context.Context) (int64, error) {
	var count int64
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tbl_registration WHERE is_email_verified = TRUE`).Scan(&count)
	return count, err
}

func (db *Database) CountVerifiedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tbl_registration WHERE is_email_verified = TRUE AND created_at >= $1`,
		since).Scan(&count)
	return count, err
}

type CategoryCount struct {
	Category model.Category `json:"category"`
	Count    int64          `json:"count"`
}

func (db *Database) CategoryCounts(ctx context.Context) ([]CategoryCount, error) {
	rows, err := db.Pool.Query(ctx, `SELECT category, COUNT(*)
		FROM tbl_registration WHERE is_email_verified = TRUE
		GROUP BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []CategoryCount
	for rows.Next() {
		var stat CategoryCount
		if err := rows.Scan(&stat.Category, &stat.Count); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

type TrendPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// DailyTrend buckets verified registrations per calendar day since the cutoff,
// oldest first.
func (db *Database) DailyTrend(ctx context.Context, since time.Time) ([]TrendPoint, error) {
	rows, err := db.Pool.Query(ctx, `SELECT to_char(created_at, 'YYYY-MM-DD') AS day, COUNT(*)
		FROM tbl_registration
		WHERE is_email_verified = TRUE AND created_at >= $1
		GROUP BY day
		ORDER BY day ASC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trend []TrendPoint
	for rows.Next() {
		var point TrendPoint
		if err := rows.Scan(&point.Date, &point.Count); err != nil {
			return nil, err
		}
		trend = append(trend, point)
	}
	return trend, rows.Err()
}

type ExportParams struct {
	Category  string
	StartDate *time.Time
	EndDate   *time.Time
	Offset    int
	Limit     int
}

// ExportRegistrations streams a contiguous chronological slice of verified
// registrations for CSV export.
func (db *Database) ExportRegistrations(ctx context.Context, params ExportParams) ([]model.Registration, error) {
	where := `WHERE is_email_verified = TRUE`
	args := []any{}

	if params.Category != "" {
		args = append(args, params.Category)
		where += ` AND category = $` + strconv.Itoa(len(args))
	}
	if params.StartDate != nil {
		args = append(args, *params.StartDate)
		where += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if params.EndDate != nil {
		args = append(args, *params.EndDate)
		where += ` AND created_at <= $` + strconv.Itoa(len(args))
	}

	args = append(args, params.Limit, params.Offset)
	query := `SELECT ` + registrationColumns + ` FROM tbl_registration ` + where +
		` ORDER BY created_at ASC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}
