package database

import (
	"context"
	"errors"
	"time"

	"saazebharat/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const adminColumns = `id, username, email, password_hash, role, otp_secret,
	last_login, created_at, updated_at`

func scanAdmin(row registrationRow) (model.AdminAccount, error) {
	var admin model.AdminAccount
	err := row.Scan(
		&admin.ID, &admin.Username, &admin.Email, &admin.PasswordHash, &admin.Role,
		&admin.OTPSecret, &admin.LastLogin, &admin.CreatedAt, &admin.UpdatedAt,
	)
	return admin, err
}

func (db *Database) CreateAdmin(ctx context.Context, admin model.AdminAccount) error {
	_, err := db.Pool.Exec(ctx, `INSERT INTO tbl_admin
		(id, username, email, password_hash, role, otp_secret, last_login, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		admin.ID, admin.Username, admin.Email, admin.PasswordHash, admin.Role,
		admin.OTPSecret, admin.LastLogin, admin.CreatedAt, admin.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateAdminEmail
		}
		return err
	}
	return nil
}

func (db *Database) GetAdminByID(ctx context.Context, id uuid.UUID) (model.AdminAccount, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM tbl_admin WHERE id = $1`, id)
	admin, err := scanAdmin(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return admin, ErrAdminNotFound
	}
	return admin, err
}

func (db *Database) GetAdminByEmail(ctx context.Context, email string) (model.AdminAccount, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM tbl_admin WHERE email = $1`, email)
	admin, err := scanAdmin(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return admin, ErrAdminNotFound
	}
	return admin, err
}

func (db *Database) ListAdmins(ctx context.Context) ([]model.AdminAccount, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+adminColumns+` FROM tbl_admin ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []model.AdminAccount
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, admin)
	}
	return admins, rows.Err()
}

func (db *Database) DeleteAdmin(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM tbl_admin WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAdminNotFound
	}
	return nil
}

func (db *Database) CountSuperAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tbl_admin WHERE role = $1`, model.RoleSuperAdmin).Scan(&count)
	return count, err
}

// SetAdminOTPSecret stores the TOTP secret produced during enrollment. The
// guard keeps a concurrent second enrollment from overwriting an established
// secret.
func (db *Database) SetAdminOTPSecret(ctx context.Context, id uuid.UUID, secret string) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE tbl_admin SET
		otp_secret = $2, updated_at = NOW()
		WHERE id = $1 AND (otp_secret IS NULL OR otp_secret = '')`,
		id, secret)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAdminNotFound
	}
	return nil
}

func (db *Database) TouchAdminLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE tbl_admin SET last_login = $2, updated_at = NOW() WHERE id = $1`, id, at)
	return err
}
