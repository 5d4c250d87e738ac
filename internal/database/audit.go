package database

import (
	"context"

	"saazebharat/internal/model"
)

func (db *Database) CreateAuditEntry(ctx context.Context, entry model.AuditEntry) error {
	_, err := db.Pool.Exec(ctx, `INSERT INTO tbl_audit_log
		(id, admin_id, action, target_id, target_type, details, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.AdminID, entry.Action, entry.TargetID, entry.TargetType,
		entry.Details, entry.IPAddress, entry.CreatedAt)
	return err
}

// ListAuditEntries returns the most recent entries first.
func (db *Database) ListAuditEntries(ctx context.Context, limit int, offset int) ([]model.AuditEntry, int64, error) {
	var total int64
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM tbl_audit_log`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.Pool.Query(ctx, `SELECT id, admin_id, action, target_id, target_type,
		details, ip_address, created_at
		FROM tbl_audit_log ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var entry model.AuditEntry
		if err := rows.Scan(&entry.ID, &entry.AdminID, &entry.Action, &entry.TargetID,
			&entry.TargetType, &entry.Details, &entry.IPAddress, &entry.CreatedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}
