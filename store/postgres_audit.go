package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/execdash/execdash/db"
)

// PostgresAuditRepository implements AuditRepository using SQL
type PostgresAuditRepository struct {
	db *sql.DB
}

func NewPostgresAuditRepository(pg *sql.DB) *PostgresAuditRepository {
	return &PostgresAuditRepository{db: pg}
}

var _ AuditRepository = (*PostgresAuditRepository)(nil)

func (r *PostgresAuditRepository) Insert(ctx context.Context, entry *db.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	details, err := encodeJSON(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	var resourceID interface{}
	if entry.ResourceID != "" {
		resourceID = entry.ResourceID
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, org_id, actor_profile_id, action, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.OrgID, entry.ActorProfileID, entry.Action, resourceID, details, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", classify(err))
	}
	return nil
}

func (r *PostgresAuditRepository) List(ctx context.Context, filter AuditFilter) ([]db.AuditLog, error) {
	query := `
		SELECT id, org_id, actor_profile_id, action, COALESCE(resource_id, ''), details, created_at
		FROM audit_logs
		WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if filter.OrgID != "" {
		query += fmt.Sprintf(" AND org_id = $%d", argIndex)
		args = append(args, filter.OrgID)
		argIndex++
	}
	if filter.ResourceID != "" {
		query += fmt.Sprintf(" AND resource_id = $%d", argIndex)
		args = append(args, filter.ResourceID)
		argIndex++
	}
	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIndex)
		args = append(args, filter.Action)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", classify(err))
	}
	defer rows.Close()

	logs := make([]db.AuditLog, 0)
	for rows.Next() {
		var entry db.AuditLog
		var details []byte
		if err := rows.Scan(&entry.ID, &entry.OrgID, &entry.ActorProfileID, &entry.Action,
			&entry.ResourceID, &details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		if entry.Details, err = decodeJSON(details); err != nil {
			return nil, fmt.Errorf("invalid details on audit log %s: %w", entry.ID, err)
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
