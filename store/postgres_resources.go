package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/execdash/execdash/db"
)

// ============================================================================
// Resources
// ============================================================================

// PostgresResourceRepository implements ResourceRepository using SQL
type PostgresResourceRepository struct {
	db *sql.DB
}

func NewPostgresResourceRepository(pg *sql.DB) *PostgresResourceRepository {
	return &PostgresResourceRepository{db: pg}
}

var _ ResourceRepository = (*PostgresResourceRepository)(nil)

const resourceColumns = `id, org_id, workspace_id, type, title, meta, visibility, created_by, created_at, updated_at`

func scanResource(s rowScanner) (*db.Resource, error) {
	var res db.Resource
	var meta []byte
	if err := s.Scan(&res.ID, &res.OrgID, &res.WorkspaceID, &res.Type, &res.Title, &meta,
		&res.Visibility, &res.CreatedBy, &res.CreatedAt, &res.UpdatedAt); err != nil {
		return nil, err
	}
	m, err := decodeJSON(meta)
	if err != nil {
		return nil, fmt.Errorf("invalid meta on resource %s: %w", res.ID, err)
	}
	res.Meta = m
	return &res, nil
}

func (r *PostgresResourceRepository) Create(ctx context.Context, res *db.Resource) error {
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	now := time.Now()
	res.CreatedAt = now
	res.UpdatedAt = now

	meta, err := encodeJSON(res.Meta)
	if err != nil {
		return fmt.Errorf("failed to encode meta: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO resources (`+resourceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, res.ID, res.OrgID, res.WorkspaceID, res.Type, res.Title, meta, res.Visibility, res.CreatedBy, res.CreatedAt, res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", classify(err))
	}
	return nil
}

func (r *PostgresResourceRepository) Get(ctx context.Context, id string) (*db.Resource, error) {
	res, err := scanResource(r.db.QueryRowContext(ctx, `
		SELECT `+resourceColumns+`
		FROM resources
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get resource: %w", classify(err))
	}
	return res, nil
}

func (r *PostgresResourceRepository) List(ctx context.Context, filter ResourceFilter) ([]db.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if filter.OrgID != "" {
		query += fmt.Sprintf(" AND org_id = $%d", argIndex)
		args = append(args, filter.OrgID)
		argIndex++
	}
	if filter.WorkspaceID != "" {
		query += fmt.Sprintf(" AND workspace_id = $%d", argIndex)
		args = append(args, filter.WorkspaceID)
		argIndex++
	}
	if filter.Type != "" {
		query += fmt.Sprintf(" AND type = $%d", argIndex)
		args = append(args, filter.Type)
		argIndex++
	}
	if filter.Visibility != "" {
		query += fmt.Sprintf(" AND visibility = $%d", argIndex)
		args = append(args, filter.Visibility)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", classify(err))
	}
	defer rows.Close()

	resources := make([]db.Resource, 0)
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, *res)
	}
	return resources, rows.Err()
}

func (r *PostgresResourceRepository) UpdateVisibility(ctx context.Context, id string, visibility db.Visibility) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE resources
		SET visibility = $2, updated_at = $3
		WHERE id = $1
	`, id, visibility, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update visibility: %w", classify(err))
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresResourceRepository) Update(ctx context.Context, res *db.Resource) error {
	res.UpdatedAt = time.Now()
	meta, err := encodeJSON(res.Meta)
	if err != nil {
		return fmt.Errorf("failed to encode meta: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE resources
		SET title = $2, meta = $3, updated_at = $4
		WHERE id = $1
	`, res.ID, res.Title, meta, res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update resource: %w", classify(err))
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresResourceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete resource: %w", classify(err))
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ============================================================================
// Resource ACL
// ============================================================================

// PostgresACLRepository implements ACLRepository using SQL
type PostgresACLRepository struct {
	db *sql.DB
}

func NewPostgresACLRepository(pg *sql.DB) *PostgresACLRepository {
	return &PostgresACLRepository{db: pg}
}

var _ ACLRepository = (*PostgresACLRepository)(nil)

func (r *PostgresACLRepository) Create(ctx context.Context, grant *db.ResourceACL) error {
	if grant.ID == "" {
		grant.ID = uuid.New().String()
	}
	grant.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO resource_acl (id, resource_id, grantee_profile_id, can_read, can_write, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, grant.ID, grant.ResourceID, grant.GranteeProfileID, grant.CanRead, grant.CanWrite, grant.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create grant: %w", classify(err))
	}
	return nil
}

func (r *PostgresACLRepository) DeleteByGrantee(ctx context.Context, resourceID, granteeID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM resource_acl
		WHERE resource_id = $1 AND grantee_profile_id = $2
	`, resourceID, granteeID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke grant: %w", classify(err))
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

func (r *PostgresACLRepository) ListByResource(ctx context.Context, resourceID string) ([]db.ResourceACL, error) {
	return r.list(ctx, `
		SELECT id, resource_id, grantee_profile_id, can_read, can_write, created_at
		FROM resource_acl
		WHERE resource_id = $1
		ORDER BY created_at
	`, resourceID)
}

func (r *PostgresACLRepository) ListByGrantee(ctx context.Context, granteeID string) ([]db.ResourceACL, error) {
	return r.list(ctx, `
		SELECT id, resource_id, grantee_profile_id, can_read, can_write, created_at
		FROM resource_acl
		WHERE grantee_profile_id = $1
		ORDER BY created_at
	`, granteeID)
}

func (r *PostgresACLRepository) list(ctx context.Context, query string, arg string) ([]db.ResourceACL, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", classify(err))
	}
	defer rows.Close()

	grants := make([]db.ResourceACL, 0)
	for rows.Next() {
		var g db.ResourceACL
		if err := rows.Scan(&g.ID, &g.ResourceID, &g.GranteeProfileID, &g.CanRead, &g.CanWrite, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// ============================================================================
// Files
// ============================================================================

// PostgresFileRepository implements FileRepository using SQL
type PostgresFileRepository struct {
	db *sql.DB
}

func NewPostgresFileRepository(pg *sql.DB) *PostgresFileRepository {
	return &PostgresFileRepository{db: pg}
}

var _ FileRepository = (*PostgresFileRepository)(nil)

func (r *PostgresFileRepository) Create(ctx context.Context, f *db.File) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO files (id, resource_id, bucket, storage_key, size_bytes, mime)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, f.ID, f.ResourceID, f.Bucket, f.StorageKey, f.SizeBytes, f.MIME)
	if err != nil {
		return fmt.Errorf("failed to create file record: %w", classify(err))
	}
	return nil
}

func (r *PostgresFileRepository) GetByResource(ctx context.Context, resourceID string) (*db.File, error) {
	var f db.File
	err := r.db.QueryRowContext(ctx, `
		SELECT id, resource_id, bucket, storage_key, size_bytes, COALESCE(mime, '')
		FROM files
		WHERE resource_id = $1
		LIMIT 1
	`, resourceID).Scan(&f.ID, &f.ResourceID, &f.Bucket, &f.StorageKey, &f.SizeBytes, &f.MIME)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file record: %w", classify(err))
	}
	return &f, nil
}
