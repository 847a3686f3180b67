package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/execdash/execdash/db"
)

// NewPostgresStore wires every repository to the same database handle.
func NewPostgresStore(pg *sql.DB) *Store {
	return &Store{
		Profiles:   NewPostgresProfileRepository(pg),
		Workspaces: NewPostgresWorkspaceRepository(pg),
		Resources:  NewPostgresResourceRepository(pg),
		ACL:        NewPostgresACLRepository(pg),
		Files:      NewPostgresFileRepository(pg),
		Audit:      NewPostgresAuditRepository(pg),
	}
}

// Migrate applies the embedded schema.
func Migrate(ctx context.Context, pg *sql.DB) error {
	if _, err := pg.ExecContext(ctx, db.Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// encodeJSON returns nil for empty maps so the column is stored as NULL.
func encodeJSON(m map[string]interface{}) (interface{}, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func decodeJSON(raw []byte) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ============================================================================
// Profiles
// ============================================================================

// PostgresProfileRepository implements ProfileRepository using SQL
type PostgresProfileRepository struct {
	db *sql.DB
}

func NewPostgresProfileRepository(pg *sql.DB) *PostgresProfileRepository {
	return &PostgresProfileRepository{db: pg}
}

var _ ProfileRepository = (*PostgresProfileRepository)(nil)

func (r *PostgresProfileRepository) Get(ctx context.Context, userID string) (*db.Profile, error) {
	var p db.Profile
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, org_id, role, display_name, COALESCE(email, ''), created_at
		FROM profiles
		WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.OrgID, &p.Role, &p.DisplayName, &p.Email, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", classify(err))
	}
	return &p, nil
}

func (r *PostgresProfileRepository) Create(ctx context.Context, p *db.Profile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, org_id, role, display_name, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO NOTHING
	`, p.UserID, p.OrgID, p.Role, p.DisplayName, p.Email, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", classify(err))
	}
	return nil
}

// ============================================================================
// Workspaces
// ============================================================================

// PostgresWorkspaceRepository implements WorkspaceRepository using SQL
type PostgresWorkspaceRepository struct {
	db *sql.DB
}

func NewPostgresWorkspaceRepository(pg *sql.DB) *PostgresWorkspaceRepository {
	return &PostgresWorkspaceRepository{db: pg}
}

var _ WorkspaceRepository = (*PostgresWorkspaceRepository)(nil)

func (r *PostgresWorkspaceRepository) GetByOrgKind(ctx context.Context, orgID string, kind db.WorkspaceKind) (*db.Workspace, error) {
	var ws db.Workspace
	err := r.db.QueryRowContext(ctx, `
		SELECT id, org_id, kind, name, owner_profile_id, created_at
		FROM workspaces
		WHERE org_id = $1 AND kind = $2
		ORDER BY created_at
		LIMIT 1
	`, orgID, kind).Scan(&ws.ID, &ws.OrgID, &ws.Kind, &ws.Name, &ws.OwnerProfileID, &ws.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get workspace: %w", classify(err))
	}
	return &ws, nil
}

func (r *PostgresWorkspaceRepository) Get(ctx context.Context, id string) (*db.Workspace, error) {
	var ws db.Workspace
	err := r.db.QueryRowContext(ctx, `
		SELECT id, org_id, kind, name, owner_profile_id, created_at
		FROM workspaces
		WHERE id = $1
	`, id).Scan(&ws.ID, &ws.OrgID, &ws.Kind, &ws.Name, &ws.OwnerProfileID, &ws.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get workspace: %w", classify(err))
	}
	return &ws, nil
}

func (r *PostgresWorkspaceRepository) Create(ctx context.Context, ws *db.Workspace) error {
	if ws.ID == "" {
		ws.ID = uuid.New().String()
	}
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = time.Now()
	}
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO workspaces (id, org_id, kind, name, owner_profile_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (org_id, kind) DO NOTHING
	`, ws.ID, ws.OrgID, ws.Kind, ws.Name, ws.OwnerProfileID, ws.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", classify(err))
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrConflict
	}
	return nil
}

func (r *PostgresWorkspaceRepository) ListByOrg(ctx context.Context, orgID string) ([]db.Workspace, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, org_id, kind, name, owner_profile_id, created_at
		FROM workspaces
		WHERE org_id = $1
		ORDER BY kind, created_at
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", classify(err))
	}
	defer rows.Close()

	workspaces := make([]db.Workspace, 0)
	for rows.Next() {
		var ws db.Workspace
		if err := rows.Scan(&ws.ID, &ws.OrgID, &ws.Kind, &ws.Name, &ws.OwnerProfileID, &ws.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		workspaces = append(workspaces, ws)
	}
	return workspaces, rows.Err()
}
