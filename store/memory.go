package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/execdash/execdash/db"
)

// MemoryStore is an in-process implementation of every repository, used by
// tests and by `execdash serve --memory` for local demos.
type MemoryStore struct {
	mu         sync.RWMutex
	seq        int64
	profiles   map[string]db.Profile
	workspaces []memRow[db.Workspace]
	resources  map[string]memRow[db.Resource]
	grants     []memRow[db.ResourceACL]
	files      []db.File
	audit      []memRow[db.AuditLog]
}

// memRow keeps the insertion sequence so ordering is stable when two rows
// share a timestamp.
type memRow[T any] struct {
	seq int64
	row T
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:  make(map[string]db.Profile),
		resources: make(map[string]memRow[db.Resource]),
	}
}

// Store exposes the memory store through the repository bundle.
func (m *MemoryStore) Store() *Store {
	return &Store{
		Profiles:   memProfiles{m},
		Workspaces: memWorkspaces{m},
		Resources:  memResources{m},
		ACL:        memACL{m},
		Files:      memFiles{m},
		Audit:      memAudit{m},
	}
}

func (m *MemoryStore) next() int64 {
	m.seq++
	return m.seq
}

func copyMap(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// AuditCount reports how many audit rows have been written.
func (m *MemoryStore) AuditCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.audit)
}

// WorkspaceCount reports how many workspace rows exist for the pair.
func (m *MemoryStore) WorkspaceCount(orgID string, kind db.WorkspaceKind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, w := range m.workspaces {
		if w.row.OrgID == orgID && w.row.Kind == kind {
			n++
		}
	}
	return n
}

// ============================================================================
// Profiles
// ============================================================================

type memProfiles struct{ m *MemoryStore }

func (r memProfiles) Get(_ context.Context, userID string) (*db.Profile, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	p, ok := r.m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r memProfiles) Create(_ context.Context, p *db.Profile) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.profiles[p.UserID]; ok {
		return nil
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	r.m.profiles[p.UserID] = *p
	return nil
}

// ============================================================================
// Workspaces
// ============================================================================

type memWorkspaces struct{ m *MemoryStore }

func (r memWorkspaces) GetByOrgKind(_ context.Context, orgID string, kind db.WorkspaceKind) (*db.Workspace, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, w := range r.m.workspaces {
		if w.row.OrgID == orgID && w.row.Kind == kind {
			ws := w.row
			return &ws, nil
		}
	}
	return nil, ErrNotFound
}

func (r memWorkspaces) Get(_ context.Context, id string) (*db.Workspace, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	if ws, ok := r.m.workspace(id); ok {
		return &ws, nil
	}
	return nil, ErrNotFound
}

// workspace must be called with the lock held.
func (m *MemoryStore) workspace(id string) (db.Workspace, bool) {
	for _, w := range m.workspaces {
		if w.row.ID == id {
			return w.row, true
		}
	}
	return db.Workspace{}, false
}

func (r memWorkspaces) Create(_ context.Context, ws *db.Workspace) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, w := range r.m.workspaces {
		if w.row.OrgID == ws.OrgID && w.row.Kind == ws.Kind {
			return ErrConflict
		}
	}
	if ws.ID == "" {
		ws.ID = uuid.New().String()
	}
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = time.Now()
	}
	r.m.workspaces = append(r.m.workspaces, memRow[db.Workspace]{seq: r.m.next(), row: *ws})
	return nil
}

func (r memWorkspaces) ListByOrg(_ context.Context, orgID string) ([]db.Workspace, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := make([]db.Workspace, 0)
	for _, w := range r.m.workspaces {
		if w.row.OrgID == orgID {
			out = append(out, w.row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}

// ============================================================================
// Resources
// ============================================================================

type memResources struct{ m *MemoryStore }

func (r memResources) Create(_ context.Context, res *db.Resource) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.workspace(res.WorkspaceID); !ok {
		return ErrForeignKey
	}
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	if _, exists := r.m.resources[res.ID]; exists {
		return ErrConflict
	}
	now := time.Now()
	res.CreatedAt = now
	res.UpdatedAt = now
	stored := *res
	stored.Meta = copyMap(res.Meta)
	r.m.resources[res.ID] = memRow[db.Resource]{seq: r.m.next(), row: stored}
	return nil
}

func (r memResources) Get(_ context.Context, id string) (*db.Resource, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	row, ok := r.m.resources[id]
	if !ok {
		return nil, ErrNotFound
	}
	res := row.row
	res.Meta = copyMap(row.row.Meta)
	return &res, nil
}

func (r memResources) List(ctx context.Context, filter ResourceFilter) ([]db.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	rows := make([]memRow[db.Resource], 0, len(r.m.resources))
	for _, row := range r.m.resources {
		res := row.row
		if filter.OrgID != "" && res.OrgID != filter.OrgID {
			continue
		}
		if filter.WorkspaceID != "" && res.WorkspaceID != filter.WorkspaceID {
			continue
		}
		if filter.Type != "" && res.Type != filter.Type {
			continue
		}
		if filter.Visibility != "" && res.Visibility != filter.Visibility {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].row.CreatedAt.Equal(rows[j].row.CreatedAt) {
			return rows[i].row.CreatedAt.After(rows[j].row.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})
	if filter.Limit > 0 && len(rows) > filter.Limit {
		rows = rows[:filter.Limit]
	}

	out := make([]db.Resource, len(rows))
	for i, row := range rows {
		out[i] = row.row
		out[i].Meta = copyMap(row.row.Meta)
	}
	return out, nil
}

func (r memResources) UpdateVisibility(_ context.Context, id string, visibility db.Visibility) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	row, ok := r.m.resources[id]
	if !ok {
		return ErrNotFound
	}
	row.row.Visibility = visibility
	row.row.UpdatedAt = time.Now()
	r.m.resources[id] = row
	return nil
}

func (r memResources) Update(_ context.Context, res *db.Resource) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	row, ok := r.m.resources[res.ID]
	if !ok {
		return ErrNotFound
	}
	res.UpdatedAt = time.Now()
	row.row.Title = res.Title
	row.row.Meta = copyMap(res.Meta)
	row.row.UpdatedAt = res.UpdatedAt
	r.m.resources[res.ID] = row
	return nil
}

func (r memResources) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.resources[id]; !ok {
		return ErrNotFound
	}
	delete(r.m.resources, id)

	kept := r.m.grants[:0]
	for _, g := range r.m.grants {
		if g.row.ResourceID != id {
			kept = append(kept, g)
		}
	}
	r.m.grants = kept
	return nil
}

// ============================================================================
// Resource ACL
// ============================================================================

type memACL struct{ m *MemoryStore }

func (r memACL) Create(_ context.Context, grant *db.ResourceACL) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.resources[grant.ResourceID]; !ok {
		return ErrForeignKey
	}
	if _, ok := r.m.profiles[grant.GranteeProfileID]; !ok {
		return ErrForeignKey
	}
	if grant.ID == "" {
		grant.ID = uuid.New().String()
	}
	grant.CreatedAt = time.Now()
	r.m.grants = append(r.m.grants, memRow[db.ResourceACL]{seq: r.m.next(), row: *grant})
	return nil
}

func (r memACL) DeleteByGrantee(_ context.Context, resourceID, granteeID string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var removed int64
	kept := r.m.grants[:0]
	for _, g := range r.m.grants {
		if g.row.ResourceID == resourceID && g.row.GranteeProfileID == granteeID {
			removed++
			continue
		}
		kept = append(kept, g)
	}
	r.m.grants = kept
	return removed, nil
}

func (r memACL) ListByResource(_ context.Context, resourceID string) ([]db.ResourceACL, error) {
	return r.filter(func(g db.ResourceACL) bool { return g.ResourceID == resourceID }), nil
}

func (r memACL) ListByGrantee(_ context.Context, granteeID string) ([]db.ResourceACL, error) {
	return r.filter(func(g db.ResourceACL) bool { return g.GranteeProfileID == granteeID }), nil
}

func (r memACL) filter(keep func(db.ResourceACL) bool) []db.ResourceACL {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := make([]db.ResourceACL, 0)
	for _, g := range r.m.grants {
		if keep(g.row) {
			out = append(out, g.row)
		}
	}
	return out
}

// ============================================================================
// Files
// ============================================================================

type memFiles struct{ m *MemoryStore }

func (r memFiles) Create(_ context.Context, f *db.File) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.resources[f.ResourceID]; !ok {
		return ErrForeignKey
	}
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	r.m.files = append(r.m.files, *f)
	return nil
}

func (r memFiles) GetByResource(_ context.Context, resourceID string) (*db.File, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, f := range r.m.files {
		if f.ResourceID == resourceID {
			file := f
			return &file, nil
		}
	}
	return nil, ErrNotFound
}

// ============================================================================
// Audit
// ============================================================================

type memAudit struct{ m *MemoryStore }

func (r memAudit) Insert(_ context.Context, entry *db.AuditLog) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	stored := *entry
	stored.Details = copyMap(entry.Details)
	r.m.audit = append(r.m.audit, memRow[db.AuditLog]{seq: r.m.next(), row: stored})
	return nil
}

func (r memAudit) List(_ context.Context, filter AuditFilter) ([]db.AuditLog, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	rows := make([]memRow[db.AuditLog], 0)
	for _, e := range r.m.audit {
		if filter.OrgID != "" && e.row.OrgID != filter.OrgID {
			continue
		}
		if filter.ResourceID != "" && e.row.ResourceID != filter.ResourceID {
			continue
		}
		if filter.Action != "" && e.row.Action != filter.Action {
			continue
		}
		rows = append(rows, e)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].row.CreatedAt.Equal(rows[j].row.CreatedAt) {
			return rows[i].row.CreatedAt.After(rows[j].row.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})
	if filter.Limit > 0 && len(rows) > filter.Limit {
		rows = rows[:filter.Limit]
	}
	out := make([]db.AuditLog, len(rows))
	for i, e := range rows {
		out[i] = e.row
	}
	return out, nil
}
