package workers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/execdash/execdash/db"
	"github.com/execdash/execdash/store"
)

func TestAuditWorker_DrainsOnClose(t *testing.T) {
	mem := store.NewMemoryStore()
	w := NewAuditWorker(mem.Store().Audit, 16, nil)
	w.Start()

	for i := 0; i < 10; i++ {
		w.Submit(context.Background(), db.AuditLog{OrgID: "o", ActorProfileID: "u", Action: db.AuditCreate})
	}
	w.Close()

	assert.Equal(t, 10, mem.AuditCount())
}

func TestAuditWorker_DropsWhenFull(t *testing.T) {
	mem := store.NewMemoryStore()
	w := NewAuditWorker(mem.Store().Audit, 2, nil)

	// Not started: nothing consumes the queue.
	for i := 0; i < 5; i++ {
		w.Submit(context.Background(), db.AuditLog{OrgID: "o", ActorProfileID: "u", Action: db.AuditDownload})
	}
	w.Start()
	w.Close()

	assert.Equal(t, 2, mem.AuditCount())
}

func TestAuditWorker_SubmitAfterCloseIsIgnored(t *testing.T) {
	mem := store.NewMemoryStore()
	w := NewAuditWorker(mem.Store().Audit, 4, nil)
	w.Start()
	w.Close()

	require.NotPanics(t, func() {
		w.Submit(context.Background(), db.AuditLog{OrgID: "o", ActorProfileID: "u", Action: db.AuditCreate})
	})
	w.Close()
	assert.Equal(t, 0, mem.AuditCount())
}
