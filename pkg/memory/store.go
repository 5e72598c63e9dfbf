package memory

import (
	"context"
	"time"

	"github.com/papercomputeco/factory/pkg/project"
)

// Store is the relational persistence the engine needs. The storage
// drivers implement it.
type Store interface {
	// InsertMemory writes a new memory row.
	InsertMemory(ctx context.Context, item *Item) error

	// GetMemories returns the rows for ids that exist, deleted or not.
	GetMemories(ctx context.Context, ids []string) ([]Item, error)

	// SoftDeleteMemory marks id deleted at the given time. It reports
	// false when no such memory exists.
	SoftDeleteMemory(ctx context.Context, id string, at time.Time) (bool, error)

	// ListRecentMemories returns non-deleted memories for owner, newest
	// first. An empty projectID spans every project.
	ListRecentMemories(ctx context.Context, owner project.Owner, projectID string, limit int) ([]Item, error)

	// UpsertPointer records the vector pointer for a memory.
	UpsertPointer(ctx context.Context, p *Pointer) error

	// ListOrphanPointers returns up to limit pointers whose memory is
	// soft-deleted or missing.
	ListOrphanPointers(ctx context.Context, limit int) ([]Pointer, error)

	// DeletePointers removes pointers by memory id.
	DeletePointers(ctx context.Context, memoryIDs []string) error
}
