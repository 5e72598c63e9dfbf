// Package inmemory provides a map-backed storage driver for tests and
// ephemeral runs.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/papercomputeco/factory/pkg/memory"
	"github.com/papercomputeco/factory/pkg/project"
	"github.com/papercomputeco/factory/pkg/storage"
)

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	// mu guards every map below
	mu sync.RWMutex

	projects  map[string]project.Project
	runs      map[string][]project.Run
	artifacts map[string]map[string]project.Artifact
	memories  map[string]memory.Item
	pointers  map[string]memory.Pointer
	kv        map[string]string
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		projects:  make(map[string]project.Project),
		runs:      make(map[string][]project.Run),
		artifacts: make(map[string]map[string]project.Artifact),
		memories:  make(map[string]memory.Item),
		pointers:  make(map[string]memory.Pointer),
		kv:        make(map[string]string),
	}
}

func (d *Driver) CreateProject(_ context.Context, p *project.Project) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.projects[p.ID]; ok {
		return fmt.Errorf("project %s already exists", p.ID)
	}
	d.projects[p.ID] = *p
	return nil
}

func (d *Driver) GetProject(_ context.Context, id string) (*project.Project, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.projects[id]
	if !ok {
		return nil, storage.NotFoundError{Entity: "project", ID: id}
	}
	return &p, nil
}

func (d *Driver) AdvanceProjectStatus(_ context.Context, id string, status project.Status, at time.Time) (project.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.projects[id]
	if !ok {
		return "", storage.NotFoundError{Entity: "project", ID: id}
	}
	p.Status = project.Advance(p.Status, status)
	p.UpdatedAt = at
	d.projects[id] = p
	return p.Status, nil
}

func (d *Driver) AppendRun(_ context.Context, r *project.Run) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.projects[r.ProjectID]; !ok {
		return storage.NotFoundError{Entity: "project", ID: r.ProjectID}
	}
	d.runs[r.ProjectID] = append(d.runs[r.ProjectID], *r)
	return nil
}

func (d *Driver) LatestRun(_ context.Context, projectID string, kind project.RunKind) (*project.Run, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var latest *project.Run
	for i := range d.runs[projectID] {
		r := d.runs[projectID][i]
		if r.Kind != kind {
			continue
		}
		if latest == nil || !r.StartedAt.Before(latest.StartedAt) {
			latest = &r
		}
	}
	if latest == nil {
		return nil, storage.NotFoundError{Entity: string(kind) + " run", ID: projectID}
	}
	return latest, nil
}

func (d *Driver) ListRuns(_ context.Context, projectID string) ([]project.Run, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := append([]project.Run(nil), d.runs[projectID]...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

func (d *Driver) UpsertArtifact(_ context.Context, a *project.Artifact) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.projects[a.ProjectID]; !ok {
		return storage.NotFoundError{Entity: "project", ID: a.ProjectID}
	}
	byName, ok := d.artifacts[a.ProjectID]
	if !ok {
		byName = make(map[string]project.Artifact)
		d.artifacts[a.ProjectID] = byName
	}
	byName[a.Name] = *a
	return nil
}

func (d *Driver) ListArtifacts(_ context.Context, projectID string) ([]project.Artifact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]project.Artifact, 0, len(d.artifacts[projectID]))
	for _, a := range d.artifacts[projectID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *Driver) InsertMemory(_ context.Context, item *memory.Item) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.memories[item.ID]; ok {
		return fmt.Errorf("memory %s already exists", item.ID)
	}
	d.memories[item.ID] = copyItem(*item)
	return nil
}

func (d *Driver) GetMemories(_ context.Context, ids []string) ([]memory.Item, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []memory.Item
	for _, id := range ids {
		if it, ok := d.memories[id]; ok {
			out = append(out, copyItem(it))
		}
	}
	return out, nil
}

func (d *Driver) SoftDeleteMemory(_ context.Context, id string, at time.Time) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	it, ok := d.memories[id]
	if !ok {
		return false, nil
	}
	if !it.Deleted {
		it.Deleted = true
		it.DeletedAt = &at
		it.UpdatedAt = at
		d.memories[id] = it
	}
	return true, nil
}

func (d *Driver) ListRecentMemories(_ context.Context, owner project.Owner, projectID string, limit int) ([]memory.Item, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []memory.Item
	for _, it := range d.memories {
		if it.Deleted || it.Owner != owner {
			continue
		}
		if projectID != "" && it.ProjectID != projectID {
			continue
		}
		out = append(out, copyItem(it))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (d *Driver) UpsertPointer(_ context.Context, p *memory.Pointer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pointers[p.MemoryID] = *p
	return nil
}

func (d *Driver) ListOrphanPointers(_ context.Context, limit int) ([]memory.Pointer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []memory.Pointer
	for id, p := range d.pointers {
		if it, ok := d.memories[id]; ok && !it.Deleted {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemoryID < out[j].MemoryID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (d *Driver) DeletePointers(_ context.Context, memoryIDs []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range memoryIDs {
		delete(d.pointers, id)
	}
	return nil
}

func (d *Driver) Get(_ context.Context, key string) (string, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	v, ok := d.kv[key]
	return v, ok, nil
}

func (d *Driver) Set(_ context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.kv[key] = value
	return nil
}

func (d *Driver) Delete(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.kv, key)
	return nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

func copyItem(it memory.Item) memory.Item {
	it.Tags = append([]string{}, it.Tags...)
	if it.DeletedAt != nil {
		t := *it.DeletedAt
		it.DeletedAt = &t
	}
	return it
}

var _ storage.Driver = (*Driver)(nil)
