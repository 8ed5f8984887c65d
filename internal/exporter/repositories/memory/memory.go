// Package memory implements every repository over process memory. It backs
// the development mode and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/exporter3/internal/common"
	"github.com/dmitrijs2005/exporter3/internal/exporter/models"
	"github.com/google/uuid"
)

var errLedger = fmt.Errorf("%w: %w", common.ErrLedgerInconsistency, common.ErrorNotFound)

// Store holds all tables. The repositories returned by its accessors share
// one lock.
type Store struct {
	mu sync.Mutex

	records      map[string]models.UploadRecord
	versions     map[string][]models.ParticipantVersion
	participants map[string]models.SharingScope
	schedules    map[string]models.ScheduleContext
	folders      map[string]models.ArchiveFolder
	entries      map[string]models.ArchiveEntry

	now   func() time.Time
	newID func() string
}

func NewStore() *Store {
	return &Store{
		records:      map[string]models.UploadRecord{},
		versions:     map[string][]models.ParticipantVersion{},
		participants: map[string]models.SharingScope{},
		schedules:    map[string]models.ScheduleContext{},
		folders:      map[string]models.ArchiveFolder{},
		entries:      map[string]models.ArchiveEntry{},
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
	}
}

func (s *Store) Records() *Records           { return &Records{s} }
func (s *Store) Versions() *Versions         { return &Versions{s} }
func (s *Store) Participants() *Participants { return &Participants{s} }
func (s *Store) Schedules() *Schedules       { return &Schedules{s} }
func (s *Store) Catalog() *Catalog           { return &Catalog{s} }

type Records struct{ s *Store }

func (r *Records) Get(_ context.Context, uploadID string) (*models.UploadRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.records[uploadID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	rec.UserMetadata = append(models.Metadata(nil), rec.UserMetadata...)
	return &rec, nil
}

func (r *Records) Create(_ context.Context, rec *models.UploadRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.records[rec.UploadID]; ok {
		return common.ErrAlreadyExists
	}
	cp := *rec
	cp.UserMetadata = append(models.Metadata(nil), rec.UserMetadata...)
	cp.Exported, cp.ExportedOn, cp.Locator = false, nil, models.ArchiveLocator{}
	r.s.records[rec.UploadID] = cp
	return nil
}

func (r *Records) MarkExported(_ context.Context, uploadID string, exportedOn time.Time, loc models.ArchiveLocator) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.records[uploadID]
	if !ok {
		return common.ErrorNotFound
	}
	rec.Exported = true
	rec.ExportedOn = &exportedOn
	rec.Locator = loc
	r.s.records[uploadID] = rec
	return nil
}

type Versions struct{ s *Store }

func (v *Versions) CurrentVersion(_ context.Context, healthCode string, asOf time.Time) (*models.ParticipantVersion, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	list := v.s.versions[healthCode]
	for i := len(list) - 1; i >= 0; i-- {
		if !list[i].CreatedOn.After(asOf) {
			out := list[i]
			return &out, nil
		}
	}
	return nil, errLedger
}

func (v *Versions) Append(_ context.Context, pv *models.ParticipantVersion) (*models.ParticipantVersion, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	out := *pv
	if out.CreatedOn.IsZero() {
		out.CreatedOn = v.s.now()
	}
	out.ModifiedOn = out.CreatedOn
	out.Version = int64(len(v.s.versions[pv.HealthCode]) + 1)
	v.s.versions[pv.HealthCode] = append(v.s.versions[pv.HealthCode], out)
	return &out, nil
}

func (v *Versions) Get(_ context.Context, healthCode string, version int64) (*models.ParticipantVersion, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	list := v.s.versions[healthCode]
	if version < 1 || version > int64(len(list)) {
		return nil, common.ErrorNotFound
	}
	out := list[version-1]
	return &out, nil
}

type Participants struct{ s *Store }

func (p *Participants) GetSharingScope(_ context.Context, healthCode string) (models.SharingScope, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	scope, ok := p.s.participants[healthCode]
	if !ok {
		return "", common.ErrorNotFound
	}
	return scope, nil
}

func (p *Participants) SetSharingScope(_ context.Context, healthCode, _ string, scope models.SharingScope) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.participants[healthCode] = scope
	return nil
}

type Schedules struct{ s *Store }

func (sc *Schedules) ResolveInstance(_ context.Context, appID, instanceGUID string) (*models.ScheduleContext, error) {
	sc.s.mu.Lock()
	defer sc.s.mu.Unlock()
	ctx, ok := sc.s.schedules[appID+"/"+instanceGUID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &ctx, nil
}

// Put registers a scheduled-session instance.
func (sc *Schedules) Put(appID string, c models.ScheduleContext) {
	sc.s.mu.Lock()
	defer sc.s.mu.Unlock()
	sc.s.schedules[appID+"/"+c.InstanceGUID] = c
}

type Catalog struct{ s *Store }

func (c *Catalog) EnsureFolder(_ context.Context, appID, name string) (*models.ArchiveFolder, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	k := appID + "/" + name
	f, ok := c.s.folders[k]
	if !ok {
		f = models.ArchiveFolder{ID: c.s.newID(), AppID: appID, Name: name, CreatedOn: c.s.now()}
		c.s.folders[k] = f
	}
	return &f, nil
}

func (c *Catalog) LookupChild(_ context.Context, folderID, name string) (*models.ArchiveEntry, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.lookupLocked(folderID, name)
}

func (c *Catalog) lookupLocked(folderID, name string) (*models.ArchiveEntry, error) {
	for _, e := range c.s.entries {
		if e.FolderID == folderID && e.Name == name {
			return &e, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (c *Catalog) GetEntry(_ context.Context, id string) (*models.ArchiveEntry, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	e, ok := c.s.entries[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &e, nil
}

func (c *Catalog) InsertEntry(_ context.Context, e *models.ArchiveEntry) (*models.ArchiveEntry, bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if existing, err := c.lookupLocked(e.FolderID, e.Name); err == nil {
		return existing, false, nil
	}
	out := *e
	out.ID = c.s.newID()
	out.CreatedOn = c.s.now()
	c.s.entries[out.ID] = out
	return &out, true, nil
}

func (c *Catalog) DeleteEntry(_ context.Context, id string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if _, ok := c.s.entries[id]; !ok {
		return common.ErrorNotFound
	}
	delete(c.s.entries, id)
	return nil
}

// Entries lists the live entries of appID ordered by name.
func (c *Catalog) Entries(appID string) []models.ArchiveEntry {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	var out []models.ArchiveEntry
	for _, e := range c.s.entries {
		if e.AppID == appID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
