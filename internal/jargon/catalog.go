package jargon

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrNotFound = errors.New("jargon: profile not found")
	ErrReadOnly = errors.New("jargon: built-in profiles are read-only")
	ErrInvalid  = errors.New("jargon: invalid profile")
)

// Catalog is the single table of built-in and user profiles. Readers take an
// immutable Snapshot; writers replace entries under the lock.
type Catalog struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	version  uint64
}

// NewCatalog returns a catalog pre-populated with the built-in profiles, all
// enabled.
func NewCatalog() *Catalog {
	c := &Catalog{profiles: make(map[string]Profile)}
	for _, p := range Builtins() {
		p.Enabled = true
		c.profiles[p.ID] = p
	}
	return c
}

// Put inserts or replaces a user profile.
func (c *Catalog) Put(p Profile) error {
	p = normalizeProfile(p)
	if err := validateProfile(p); err != nil {
		return err
	}
	p.Provenance = ProvenanceUser

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.profiles[p.ID]; ok && existing.ReadOnly() {
		return fmt.Errorf("%w: %s", ErrReadOnly, p.ID)
	}
	c.profiles[p.ID] = p.clone()
	c.version++
	return nil
}

// Remove deletes a user profile.
func (c *Catalog) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.profiles[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if existing.ReadOnly() {
		return fmt.Errorf("%w: %s", ErrReadOnly, id)
	}
	delete(c.profiles, id)
	c.version++
	return nil
}

// SetEnabled toggles whether a profile takes part in selection. Built-ins may
// be disabled but not edited.
func (c *Catalog) SetEnabled(id string, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.profiles[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	p.Enabled = enabled
	c.profiles[id] = p
	c.version++
	return nil
}

func (c *Catalog) Get(id string) (Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.profiles[id]
	if !ok {
		return Profile{}, false
	}
	return p.clone(), true
}

// Snapshot copies the catalog. Later writes do not affect the snapshot.
func (c *Catalog) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Snapshot{
		Version:  c.version,
		Profiles: make([]Profile, 0, len(c.profiles)),
		byID:     make(map[string]int, len(c.profiles)),
	}
	for _, p := range c.profiles {
		s.Profiles = append(s.Profiles, p.clone())
	}
	sort.Slice(s.Profiles, func(i, j int) bool { return s.Profiles[i].ID < s.Profiles[j].ID })
	for i, p := range s.Profiles {
		s.byID[p.ID] = i
	}
	return s
}

// ImportPacks decodes a pack document and stores every valid entry as a user
// profile. Malformed entries are skipped and listed in the report.
func (c *Catalog) ImportPacks(data []byte) (ImportReport, error) {
	doc, report, err := DecodePacks(data)
	if err != nil {
		return report, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, pack := range doc.Packs {
		if existing, ok := c.profiles[pack.ID]; ok && existing.ReadOnly() {
			report.Issues = append(report.Issues, Issue{ID: pack.ID, Reason: "id collides with a built-in profile"})
			continue
		}
		p := Profile{
			ID:          pack.ID,
			Label:       pack.Label,
			Terms:       pack.Terms,
			Corrections: pack.Corrections,
			Enabled:     true,
			Provenance:  ProvenanceUser,
		}
		c.profiles[p.ID] = p.clone()
		report.Imported = append(report.Imported, p.ID)
	}
	if len(report.Imported) > 0 {
		c.version++
	}
	return report, nil
}

// ExportPacks encodes the user profiles as a pack document in format "json"
// or "yaml".
func (c *Catalog) ExportPacks(format string) ([]byte, error) {
	snap := c.Snapshot()
	doc := Document{Version: DocumentVersion}
	for _, p := range snap.Profiles {
		if p.ReadOnly() {
			continue
		}
		doc.Packs = append(doc.Packs, Pack{ID: p.ID, Label: p.Label, Terms: p.Terms, Corrections: p.Corrections})
	}
	return EncodePacks(doc, format)
}

// Snapshot is an immutable view of the catalog, sorted by id.
type Snapshot struct {
	Version  uint64
	Profiles []Profile
	byID     map[string]int
}

func (s Snapshot) Get(id string) (Profile, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Profile{}, false
	}
	return s.Profiles[i], true
}

// Enabled returns the profiles eligible for selection.
func (s Snapshot) Enabled() []Profile {
	out := make([]Profile, 0, len(s.Profiles))
	for _, p := range s.Profiles {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

func normalizeProfile(p Profile) Profile {
	p.ID = strings.TrimSpace(p.ID)
	p.Label = strings.TrimSpace(p.Label)
	var ts []string
	for _, t := range p.Terms {
		if t = strings.TrimSpace(t); t != "" {
			ts = append(ts, t)
		}
	}
	p.Terms = ts
	return p
}

func validateProfile(p Profile) error {
	if p.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalid)
	}
	if p.Label == "" {
		return fmt.Errorf("%w: label is required for %s", ErrInvalid, p.ID)
	}
	for i, c := range p.Corrections {
		if strings.TrimSpace(c.From) == "" || strings.TrimSpace(c.To) == "" {
			return fmt.Errorf("%w: correction %d of %s needs from and to", ErrInvalid, i, p.ID)
		}
	}
	return nil
}
