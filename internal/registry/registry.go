package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/modkeeper/modkeeper/internal/model"
)

// ChangeType describes a registry mutation.
type ChangeType int

const (
	Added ChangeType = iota
	Updated
	Removed
)

func (c ChangeType) String() string {
	switch c {
	case Added:
		return "added"
	case Updated:
		return "updated"
	default:
		return "removed"
	}
}

// Change is the notification sent to observers after a mutation has
// been persisted.
type Change struct {
	Type ChangeType
	ID   string
}

// Observer receives registry change notifications.
type Observer func(Change)

// Registry is the durable store of known mods and the single source of
// truth for install/enable state.
//
// The registry is single-writer: each mutation persists synchronously
// and notifies observers before the next mutation is accepted, so
// observers never see an inconsistent interim state. Reads return
// copies.
type Registry struct {
	path string
	log  *log.Logger

	mu     sync.Mutex
	mods   map[string]model.Mod
	loaded bool

	observers []Observer
}

// New creates a registry persisting to the given JSON file. Records
// are loaded lazily on first access.
func New(path string, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{path: path, log: logger}
}

// AddObserver registers an observer for subsequent mutations.
func (r *Registry) AddObserver(obs Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, obs)
}

// GetAll returns every known mod, sorted by name.
func (r *Registry) GetAll() ([]model.Mod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return nil, err
	}

	mods := make([]model.Mod, 0, len(r.mods))
	for _, mod := range r.mods {
		mods = append(mods, mod)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].Name < mods[j].Name })
	return mods, nil
}

// Get returns the mod with the given id.
func (r *Registry) Get(id string) (model.Mod, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return model.Mod{}, false, err
	}
	mod, ok := r.mods[id]
	return mod, ok, nil
}

// Put inserts or updates a crawler-sourced mod record.
//
// On update, the registry-owned install-state fields of the existing
// record (enabled flag, installed file list, provided/required module
// lists, built-in flag) are preserved: a re-crawl must not silently
// clear install state. Use SetInstallState to change those fields.
func (r *Registry) Put(mod model.Mod) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return err
	}

	changeType := Added
	if existing, ok := r.mods[mod.ID]; ok {
		changeType = Updated
		mod.Enabled = existing.Enabled
		mod.InstalledFiles = existing.InstalledFiles
		mod.ProvidedModules = existing.ProvidedModules
		mod.RequiredModules = existing.RequiredModules
		mod.BuiltIn = existing.BuiltIn
	}
	r.mods[mod.ID] = mod

	if err := r.persist(); err != nil {
		return err
	}
	r.notify(Change{Type: changeType, ID: mod.ID})
	return nil
}

// SetInstallState explicitly updates the registry-owned install-state
// fields of an existing record.
func (r *Registry) SetInstallState(id string, enabled bool, installed, provided, required []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return err
	}

	mod, ok := r.mods[id]
	if !ok {
		return fmt.Errorf("unknown mod id %q", id)
	}
	mod.Enabled = enabled
	mod.InstalledFiles = installed
	mod.ProvidedModules = provided
	mod.RequiredModules = required
	r.mods[id] = mod

	if err := r.persist(); err != nil {
		return err
	}
	r.notify(Change{Type: Updated, ID: id})
	return nil
}

// Remove deletes the mod with the given id. Removing an unknown id is
// a no-op.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return err
	}
	if _, ok := r.mods[id]; !ok {
		return nil
	}
	delete(r.mods, id)

	if err := r.persist(); err != nil {
		return err
	}
	r.notify(Change{Type: Removed, ID: id})
	return nil
}

// EnsureBuiltIn seeds a non-removable mod record if it is not already
// present.
func (r *Registry) EnsureBuiltIn(mod model.Mod) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return err
	}
	if _, ok := r.mods[mod.ID]; ok {
		return nil
	}
	mod.BuiltIn = true
	r.mods[mod.ID] = mod

	if err := r.persist(); err != nil {
		return err
	}
	r.notify(Change{Type: Added, ID: mod.ID})
	return nil
}

// load reads the persisted records on first access. A missing file is
// an empty registry. Individual unparseable records are skipped with a
// warning instead of discarding the whole collection.
func (r *Registry) load() error {
	if r.loaded {
		return nil
	}

	r.mods = map[string]model.Mod{}
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.loaded = true
			return nil
		}
		return err
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("reading registry %s: %w", r.path, err)
	}

	for _, record := range records {
		var mod model.Mod
		if err := json.Unmarshal(record, &mod); err != nil || mod.ID == "" {
			r.log.Warn("skipping unparseable registry record", "err", err)
			continue
		}
		r.mods[mod.ID] = mod
	}

	r.loaded = true
	return nil
}

// persist writes the whole collection to a temp file and atomically
// renames it over the registry path.
func (r *Registry) persist() error {
	mods := make([]model.Mod, 0, len(r.mods))
	for _, mod := range r.mods {
		mods = append(mods, mod)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].ID < mods[j].ID })

	data, err := json.MarshalIndent(mods, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

func (r *Registry) notify(change Change) {
	for _, obs := range r.observers {
		obs(change)
	}
}
