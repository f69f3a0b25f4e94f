package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/modkeeper/modkeeper/internal/archive"
	"github.com/modkeeper/modkeeper/internal/config"
	"github.com/modkeeper/modkeeper/internal/crawler"
	"github.com/modkeeper/modkeeper/internal/model"
	"github.com/modkeeper/modkeeper/internal/registry"
	"github.com/modkeeper/modkeeper/internal/workflow"
)

// maxConcurrentChecks bounds the crawler fan-out of CheckForUpdates.
const maxConcurrentChecks = 4

// Client is the network capability the manager needs: page-sized
// fetches for update checks and streaming downloads for workflows.
// *webclient.Client implements it.
type Client interface {
	workflow.Downloader
	workflow.Fetcher
}

// Manager reconciles crawl results against the registry and drives the
// workflow engine to install, update, delete or toggle mods.
type Manager struct {
	settings *config.Settings
	factory  *crawler.Factory
	engine   *workflow.Engine
	registry *registry.Registry
	client   Client
	log      *log.Logger

	mu       sync.Mutex
	inflight map[string]bool
	wfMods   map[string]string
}

// New creates a Manager. All collaborators are explicit; nothing is
// read from global state.
func New(settings *config.Settings, factory *crawler.Factory, engine *workflow.Engine, reg *registry.Registry, client Client, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	m := &Manager{
		settings: settings,
		factory:  factory,
		engine:   engine,
		registry: reg,
		client:   client,
		log:      logger,
		inflight: map[string]bool{},
		wfMods:   map[string]string{},
	}
	engine.AddListener(m.onWorkflowEvent)
	return m
}

// onWorkflowEvent releases a mod's busy flag when its workflow
// finishes, whatever the outcome.
func (m *Manager) onWorkflowEvent(ev workflow.Event) {
	if ev.Type != workflow.WorkflowCompleted && ev.Type != workflow.WorkflowFailed {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if modID, ok := m.wfMods[ev.WorkflowID]; ok {
		delete(m.wfMods, ev.WorkflowID)
		delete(m.inflight, modID)
	}
}

// UpdateCheck is the outcome of reconciling one mod against its page.
type UpdateCheck struct {
	Mod      model.Mod
	Ordering model.Ordering
}

// AddOrUpdateMod resolves the page at url and reconciles it against
// the registry: an unknown id queues an install workflow, a known id
// with a newer or unknown remote version queues an update workflow,
// and a known id that is already current is a no-op.
func (m *Manager) AddOrUpdateMod(ctx context.Context, pageURL string) error {
	pageURL = normalizeURL(pageURL)

	c, err := m.factory.GetCrawler(pageURL, true)
	if err != nil {
		return err
	}
	return m.reconcile(ctx, c, false)
}

// UpdateMod re-resolves an existing mod's page and queues an update
// workflow. With force, the update runs even if the remote version is
// not known to be newer.
func (m *Manager) UpdateMod(ctx context.Context, mod model.Mod, force bool) error {
	c, err := m.factory.GetCrawler(mod.PageURL, true)
	if err != nil {
		return err
	}
	return m.reconcile(ctx, c, force)
}

func (m *Manager) reconcile(ctx context.Context, c *crawler.Crawler, force bool) error {
	res, err := c.Resolve(ctx)
	if err != nil {
		return err
	}

	existing, known, err := m.registry.Get(res.Mod.ID)
	if err != nil {
		return err
	}

	if !known {
		return m.queueInstall(ctx, res)
	}

	ordering := model.CompareVersions(existing.Version, res.Mod.Version)
	switch {
	case force, ordering == model.OrderingNewer, ordering == model.OrderingUnknown:
		return m.queueUpdate(ctx, existing, res)
	default:
		// Equal or older remote copy; nothing to do.
		m.log.Debug("mod already current", "mod", existing.Name, "ordering", ordering)
		return nil
	}
}

// queueInstall builds the workflow for a mod not yet in the registry:
// download the artifact, cache the thumbnail, extract the modules into
// the game data directory, then record the mod as enabled.
func (m *Manager) queueInstall(ctx context.Context, res *crawler.Result) error {
	if !m.markBusy(res.Mod.ID) {
		return fmt.Errorf("%s: %w", res.Mod.ID, ErrUpdateInProgress)
	}

	artifact := m.artifactPath(res.Mod.NewestFileName)
	staged := artifact + ".staged"
	extract := &workflow.ExtractResult{}

	tasks := []workflow.Task{
		m.downloadTask(res.Asset.DownloadLink, staged),
		&workflow.MoveTask{Src: staged, Dest: artifact},
	}
	tasks = append(tasks, m.imageTasks(res)...)
	tasks = append(tasks,
		&workflow.ExtractTask{Archive: artifact, DestDir: m.settings.GameDataPath, Result: extract},
		&workflow.FuncTask{TaskName: "register " + res.Mod.Name, Fn: func(ctx context.Context) error {
			if err := m.registry.Put(res.Mod); err != nil {
				return err
			}
			return m.registry.SetInstallState(
				res.Mod.ID, true,
				extract.Installed,
				extract.Structure.ModuleNames(),
				extract.Structure.DependencyModules(),
			)
		}},
	)

	m.submit(ctx, workflow.New("install "+res.Mod.Name, tasks...), res.Mod.ID)
	return nil
}

// queueUpdate builds the workflow for refreshing an installed mod:
// download the new artifact to a staging path, move it into place,
// delete the previous cached artifact, swap the installed files if the
// mod is enabled, then update the registry entry.
func (m *Manager) queueUpdate(ctx context.Context, existing model.Mod, res *crawler.Result) error {
	if !m.markBusy(existing.ID) {
		return fmt.Errorf("%s: %w", existing.ID, ErrUpdateInProgress)
	}

	artifact := m.artifactPath(res.Mod.NewestFileName)
	staged := artifact + ".staged"
	extract := &workflow.ExtractResult{}

	tasks := []workflow.Task{
		m.downloadTask(res.Asset.DownloadLink, staged),
		&workflow.MoveTask{Src: staged, Dest: artifact},
	}
	if old := m.artifactPath(existing.NewestFileName); existing.NewestFileName != "" && old != artifact {
		tasks = append(tasks, &workflow.DeleteTask{Path: old})
	}
	tasks = append(tasks, m.imageTasks(res)...)

	if existing.Enabled {
		tasks = append(tasks,
			&workflow.FuncTask{TaskName: "remove old files", Fn: func(ctx context.Context) error {
				return archive.RemoveInstalled(m.settings.GameDataPath, existing.InstalledFiles)
			}},
			&workflow.ExtractTask{Archive: artifact, DestDir: m.settings.GameDataPath, Result: extract},
		)
	}

	tasks = append(tasks, &workflow.FuncTask{TaskName: "register " + res.Mod.Name, Fn: func(ctx context.Context) error {
		if err := m.registry.Put(res.Mod); err != nil {
			return err
		}
		if extract.Structure == nil {
			return nil
		}
		return m.registry.SetInstallState(
			res.Mod.ID, true,
			extract.Installed,
			extract.Structure.ModuleNames(),
			extract.Structure.DependencyModules(),
		)
	}})

	m.submit(ctx, workflow.New("update "+res.Mod.Name, tasks...), existing.ID)
	return nil
}

// CheckForUpdates re-resolves every given mod and reports how each
// compares to its remote page. Mods are checked independently; one
// failure never blocks the rest, and all failures are reported as one
// aggregate at the end.
func (m *Manager) CheckForUpdates(ctx context.Context, mods []model.Mod) ([]UpdateCheck, error) {
	results := make([]*UpdateCheck, len(mods))
	failures := make([]*ModFailure, len(mods))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentChecks)

	for i, mod := range mods {
		g.Go(func() error {
			c, err := m.factory.GetCrawler(mod.PageURL, true)
			if err != nil {
				failures[i] = &ModFailure{ID: mod.ID, Err: err}
				return nil
			}
			res, err := c.Resolve(ctx)
			if err != nil {
				failures[i] = &ModFailure{ID: mod.ID, Err: err}
				return nil
			}
			results[i] = &UpdateCheck{
				Mod:      mod,
				Ordering: model.CompareVersions(mod.Version, res.Mod.Version),
			}
			return nil
		})
	}
	g.Wait()

	var checks []UpdateCheck
	for _, r := range results {
		if r != nil {
			checks = append(checks, *r)
		}
	}

	var failed []ModFailure
	for _, f := range failures {
		if f != nil {
			failed = append(failed, *f)
		}
	}
	if len(failed) > 0 {
		return checks, &ModUpdateFailedError{Failures: failed}
	}
	return checks, nil
}

// UpdateAllMods checks every registered mod and queues update
// workflows for those with a newer remote version. Mods whose version
// cannot be determined are reported in the returned checks so the
// caller can offer a forced refresh.
func (m *Manager) UpdateAllMods(ctx context.Context) ([]UpdateCheck, error) {
	mods, err := m.registry.GetAll()
	if err != nil {
		return nil, err
	}

	checks, checkErr := m.CheckForUpdates(ctx, mods)

	var failed []ModFailure
	if agg, ok := checkErr.(*ModUpdateFailedError); ok {
		failed = agg.Failures
	}

	for _, check := range checks {
		if check.Ordering != model.OrderingNewer {
			continue
		}
		if err := m.UpdateMod(ctx, check.Mod, false); err != nil {
			failed = append(failed, ModFailure{ID: check.Mod.ID, Err: err})
		}
	}

	if len(failed) > 0 {
		return checks, &ModUpdateFailedError{Failures: failed}
	}
	return checks, nil
}

// ToggleEnabled flips a mod's enabled flag, moving its managed files
// into or out of the game data directory.
//
// Disabling fails with CannotDisableModError if another enabled mod's
// structure declares a dependency on a module this mod provides; the
// registry is left unchanged in that case.
func (m *Manager) ToggleEnabled(ctx context.Context, mod model.Mod) error {
	current, ok, err := m.registry.Get(mod.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("unknown mod id %q", mod.ID)
	}

	if current.Enabled {
		return m.disable(current)
	}
	return m.enable(current)
}

func (m *Manager) enable(mod model.Mod) error {
	structure, err := archive.InspectStructure(m.artifactPath(mod.NewestFileName))
	if err != nil {
		return fmt.Errorf("enabling %s: %w", mod.Name, err)
	}

	installed, err := archive.Extract(structure, m.settings.GameDataPath)
	if err != nil {
		return fmt.Errorf("enabling %s: %w", mod.Name, err)
	}

	return m.registry.SetInstallState(
		mod.ID, true, installed,
		structure.ModuleNames(), structure.DependencyModules(),
	)
}

func (m *Manager) disable(mod model.Mod) error {
	if err := m.checkDependents(mod); err != nil {
		return err
	}

	if err := archive.RemoveInstalled(m.settings.GameDataPath, mod.InstalledFiles); err != nil {
		return fmt.Errorf("disabling %s: %w", mod.Name, err)
	}

	return m.registry.SetInstallState(mod.ID, false, nil, mod.ProvidedModules, mod.RequiredModules)
}

// checkDependents refuses to disable a mod that provides a module some
// other enabled mod requires.
func (m *Manager) checkDependents(mod model.Mod) error {
	mods, err := m.registry.GetAll()
	if err != nil {
		return err
	}
	for _, other := range mods {
		if other.ID == mod.ID || !other.Enabled {
			continue
		}
		for _, required := range other.RequiredModules {
			if mod.Provides(required) {
				return &CannotDisableModError{Name: mod.Name, RequiredBy: other.Name, Module: required}
			}
		}
	}
	return nil
}

// DeleteMod removes a mod entirely: its installed files, its cached
// artifacts and its registry entry. Built-in mods are refused.
func (m *Manager) DeleteMod(ctx context.Context, mod model.Mod) error {
	current, ok, err := m.registry.Get(mod.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("unknown mod id %q", mod.ID)
	}
	if current.BuiltIn {
		return fmt.Errorf("%s: %w", current.Name, ErrBuiltInMod)
	}

	if current.Enabled {
		if err := m.disable(current); err != nil {
			return err
		}
	}

	if current.NewestFileName != "" {
		if err := os.Remove(m.artifactPath(current.NewestFileName)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if current.ImageURL != "" {
		os.Remove(m.imagePath(current.ImageURL))
	}

	return m.registry.Remove(current.ID)
}

// exportRecord is the serialized form of one enabled mod in an export
// file: just enough identity to reconstruct the set via AddOrUpdateMod.
type exportRecord struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	PageURL string `json:"page_url"`
	Version string `json:"version,omitempty"`
}

// ExportEnabled writes the currently enabled mods' identifying records
// to path.
func (m *Manager) ExportEnabled(path string) error {
	mods, err := m.registry.GetAll()
	if err != nil {
		return err
	}

	var records []exportRecord
	for _, mod := range mods {
		if !mod.Enabled {
			continue
		}
		records = append(records, exportRecord{
			ID:      mod.ID,
			Name:    mod.Name,
			PageURL: mod.PageURL,
			Version: mod.Version.String(),
		})
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ImportMods reads an export file and adds or updates every listed
// mod. Import is idempotent: an already-present id is updated, never
// duplicated. Individual failures are aggregated; the rest of the
// import proceeds.
func (m *Manager) ImportMods(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var records []exportRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("reading import file %s: %w", path, err)
	}

	var failed []ModFailure
	for _, record := range records {
		if err := m.AddOrUpdateMod(ctx, record.PageURL); err != nil {
			failed = append(failed, ModFailure{ID: record.ID, Err: err})
		}
	}
	if len(failed) > 0 {
		return &ModUpdateFailedError{Failures: failed}
	}
	return nil
}

// -- Internals -------------------------------------------------------

func (m *Manager) downloadTask(url, dest string) *workflow.DownloadTask {
	return &workflow.DownloadTask{
		Client:        m.client,
		URL:           url,
		Dest:          dest,
		MaxRetries:    m.settings.DownloadMaxRetries,
		RetryCooldown: m.settings.DownloadRetryCooldown,
		RetryExponent: m.settings.DownloadRetryExponent,
	}
}

func (m *Manager) imageTasks(res *crawler.Result) []workflow.Task {
	if res.ImageURL == "" {
		return nil
	}
	return []workflow.Task{&workflow.CacheImageTask{
		Client:    m.client,
		URL:       res.ImageURL,
		Dest:      m.imagePath(res.ImageURL),
		MaxWidth:  m.settings.ImageMaxWidth,
		MaxHeight: m.settings.ImageMaxHeight,
	}}
}

func (m *Manager) submit(ctx context.Context, wf *workflow.Workflow, modID string) {
	m.mu.Lock()
	m.wfMods[wf.ID] = modID
	m.mu.Unlock()
	m.engine.Submit(ctx, wf)
}

func (m *Manager) markBusy(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inflight[id] {
		return false
	}
	m.inflight[id] = true
	return true
}

func (m *Manager) artifactPath(fileName string) string {
	return filepath.Join(m.settings.ArtifactCachePath(), fileName)
}

func (m *Manager) imagePath(imageURL string) string {
	return filepath.Join(m.settings.ImageCachePath(), path.Base(imageURL))
}

// normalizeURL prefixes a bare host/path with http:// so pasted URLs
// without a scheme still resolve.
func normalizeURL(pageURL string) string {
	if !strings.Contains(pageURL, "://") {
		return "http://" + pageURL
	}
	return pageURL
}
