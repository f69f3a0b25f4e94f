package model

import (
	"strings"
	"time"
)

// Mod represents one managed add-on package with its install state.
//
// A Mod is created from a crawled page (see internal/crawler) and then
// owned by the registry, which is the only writer of record for the
// install-state fields (Enabled, InstalledFiles, ProvidedModules,
// RequiredModules).
//
// Example:
//
//	mod := model.Mod{
//	    ID:      model.IDFromURL("https://github.com/sarbian/ModuleManager"),
//	    Name:    "Module Manager",
//	    PageURL: "https://github.com/sarbian/ModuleManager",
//	}
type Mod struct {
	// ID is derived deterministically from PageURL via IDFromURL.
	ID string `json:"id"`

	// Name is the mod's display name as reported by its page.
	Name string `json:"name"`

	// Creator is the mod author as reported by its page.
	Creator string `json:"creator"`

	// PageURL is the canonical page the mod was added from.
	PageURL string `json:"page_url"`

	// UpdatedOn is the remote page's last-update timestamp. If the page
	// has no date, the crawl time is used instead.
	UpdatedOn time.Time `json:"updated_on"`

	// GameVersion is the free-text compatible game version, if known.
	GameVersion string `json:"game_version,omitempty"`

	// Version is the parsed mod version. Nil means the page offered no
	// parseable version; update comparisons then report Unknown.
	Version *Version `json:"version,omitempty"`

	// NewestFileName is the file name of the selected download asset.
	NewestFileName string `json:"newest_file_name"`

	// ImageURL is the mod's thumbnail image URL, if the page has one.
	ImageURL string `json:"image_url,omitempty"`

	// Enabled reports whether the mod's files are in the game data dir.
	Enabled bool `json:"enabled"`

	// InstalledFiles are the game-data-relative paths extracted from the
	// mod's archive while it is enabled.
	InstalledFiles []string `json:"installed_files,omitempty"`

	// ProvidedModules are the top-level archive modules this mod supplies.
	ProvidedModules []string `json:"provided_modules,omitempty"`

	// RequiredModules are shared modules this mod depends on (bundled
	// root-level library binaries).
	RequiredModules []string `json:"required_modules,omitempty"`

	// BuiltIn marks a non-removable mod seeded by the application.
	BuiltIn bool `json:"built_in,omitempty"`
}

// Asset is one downloadable file candidate offered by a mod page.
type Asset struct {
	FileName     string
	DownloadLink string
}

func (a Asset) String() string {
	return a.FileName
}

// IDFromURL derives a stable mod id from a page URL.
//
// The scheme is stripped and path separators are replaced with dashes,
// so the id is safe to embed in file names. Distinct hosts or paths
// produce distinct ids.
//
//	IDFromURL("https://github.com/foo/bar") == "github.com-foo-bar"
func IDFromURL(pageURL string) string {
	id := pageURL
	if i := strings.Index(id, "://"); i >= 0 {
		id = id[i+len("://"):]
	}
	id = strings.TrimSuffix(id, "/")
	return strings.ReplaceAll(id, "/", "-")
}

// Provides reports whether the mod supplies the named module.
func (m *Mod) Provides(module string) bool {
	for _, p := range m.ProvidedModules {
		if strings.EqualFold(p, module) {
			return true
		}
	}
	return false
}

// Requires reports whether the mod depends on the named module.
func (m *Mod) Requires(module string) bool {
	for _, r := range m.RequiredModules {
		if strings.EqualFold(r, module) {
			return true
		}
	}
	return false
}
