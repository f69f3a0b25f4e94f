package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/modkeeper/modkeeper/internal/model"
)

// ValidAssetExtensions are the file extensions eligible for download.
var ValidAssetExtensions = []string{".zip", ".dll"}

// Sentinel errors for the resolution taxonomy. Callers match them with
// errors.Is.
var (
	// ErrNoDownloadsFound means the page offered zero assets with a
	// permitted extension.
	ErrNoDownloadsFound = errors.New("no downloads found for this mod")

	// ErrNoAssetSelected means multiple assets were offered and none
	// was chosen. Resolving again will prompt again.
	ErrNoAssetSelected = errors.New("no download asset selected")

	// ErrUnsupportedHost means the URL's host has no crawler variant
	// and fallback was not permitted.
	ErrUnsupportedHost = errors.New("unsupported mod host")
)

// Document is one fetched remote page.
type Document struct {
	URL  string
	Body []byte
}

// PageLoader fetches a remote page. It is the only network capability
// the crawler depends on; tests substitute canned documents.
type PageLoader interface {
	GetPage(ctx context.Context, url string) (*Document, error)
}

// AssetSelector resolves ambiguity when a page offers multiple valid
// downloadable assets. The interactive implementation asks the user;
// automated callers supply a deterministic one.
type AssetSelector interface {
	// SelectAsset returns the chosen asset, or nil if none was chosen.
	SelectAsset(modName string, assets []model.Asset) *model.Asset
}

// AssetSelectorFunc adapts a function to the AssetSelector interface.
type AssetSelectorFunc func(modName string, assets []model.Asset) *model.Asset

func (f AssetSelectorFunc) SelectAsset(modName string, assets []model.Asset) *model.Asset {
	return f(modName, assets)
}

// pageInfo is the normalized content of a fetched mod page, produced
// by a host-specific parser.
type pageInfo struct {
	Name        string
	Creator     string
	GameVersion string
	VersionText string
	ImageURL    string
	UpdatedOn   time.Time
	Assets      []model.Asset
}

// hostParser is implemented once per supported host. fetchURL maps the
// user-facing page URL to the URL actually fetched (an API endpoint
// for hosts that have one); parse turns the fetched document into
// normalized page info.
type hostParser interface {
	fetchURL(pageURL string) string
	parse(doc *Document) (*pageInfo, error)
}

// Result is a successful one-shot resolution: the normalized mod plus
// the selected download asset.
type Result struct {
	Mod      model.Mod
	Asset    model.Asset
	ImageURL string
}

// Crawler turns one remote mod page into a normalized artifact
// description.
//
// Resolve is one-shot and memoized: the first successful call fetches
// and parses the page, selects an asset and freezes the result; later
// calls return it without re-fetching or re-prompting. A failed
// resolution leaves no cached state, so it can be retried from
// scratch.
type Crawler struct {
	// PageURL is the canonical page this crawler resolves.
	PageURL string

	host     string
	loader   PageLoader
	parser   hostParser
	selector AssetSelector

	mu     sync.Mutex
	result *Result
}

// Resolve fetches and parses the mod page, returning the normalized
// mod and its selected asset.
//
// Version resolution follows a fallback order: the page's explicit
// version field first, then a version token embedded in the selected
// asset's file name, and finally absent (nil) — an unparseable version
// is not an error.
func (c *Crawler) Resolve(ctx context.Context) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.result != nil {
		return c.result, nil
	}

	doc, err := c.loader.GetPage(ctx, c.parser.fetchURL(c.PageURL))
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", c.PageURL, err)
	}

	info, err := c.parser.parse(doc)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", c.PageURL, err)
	}

	asset, err := c.selectAsset(info)
	if err != nil {
		return nil, err
	}

	version := model.ParseVersion(info.VersionText)
	if version == nil {
		version = model.ParseVersion(asset.FileName)
	}

	updatedOn := info.UpdatedOn
	if updatedOn.IsZero() {
		updatedOn = time.Now()
	}

	c.result = &Result{
		Mod: model.Mod{
			ID:             model.IDFromURL(c.PageURL),
			Name:           info.Name,
			Creator:        info.Creator,
			PageURL:        c.PageURL,
			UpdatedOn:      updatedOn,
			GameVersion:    info.GameVersion,
			Version:        version,
			NewestFileName: asset.FileName,
			ImageURL:       info.ImageURL,
		},
		Asset:    *asset,
		ImageURL: info.ImageURL,
	}
	return c.result, nil
}

// selectAsset filters the page's assets to permitted extensions and
// disambiguates: zero eligible assets is an error, exactly one is
// selected automatically, more than one is delegated to the selector.
func (c *Crawler) selectAsset(info *pageInfo) (*model.Asset, error) {
	var eligible []model.Asset
	for _, asset := range info.Assets {
		if hasValidExtension(asset.FileName) {
			eligible = append(eligible, asset)
		}
	}

	switch len(eligible) {
	case 0:
		return nil, fmt.Errorf("%s: %w", c.PageURL, ErrNoDownloadsFound)
	case 1:
		return &eligible[0], nil
	default:
		chosen := c.selector.SelectAsset(info.Name, eligible)
		if chosen == nil {
			return nil, fmt.Errorf("%s: %w", c.PageURL, ErrNoAssetSelected)
		}
		return chosen, nil
	}
}

func hasValidExtension(fileName string) bool {
	lower := strings.ToLower(fileName)
	for _, ext := range ValidAssetExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
