package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/modkeeper/modkeeper/internal/model"
)

// fakeLoader serves canned documents keyed by URL and counts fetches.
type fakeLoader struct {
	pages   map[string]string
	fetches int
}

func (f *fakeLoader) GetPage(ctx context.Context, url string) (*Document, error) {
	f.fetches++
	body, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("no such page: %s", url)
	}
	return &Document{URL: url, Body: []byte(body)}, nil
}

func selectNone(string, []model.Asset) *model.Asset { return nil }

func selectByName(name string) AssetSelectorFunc {
	return func(_ string, assets []model.Asset) *model.Asset {
		for i := range assets {
			if assets[i].FileName == name {
				return &assets[i]
			}
		}
		return nil
	}
}

const githubPage = "https://github.com/testcreator/TestMod"
const githubAPI = "https://api.github.com/repos/testcreator/TestMod/releases/latest"

func githubReleaseJSON(assets string) string {
	return `{
		"tag_name": "v2.0",
		"name": "Release Two",
		"published_at": "2023-05-15T00:00:00Z",
		"author": {"login": "testcreator"},
		"assets": [` + assets + `]
	}`
}

func TestResolve_GitHub(t *testing.T) {
	loader := &fakeLoader{pages: map[string]string{
		githubAPI: githubReleaseJSON(`{"name": "TestMod-2.0.zip", "browser_download_url": "https://example.com/TestMod-2.0.zip"}`),
	}}

	factory := NewFactory(loader, AssetSelectorFunc(selectNone))
	c, err := factory.GetCrawler(githubPage, false)
	if err != nil {
		t.Fatalf("GetCrawler failed: %v", err)
	}

	res, err := c.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	mod := res.Mod
	if mod.ID != "github.com-testcreator-TestMod" {
		t.Errorf("ID = %q", mod.ID)
	}
	if mod.Name != "TestMod" {
		t.Errorf("Name = %q, want TestMod", mod.Name)
	}
	if mod.Creator != "testcreator" {
		t.Errorf("Creator = %q", mod.Creator)
	}
	if mod.Version == nil || mod.Version.Raw != "2.0" {
		t.Errorf("Version = %v, want 2.0", mod.Version)
	}
	if mod.NewestFileName != "TestMod-2.0.zip" {
		t.Errorf("NewestFileName = %q", mod.NewestFileName)
	}
	if res.Asset.DownloadLink != "https://example.com/TestMod-2.0.zip" {
		t.Errorf("DownloadLink = %q", res.Asset.DownloadLink)
	}
}

func TestResolve_Memoized(t *testing.T) {
	loader := &fakeLoader{pages: map[string]string{
		githubAPI: githubReleaseJSON(`{"name": "TestMod-2.0.zip", "browser_download_url": "https://example.com/TestMod-2.0.zip"}`),
	}}

	factory := NewFactory(loader, AssetSelectorFunc(selectNone))
	c, _ := factory.GetCrawler(githubPage, false)

	first, err := c.Resolve(context.Background())
	if err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}
	second, err := c.Resolve(context.Background())
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}

	if loader.fetches != 1 {
		t.Errorf("fetches = %d, want 1 (memoized)", loader.fetches)
	}
	if first != second {
		t.Error("second Resolve returned a different result value")
	}
}

func TestResolve_FailureLeavesNoCache(t *testing.T) {
	loader := &fakeLoader{pages: map[string]string{}}

	factory := NewFactory(loader, AssetSelectorFunc(selectNone))
	c, _ := factory.GetCrawler(githubPage, false)

	if _, err := c.Resolve(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}

	// Page becomes available; retry must fetch again and succeed.
	loader.pages[githubAPI] = githubReleaseJSON(`{"name": "TestMod-2.0.zip", "browser_download_url": "https://example.com/TestMod-2.0.zip"}`)
	if _, err := c.Resolve(context.Background()); err != nil {
		t.Fatalf("retry after failure did not succeed: %v", err)
	}
	if loader.fetches != 2 {
		t.Errorf("fetches = %d, want 2", loader.fetches)
	}
}

func TestResolve_SingleAssetSkipsSelector(t *testing.T) {
	loader := &fakeLoader{pages: map[string]string{
		githubAPI: githubReleaseJSON(
			`{"name": "TestMod-2.0.zip", "browser_download_url": "https://example.com/TestMod-2.0.zip"},
			 {"name": "source.tar.gz", "browser_download_url": "https://example.com/source.tar.gz"}`),
	}}

	selectorCalled := false
	selector := AssetSelectorFunc(func(_ string, assets []model.Asset) *model.Asset {
		selectorCalled = true
		return &assets[0]
	})

	factory := NewFactory(loader, selector)
	c, _ := factory.GetCrawler(githubPage, false)
	res, err := c.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// tar.gz is not a permitted extension, so only one eligible asset
	// remains and the selector must not be invoked.
	if selectorCalled {
		t.Error("selector invoked for a single eligible asset")
	}
	if res.Asset.FileName != "TestMod-2.0.zip" {
		t.Errorf("selected %q", res.Asset.FileName)
	}
}

func TestResolve_NoDownloadsFound(t *testing.T) {
	loader := &fakeLoader{pages: map[string]string{
		githubAPI: githubReleaseJSON(`{"name": "source.tar.gz", "browser_download_url": "https://example.com/source.tar.gz"}`),
	}}

	factory := NewFactory(loader, AssetSelectorFunc(selectNone))
	c, _ := factory.GetCrawler(githubPage, false)

	_, err := c.Resolve(context.Background())
	if !errors.Is(err, ErrNoDownloadsFound) {
		t.Errorf("err = %v, want ErrNoDownloadsFound", err)
	}
}

func TestResolve_NoAssetSelected(t *testing.T) {
	loader := &fakeLoader{pages: map[string]string{
		githubAPI: githubReleaseJSON(
			`{"name": "mod-a.zip", "browser_download_url": "https://example.com/a.zip"},
			 {"name": "mod-b.zip", "browser_download_url": "https://example.com/b.zip"}`),
	}}

	factory := NewFactory(loader, AssetSelectorFunc(selectNone))
	c, _ := factory.GetCrawler(githubPage, false)

	_, err := c.Resolve(context.Background())
	if !errors.Is(err, ErrNoAssetSelected) {
		t.Errorf("err = %v, want ErrNoAssetSelected", err)
	}
}

// Two eligible assets, no explicit version field: the selector picks
// mod-1.2.zip and the version falls back to the file name token.
func TestResolve_VersionFromSelectedFileName(t *testing.T) {
	loader := &fakeLoader{pages: map[string]string{
		githubAPI: `{
			"tag_name": "",
			"published_at": "2023-05-15T00:00:00Z",
			"author": {"login": "testcreator"},
			"assets": [
				{"name": "mod-1.2.zip", "browser_download_url": "https://example.com/mod-1.2.zip"},
				{"name": "mod.dll", "browser_download_url": "https://example.com/mod.dll"}
			]
		}`,
	}}

	factory := NewFactory(loader, selectByName("mod-1.2.zip"))
	c, _ := factory.GetCrawler(githubPage, false)

	res, err := c.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Mod.Version == nil || res.Mod.Version.Raw != "1.2" {
		t.Errorf("Version = %v, want 1.2 (from file name)", res.Mod.Version)
	}
}

func TestResolve_AbsentVersionIsNotAnError(t *testing.T) {
	loader := &fakeLoader{pages: map[string]string{
		githubAPI: `{
			"tag_name": "",
			"published_at": "2023-05-15T00:00:00Z",
			"author": {"login": "testcreator"},
			"assets": [{"name": "mod.dll", "browser_download_url": "https://example.com/mod.dll"}]
		}`,
	}}

	factory := NewFactory(loader, AssetSelectorFunc(selectNone))
	c, _ := factory.GetCrawler(githubPage, false)

	res, err := c.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Mod.Version != nil {
		t.Errorf("Version = %v, want nil (absent)", res.Mod.Version)
	}
}

func TestResolve_Spacedock(t *testing.T) {
	page := "https://spacedock.info/mod/100/Test Mod"
	loader := &fakeLoader{pages: map[string]string{
		"https://spacedock.info/api/mod/100": `{
			"name": "Test Mod",
			"author": "someone",
			"background": "https://spacedock.info/bg.png",
			"versions": [{
				"friendly_version": "1.5",
				"game_version": "0.25",
				"download_path": "/mod/100/download/1.5",
				"created": "2023-05-15T00:00:00Z"
			}]
		}`,
	}}

	factory := NewFactory(loader, AssetSelectorFunc(selectNone))
	c, err := factory.GetCrawler(page, false)
	if err != nil {
		t.Fatalf("GetCrawler failed: %v", err)
	}

	res, err := c.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Mod.Name != "Test Mod" || res.Mod.Creator != "someone" {
		t.Errorf("mod = %q by %q", res.Mod.Name, res.Mod.Creator)
	}
	if res.Mod.GameVersion != "0.25" {
		t.Errorf("GameVersion = %q", res.Mod.GameVersion)
	}
	if res.Mod.Version == nil || res.Mod.Version.Raw != "1.5" {
		t.Errorf("Version = %v", res.Mod.Version)
	}
	if res.Asset.DownloadLink != "https://spacedock.info/mod/100/download/1.5" {
		t.Errorf("DownloadLink = %q", res.Asset.DownloadLink)
	}
}

// The Spacedock file name is built from the mod's free-text name, so
// path separators and other hostile characters must not survive into
// the artifact file name.
func TestResolve_SpacedockSanitizesFileName(t *testing.T) {
	page := "https://spacedock.info/mod/200/Weird"
	loader := &fakeLoader{pages: map[string]string{
		"https://spacedock.info/api/mod/200": `{
			"name": "Parts/Pack: B9",
			"author": "someone",
			"versions": [{
				"friendly_version": "1.0",
				"game_version": "0.25",
				"download_path": "/mod/200/download/1.0",
				"created": "2023-05-15T00:00:00Z"
			}]
		}`,
	}}

	factory := NewFactory(loader, AssetSelectorFunc(selectNone))
	c, _ := factory.GetCrawler(page, false)

	res, err := c.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if strings.ContainsAny(res.Mod.NewestFileName, `/\:`) {
		t.Errorf("NewestFileName = %q contains unsafe characters", res.Mod.NewestFileName)
	}
	if res.Mod.NewestFileName != "Parts_Pack_B9-1.0.zip" {
		t.Errorf("NewestFileName = %q", res.Mod.NewestFileName)
	}
}

func TestResolve_GenericFallback(t *testing.T) {
	page := "https://example.com/mods/test"
	loader := &fakeLoader{pages: map[string]string{
		page: `<html><head><title>Test Mod Page</title></head>
			<body><a href="/files/TestMod-0.9.zip">Download</a></body></html>`,
	}}

	factory := NewFactory(loader, AssetSelectorFunc(selectNone))
	c, err := factory.GetCrawler(page, true)
	if err != nil {
		t.Fatalf("GetCrawler failed: %v", err)
	}

	res, err := c.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Mod.Name != "Test Mod Page" {
		t.Errorf("Name = %q", res.Mod.Name)
	}
	if res.Asset.DownloadLink != "https://example.com/files/TestMod-0.9.zip" {
		t.Errorf("DownloadLink = %q", res.Asset.DownloadLink)
	}
	if res.Mod.Version == nil || res.Mod.Version.Raw != "0.9" {
		t.Errorf("Version = %v", res.Mod.Version)
	}
}
