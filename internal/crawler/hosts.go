package crawler

import (
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	ioutils "github.com/modkeeper/modkeeper/internal/io"
	"github.com/modkeeper/modkeeper/internal/model"
)

// -- GitHub ----------------------------------------------------------

// githubParser resolves mods hosted as GitHub releases. The page URL
// https://github.com/<owner>/<repo> is mapped to the latest-release
// API endpoint, which returns JSON.
type githubParser struct{}

type githubRelease struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	PublishedAt time.Time `json:"published_at"`
	Author      struct {
		Login string `json:"login"`
	} `json:"author"`
	Assets []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

func (githubParser) fetchURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return pageURL
	}
	return fmt.Sprintf("https://api.github.com/repos/%s/%s/releases/latest", parts[0], parts[1])
}

func (githubParser) parse(doc *Document) (*pageInfo, error) {
	var release githubRelease
	if err := json.Unmarshal(doc.Body, &release); err != nil {
		return nil, fmt.Errorf("decoding github release: %w", err)
	}

	// The repo name is a better mod name than the release title. The
	// fetched URL is the API endpoint repos/<owner>/<repo>/releases/...,
	// so the repo is the third path segment.
	name := release.Name
	if u, err := url.Parse(doc.URL); err == nil {
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) >= 3 && parts[0] == "repos" {
			name = parts[2]
		}
	}

	info := &pageInfo{
		Name:        name,
		Creator:     release.Author.Login,
		VersionText: release.TagName,
		UpdatedOn:   release.PublishedAt,
	}
	for _, a := range release.Assets {
		info.Assets = append(info.Assets, assetOf(a.Name, a.BrowserDownloadURL))
	}
	return info, nil
}

// -- Spacedock -------------------------------------------------------

// spacedockParser resolves mods hosted on Spacedock. The page URL
// https://spacedock.info/mod/<id>/<name> is mapped to the JSON API.
type spacedockParser struct{}

type spacedockMod struct {
	Name       string `json:"name"`
	Author     string `json:"author"`
	Background string `json:"background"`
	Versions   []struct {
		FriendlyVersion string `json:"friendly_version"`
		GameVersion     string `json:"game_version"`
		DownloadPath    string `json:"download_path"`
		Created         string `json:"created"`
	} `json:"versions"`
}

func (spacedockParser) fetchURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "mod" {
		return pageURL
	}
	return fmt.Sprintf("https://spacedock.info/api/mod/%s", parts[1])
}

func (spacedockParser) parse(doc *Document) (*pageInfo, error) {
	var mod spacedockMod
	if err := json.Unmarshal(doc.Body, &mod); err != nil {
		return nil, fmt.Errorf("decoding spacedock mod: %w", err)
	}
	if len(mod.Versions) == 0 {
		return nil, fmt.Errorf("spacedock mod %q lists no versions", mod.Name)
	}

	newest := mod.Versions[0]
	info := &pageInfo{
		Name:        mod.Name,
		Creator:     mod.Author,
		GameVersion: newest.GameVersion,
		VersionText: newest.FriendlyVersion,
		ImageURL:    mod.Background,
	}
	if t, err := time.Parse(time.RFC3339, newest.Created); err == nil {
		info.UpdatedOn = t
	}

	// Spacedock's download path carries no file name; build one from the
	// mod name, which is free text and may contain path separators.
	downloadURL := "https://spacedock.info" + newest.DownloadPath
	fileName := ioutils.SanitizeFileName(fmt.Sprintf("%s-%s.zip", strings.ReplaceAll(mod.Name, " ", ""), newest.FriendlyVersion))
	info.Assets = append(info.Assets, assetOf(fileName, downloadURL))
	return info, nil
}

// -- Curse -----------------------------------------------------------

// curseParser resolves mods hosted on Curse by scanning the HTML page.
// Curse has no stable JSON API for mod pages, so the relevant fields
// are pulled out of known markup patterns.
type curseParser struct{}

var (
	curseTitleRe    = regexp.MustCompile(`<meta property="og:title" content="([^"]+)"`)
	curseImageRe    = regexp.MustCompile(`<meta property="og:image" content="([^"]+)"`)
	curseAuthorRe   = regexp.MustCompile(`<a href="/members/[^"]*"[^>]*>([^<]+)</a>`)
	curseUpdatedRe  = regexp.MustCompile(`data-epoch="(\d+)"`)
	curseGameVerRe  = regexp.MustCompile(`Supports:\s*([\d.]+)`)
	curseDownloadRe = regexp.MustCompile(`<a[^>]+href="([^"]+)"[^>]*class="[^"]*download[^"]*"`)
)

func (curseParser) fetchURL(pageURL string) string {
	return pageURL
}

func (curseParser) parse(doc *Document) (*pageInfo, error) {
	page := string(doc.Body)

	title := firstMatch(curseTitleRe, page)
	if title == "" {
		return nil, fmt.Errorf("could not find mod title on curse page")
	}

	info := &pageInfo{
		Name:        html.UnescapeString(title),
		Creator:     html.UnescapeString(firstMatch(curseAuthorRe, page)),
		GameVersion: firstMatch(curseGameVerRe, page),
		ImageURL:    firstMatch(curseImageRe, page),
	}

	if epoch := firstMatch(curseUpdatedRe, page); epoch != "" {
		var seconds int64
		if _, err := fmt.Sscanf(epoch, "%d", &seconds); err == nil {
			info.UpdatedOn = time.Unix(seconds, 0)
		}
	}

	for _, m := range curseDownloadRe.FindAllStringSubmatch(page, -1) {
		link := m[1]
		if !strings.HasPrefix(link, "http") {
			link = "https://www.curse.com" + link
		}
		info.Assets = append(info.Assets, assetOf(path.Base(link), link))
	}
	return info, nil
}

// -- Generic fallback ------------------------------------------------

// genericParser is the best-effort fallback for hosts without a
// dedicated variant: the page title becomes the mod name and every
// link to a file with a permitted extension becomes a candidate asset.
type genericParser struct{}

var (
	genericTitleRe = regexp.MustCompile(`<title>([^<]+)</title>`)
	genericLinkRe  = regexp.MustCompile(`href="([^"]+\.(?:zip|dll))"`)
)

func (genericParser) fetchURL(pageURL string) string {
	return pageURL
}

func (genericParser) parse(doc *Document) (*pageInfo, error) {
	page := string(doc.Body)

	info := &pageInfo{
		Name: strings.TrimSpace(html.UnescapeString(firstMatch(genericTitleRe, page))),
	}
	if info.Name == "" {
		info.Name = doc.URL
	}

	base, _ := url.Parse(doc.URL)
	seen := map[string]bool{}
	for _, m := range genericLinkRe.FindAllStringSubmatch(page, -1) {
		link := html.UnescapeString(m[1])
		if base != nil {
			if ref, err := url.Parse(link); err == nil {
				link = base.ResolveReference(ref).String()
			}
		}
		if seen[link] {
			continue
		}
		seen[link] = true
		info.Assets = append(info.Assets, assetOf(path.Base(link), link))
	}
	return info, nil
}

// -- Helpers ---------------------------------------------------------

func firstMatch(re *regexp.Regexp, page string) string {
	if m := re.FindStringSubmatch(page); m != nil {
		return m[1]
	}
	return ""
}

func assetOf(fileName, downloadLink string) model.Asset {
	return model.Asset{FileName: fileName, DownloadLink: downloadLink}
}
