package crawler

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// hostVariants maps URL host suffixes to their parser variant. The set
// is closed: adding a host means adding a parser here.
var hostVariants = map[string]func() hostParser{
	"github.com":     func() hostParser { return githubParser{} },
	"spacedock.info": func() hostParser { return spacedockParser{} },
	"curse.com":      func() hostParser { return curseParser{} },
	"curseforge.com": func() hostParser { return curseParser{} },
}

// Factory dispatches page URLs to the correct crawler variant by host.
//
// Dispatch is a pure lookup: no network activity occurs until the
// returned crawler's Resolve is invoked.
type Factory struct {
	loader   PageLoader
	selector AssetSelector
}

// NewFactory creates a crawler factory. All crawlers it produces share
// the given page loader and asset selector.
func NewFactory(loader PageLoader, selector AssetSelector) *Factory {
	return &Factory{loader: loader, selector: selector}
}

// GetCrawler returns the crawler variant for the URL's host. If no
// variant matches and allowFallback is true, a generic best-effort
// crawler is returned; otherwise the call fails with
// ErrUnsupportedHost.
func (f *Factory) GetCrawler(pageURL string, allowFallback bool) (*Crawler, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid mod page URL %q: %w", pageURL, err)
	}

	host := strings.ToLower(u.Hostname())
	for suffix, variant := range hostVariants {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return f.newCrawler(pageURL, suffix, variant()), nil
		}
	}

	if allowFallback {
		return f.newCrawler(pageURL, host, genericParser{}), nil
	}
	return nil, fmt.Errorf("%s: %w", host, ErrUnsupportedHost)
}

func (f *Factory) newCrawler(pageURL, host string, parser hostParser) *Crawler {
	return &Crawler{
		PageURL:  pageURL,
		host:     host,
		loader:   f.loader,
		parser:   parser,
		selector: f.selector,
	}
}

// AcceptedHosts lists the hosts with a dedicated crawler variant, for
// display in prompts and error messages.
func AcceptedHosts() []string {
	hosts := make([]string, 0, len(hostVariants))
	for host := range hostVariants {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}
