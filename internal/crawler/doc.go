// Package crawler turns remote mod page URLs into normalized artifact
// descriptions.
//
// # Dispatch
//
// The Factory selects a host-specific parser variant by URL host
// (GitHub releases, Spacedock, Curse), with an optional generic
// fallback that scans any page for downloadable files. Dispatch is a
// pure lookup; nothing touches the network until Resolve is called.
//
// # Resolution
//
// A Crawler's Resolve is one-shot and memoized. It fetches the page
// through the injected PageLoader, extracts name, creator, update
// date and compatible game version, resolves the version with a
// fallback chain (explicit field, then the asset file name, then
// absent), and disambiguates multiple download candidates through the
// AssetSelector capability.
//
// # Errors
//
// Failures are classified as ErrNoDownloadsFound, ErrNoAssetSelected
// or ErrUnsupportedHost; low-level fetch and parse errors are wrapped
// before crossing the package boundary. A failed Resolve caches
// nothing, so retries start clean.
package crawler
