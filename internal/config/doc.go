// Package config manages application settings.
//
// Settings are stored as JSON. Loading a missing file returns defaults
// so the application works on first run. The cache layout (artifact
// cache, image cache, registry file) is derived from the base cache
// path.
package config
