// Package registry persists the collection of known mods.
//
// Records are stored as a JSON array and loaded lazily; a missing file
// is an empty registry and a corrupt individual record is skipped, not
// fatal. Every mutation persists synchronously (temp file plus rename)
// and then notifies observers with the nature of the change and the
// affected id.
package registry
