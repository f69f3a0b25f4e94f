// Package model contains the core data types shared across the
// application.
//
// The central types are:
//
//   - Mod: one managed add-on package plus its install state
//   - Asset: one downloadable file candidate found on a mod page
//   - Version: a comparable version parsed from free text
//   - ModStructure: the top-level modules inside a downloaded archive
//
// Mod ids are derived from page URLs via IDFromURL and are stable: the
// same URL always yields the same id, and the id contains no path
// separators so it can be embedded in file names.
//
// Versions are deliberately lenient: ParseVersion returns nil for text
// with no version token instead of an error, and CompareVersions
// reports OrderingUnknown when either side is nil so callers can offer
// a refresh instead of silently skipping an update.
package model
