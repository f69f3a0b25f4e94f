// Package manager contains the update orchestrator: the logic that
// reconciles freshly crawled mod pages against the persisted registry
// and drives the workflow engine to install, update, toggle or delete
// mods.
//
// # Reconciliation
//
// AddOrUpdateMod resolves a page through the crawler factory and
// compares the result's id and version against the registry. New mods
// get an install workflow (download, move into the artifact cache,
// extract, register); known mods get an update workflow only when the
// remote version is newer or cannot be determined. The registry entry
// is rewritten by the workflow's final task, so state only changes
// after every earlier step succeeded.
//
// # Batch operations
//
// CheckForUpdates and UpdateAllMods process mods independently with a
// bounded fan-out; per-mod failures are collected into a single
// ModUpdateFailedError instead of aborting the batch.
//
// # Enable state
//
// ToggleEnabled extracts or removes a mod's files in the game data
// directory. A mod that provides a module required by another enabled
// mod cannot be disabled; DeleteMod additionally refuses built-in
// mods and otherwise disables first, then removes cached artifacts
// and the registry entry.
package manager
