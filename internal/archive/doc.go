// Package archive inspects and extracts downloaded mod archives.
//
// A mod archive's top-level entries are its "modules": directories are
// installed as folders into the game data directory, and root-level
// library binaries (.dll) are installed as single files. Bundled
// library binaries also mark a dependency on the mod that provides
// them, which the orchestrator checks before disabling a provider.
package archive
