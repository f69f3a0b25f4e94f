package model

import (
	"path"
	"strings"
)

// Module is one top-level unit inside a downloaded archive. Directory
// modules are installed as folders into the game data directory;
// root-level library binaries are installed as single files and double
// as shared-dependency markers.
type Module struct {
	// Name is the top-level entry name, e.g. "MechJeb2" or
	// "ModuleManager.dll".
	Name string

	// Files are the archive-relative paths belonging to this module.
	Files []string
}

// IsLibrary reports whether the module is a root-level library binary.
func (m Module) IsLibrary() bool {
	return strings.EqualFold(path.Ext(m.Name), ".dll")
}

// ModStructure is the enumerated top-level contents of a downloaded
// archive. It decides what gets copied into the game data directory on
// enable and what gets removed on disable.
type ModStructure struct {
	ArchivePath string
	Modules     []Module
}

// ModuleNames returns the names of all top-level modules.
func (s *ModStructure) ModuleNames() []string {
	names := make([]string, len(s.Modules))
	for i, m := range s.Modules {
		names[i] = m.Name
	}
	return names
}

// DependencyModules returns the names of bundled root-level library
// binaries. A mod whose archive bundles such a binary depends on the
// mod that provides it.
func (s *ModStructure) DependencyModules() []string {
	var deps []string
	for _, m := range s.Modules {
		if m.IsLibrary() {
			deps = append(deps, m.Name)
		}
	}
	return deps
}
