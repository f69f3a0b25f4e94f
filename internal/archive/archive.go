package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	ioutils "github.com/modkeeper/modkeeper/internal/io"
	"github.com/modkeeper/modkeeper/internal/model"
)

// InspectStructure enumerates the top-level contents of a mod archive.
//
// Each top-level entry (a directory like "MechJeb2/" or a root file
// like "ModuleManager.dll") becomes one module. The structure decides
// what Extract copies into the game data directory and what gets
// removed when the mod is disabled.
func InspectStructure(archivePath string) (*model.ModStructure, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", archivePath, err)
	}
	defer reader.Close()

	files := map[string][]string{}
	for _, f := range reader.File {
		name := path.Clean(f.Name)
		if name == "." || strings.HasPrefix(name, "..") {
			continue
		}
		if f.FileInfo().IsDir() {
			// Record the module even if the directory is empty.
			top := topLevel(name)
			if _, ok := files[top]; !ok {
				files[top] = nil
			}
			continue
		}
		top := topLevel(name)
		files[top] = append(files[top], name)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("archive %s contains no installable modules", archivePath)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	structure := &model.ModStructure{ArchivePath: archivePath}
	for _, name := range names {
		sort.Strings(files[name])
		structure.Modules = append(structure.Modules, model.Module{
			Name:  name,
			Files: files[name],
		})
	}
	return structure, nil
}

func topLevel(name string) string {
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return name[:i]
	}
	return name
}

// Extract copies the structure's modules into destDir, preserving each
// module's internal relative layout. It returns the destDir-relative
// paths of every file written, which the registry records as the mod's
// installed file list.
func Extract(structure *model.ModStructure, destDir string) ([]string, error) {
	reader, err := zip.OpenReader(structure.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", structure.ArchivePath, err)
	}
	defer reader.Close()

	wanted := map[string]bool{}
	for _, module := range structure.Modules {
		for _, f := range module.Files {
			wanted[f] = true
		}
	}

	var installed []string
	for _, f := range reader.File {
		name := path.Clean(f.Name)
		if !wanted[name] {
			continue
		}

		dest := filepath.Join(destDir, filepath.FromSlash(name))
		if !strings.HasPrefix(dest, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return installed, fmt.Errorf("archive entry %q escapes destination", f.Name)
		}

		if err := writeEntry(f, dest); err != nil {
			return installed, fmt.Errorf("extracting %s: %w", name, err)
		}
		installed = append(installed, name)
	}

	sort.Strings(installed)
	return installed, nil
}

func writeEntry(f *zip.File, dest string) error {
	if err := ioutils.EnsureDir(filepath.Dir(dest)); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}

// RemoveInstalled deletes the given destDir-relative files and prunes
// any directories left empty. Missing files are ignored so a partial
// earlier removal can be retried.
func RemoveInstalled(destDir string, installed []string) error {
	dirs := map[string]bool{}
	for _, rel := range installed {
		full := filepath.Join(destDir, filepath.FromSlash(rel))
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return err
		}
		for dir := filepath.Dir(full); strings.HasPrefix(dir, filepath.Clean(destDir)+string(os.PathSeparator)); dir = filepath.Dir(dir) {
			dirs[dir] = true
		}
	}

	// Deepest directories first so nested empty dirs collapse.
	ordered := make([]string, 0, len(dirs))
	for dir := range dirs {
		ordered = append(ordered, dir)
	}
	sort.Slice(ordered, func(i, j int) bool { return len(ordered[i]) > len(ordered[j]) })
	for _, dir := range ordered {
		// Remove fails on non-empty directories, which is what we want.
		os.Remove(dir)
	}
	return nil
}
