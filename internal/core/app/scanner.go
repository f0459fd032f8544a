package app

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScanInputs lists the source files under roots, sorted and deduplicated.
// A root naming a file is returned as-is when it is a supported source.
func (a *App) ScanInputs(roots []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range uniqueRoots(roots) {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if a.Parser.IsSupportedPath(root) && !a.isGenerated(root) {
				add(root)
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && a.excludeDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if a.Accepts(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

// Accepts reports whether path is a source file the pipeline should lower.
func (a *App) Accepts(path string) bool {
	if !a.Parser.IsSupportedPath(path) || a.isGenerated(path) {
		return false
	}
	cur := a.current.Load()
	base := filepath.Base(path)
	for _, g := range cur.excludeFiles {
		if g.Match(base) {
			return false
		}
	}
	if len(cur.include) == 0 {
		return true
	}
	rel := filepath.ToSlash(a.relative(path))
	for _, g := range cur.include {
		if g.Match(rel) || g.Match(base) {
			return true
		}
	}
	return false
}

func (a *App) excludeDir(path string) bool {
	if a.isGenerated(path) {
		return true
	}
	base := filepath.Base(path)
	for _, g := range a.current.Load().excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// isGenerated reports whether path is something this tool writes: the
// output directory or a suffixed output file.
func (a *App) isGenerated(path string) bool {
	if out := a.Paths.OutputDir; out != "" {
		if path == out || strings.HasPrefix(path, out+string(filepath.Separator)) {
			return true
		}
	}
	if suffix := a.Config().Output.Suffix; suffix != "" {
		ext := filepath.Ext(path)
		if ext != "" && strings.HasSuffix(strings.TrimSuffix(path, ext), suffix) {
			return true
		}
	}
	return false
}

func (a *App) relative(path string) string {
	rel, err := filepath.Rel(a.Paths.ProjectRoot, path)
	if err != nil {
		return path
	}
	return rel
}

func uniqueRoots(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	roots := make([]string, 0, len(paths))
	for _, p := range paths {
		normalized := filepath.Clean(p)
		if abs, err := filepath.Abs(normalized); err == nil {
			normalized = abs
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		roots = append(roots, normalized)
	}
	sort.Strings(roots)
	return roots
}
