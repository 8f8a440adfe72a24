// Package analyzer implements the Analyzer Engine ("Feng Shui") of
// spec.md §4.G: nine agents running concurrently over a read-only
// source-tree snapshot, merged into one sorted, de-duplicated Finding
// list. Grounded on the teacher's fork-join usage of
// golang.org/x/sync/errgroup (components/transaction's worker pools) and
// generalized to a fixed nine-way fan-out with a bounded merge channel.
package analyzer

import (
	"os"
	"path/filepath"
	"strings"
)

var skipDirs = map[string]bool{
	".git":         true,
	"vendor":       true,
	"node_modules": true,
	"_examples":    true,
}

// File is one source file captured in a SourceTree snapshot.
type File struct {
	// Path is relative to the tree root, using forward slashes.
	Path string
	Abs  string
}

// SourceTree is the read-only snapshot every agent walks independently.
// Built once per analyzer invocation so every agent observes the same
// state even if the working tree changes mid-run.
type SourceTree struct {
	Root  string
	Files []File
}

// Walk builds a SourceTree rooted at root, skipping VCS, vendor, and
// example directories.
func Walk(root string) (*SourceTree, error) {
	tree := &SourceTree{Root: root}

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}

			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		tree.Files = append(tree.Files, File{
			Path: filepath.ToSlash(rel),
			Abs:  path,
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return tree, nil
}

// GoFiles returns every non-test .go file in the tree.
func (t *SourceTree) GoFiles() []File {
	return t.filterSuffix(".go", false)
}

// GoTestFiles returns every _test.go file in the tree.
func (t *SourceTree) GoTestFiles() []File {
	return t.filterSuffix("_test.go", true)
}

func (t *SourceTree) filterSuffix(suffix string, exact bool) []File {
	var out []File

	for _, f := range t.Files {
		isTest := strings.HasSuffix(f.Path, "_test.go")

		switch {
		case exact && isTest:
			out = append(out, f)
		case !exact && strings.HasSuffix(f.Path, suffix) && !isTest:
			out = append(out, f)
		}
	}

	return out
}

// ModuleOf returns the module id owning path, if path falls under
// modules/<id>/..., and whether it does.
func ModuleOf(path string) (string, bool) {
	const prefix = "modules/"

	if !strings.HasPrefix(path, prefix) {
		return "", false
	}

	rest := strings.TrimPrefix(path, prefix)

	idx := strings.Index(rest, "/")
	if idx < 0 {
		return "", false
	}

	return rest[:idx], true
}

// Read returns f's contents, split into lines.
func Read(f File) ([]string, error) {
	raw, err := os.ReadFile(f.Abs)
	if err != nil {
		return nil, err
	}

	return strings.Split(string(raw), "\n"), nil
}
