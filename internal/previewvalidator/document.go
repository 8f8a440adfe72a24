// Package previewvalidator implements the Preview Validator of spec.md
// §4.H: the five-agent subset of the Analyzer Engine (Module Federation,
// Module Isolation, Architect, Test Coverage, Documentation) run against
// declared design artefacts — module descriptor JSON and markdown design
// notes with a YAML front-matter block — instead of realized source.
package previewvalidator

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dataexplorer/core/internal/apperr"
)

// FrontMatter is the declared-intent block a design document carries:
// routes and cross-module imports the author plans to add, parsed ahead
// of any code existing to realize them.
type FrontMatter struct {
	ModuleID       string   `yaml:"module_id"`
	PlannedRoutes  []string `yaml:"planned_routes"`
	PlannedImports []string `yaml:"planned_imports"`
	Documented     []string `yaml:"documented_operations"`
}

// Document is one parsed design note: its front matter plus the file
// path it came from, for Finding locations.
type Document struct {
	Path        string
	FrontMatter FrontMatter
	Body        string
}

const frontMatterDelim = "---"

// ParseDesignDoc reads a markdown file at path and extracts its leading
// YAML front-matter block. A document with no front matter block is
// returned with a zero-value FrontMatter rather than an error — not
// every design note declares planned routes.
func ParseDesignDoc(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, "failed to read design doc "+path, err)
	}

	content := string(raw)

	doc := &Document{Path: path, Body: content}

	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontMatterDelim {
		return doc, nil
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontMatterDelim {
			end = i
			break
		}
	}

	if end < 0 {
		return doc, nil
	}

	block := strings.Join(lines[1:end], "\n")

	var fm FrontMatter
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, "failed to parse front matter in "+path, err)
	}

	doc.FrontMatter = fm
	doc.Body = strings.Join(lines[end+1:], "\n")

	return doc, nil
}
