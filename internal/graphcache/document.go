package graphcache

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dataexplorer/core/internal/apperr"
)

// LoadSchemaDocument reads and parses the declarative schema document at
// path. Operators hand-author this file to declare the associations
// table introspection cannot recover; spec.md §4.D.
func LoadSchemaDocument(path string) (SchemaDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SchemaDocument{}, apperr.Wrap(apperr.KindConfig, "failed to read schema document "+path, err)
	}

	var doc SchemaDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return SchemaDocument{}, apperr.Wrap(apperr.KindConfig, "failed to parse schema document "+path, err)
	}

	return doc, nil
}
