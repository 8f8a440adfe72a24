package graphcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/dataexplorer/core/internal/apperr"
	"github.com/dataexplorer/core/internal/repository"
	"github.com/dataexplorer/core/pkg/mmodel"
)

// AssociationSpec is one declared relationship between two tables, the
// irreducible join triple of spec.md §4.D (left_field, op,
// right_entity.right_field) plus the edge metadata the graph needs to
// classify it.
type AssociationSpec struct {
	Name        string             `json:"name" yaml:"name"`
	Type        mmodel.EdgeType    `json:"type" yaml:"type"`
	Cardinality mmodel.Cardinality `json:"cardinality" yaml:"cardinality"`
	LeftTable   string             `json:"left_table" yaml:"left_table"`
	LeftField   string             `json:"left_field" yaml:"left_field"`
	RightTable  string             `json:"right_table" yaml:"right_table"`
	RightField  string             `json:"right_field" yaml:"right_field"`
}

// SchemaDocument is the declarative schema source spec.md §4.D refers to:
// the set of tables to graph plus the associations between them that
// table introspection alone cannot recover (foreign keys, compositions,
// plain associations, and their cardinality).
type SchemaDocument struct {
	Schema       string            `json:"schema" yaml:"schema"`
	Tables       []string          `json:"tables" yaml:"tables"`
	Associations []AssociationSpec `json:"associations" yaml:"associations"`
}

// SchemaSource builds a schema graph by introspecting repo for table and
// column metadata, then layering doc's declared associations on top —
// table nodes and element (column) nodes come from the live backend,
// relationship edges come from the declarative document, matching
// spec.md's description of "declarative schema documents" plus
// introspected column annotations.
type SchemaSource struct {
	repo repository.Repository
	doc  SchemaDocument
}

// NewSchemaSource builds a Source for the schema graph keyed by doc.Schema.
func NewSchemaSource(repo repository.Repository, doc SchemaDocument) *SchemaSource {
	return &SchemaSource{repo: repo, doc: doc}
}

// Fingerprint hashes the declarative document together with every
// introspected column list, so a fingerprint change detects both a
// doc edit and a live schema drift.
func (s *SchemaSource) Fingerprint(ctx context.Context) (string, error) {
	h := sha256.New()

	docBytes, err := json.Marshal(s.doc)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to serialize schema document", err)
	}

	h.Write(docBytes)

	for _, table := range s.doc.Tables {
		cols, err := s.repo.DescribeTable(ctx, s.doc.Schema, table)
		if err != nil {
			return "", err
		}

		colBytes, err := json.Marshal(cols)
		if err != nil {
			return "", apperr.Wrap(apperr.KindInternal, "failed to serialize column descriptors", err)
		}

		h.Write(colBytes)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func tableNodeID(schema, table string) string { return fmt.Sprintf("%s.%s", schema, table) }

func elementNodeID(schema, table, column string) string {
	return fmt.Sprintf("%s.%s.%s", schema, table, column)
}

// Build assembles the schema graph: one table node and one contains edge
// per introspected column, plus one edge per declared association.
func (s *SchemaSource) Build(ctx context.Context) (*mmodel.Graph, error) {
	graph := &mmodel.Graph{ID: "schema:" + s.doc.Schema, Kind: mmodel.GraphKindSchema}

	for _, table := range s.doc.Tables {
		tableID := tableNodeID(s.doc.Schema, table)

		graph.Nodes = append(graph.Nodes, mmodel.Node{
			ID:    tableID,
			Label: table,
			Type:  mmodel.NodeTypeTable,
		})

		cols, err := s.repo.DescribeTable(ctx, s.doc.Schema, table)
		if err != nil {
			return nil, err
		}

		for _, col := range cols {
			elementID := elementNodeID(s.doc.Schema, table, col.Name)

			graph.Nodes = append(graph.Nodes, mmodel.Node{
				ID:    elementID,
				Label: col.Name,
				Type:  mmodel.NodeTypeElement,
				Properties: map[string]any{
					"data_type":     col.Type,
					"nullable":      col.Nullable,
					"semantic_tag":  col.SemanticTag,
					"display_label": col.DisplayLabel,
				},
			})

			graph.Edges = append(graph.Edges, mmodel.Edge{
				Source: tableID,
				Target: elementID,
				Type:   mmodel.EdgeTypeContains,
			})
		}
	}

	for _, assoc := range s.doc.Associations {
		edge := mmodel.Edge{
			Source:      tableNodeID(s.doc.Schema, assoc.LeftTable),
			Target:      tableNodeID(s.doc.Schema, assoc.RightTable),
			Type:        assoc.Type,
			Label:       assoc.Name,
			Cardinality: assoc.Cardinality,
			Join: []mmodel.JoinClause{{
				LeftField:   assoc.LeftField,
				Op:          "=",
				RightEntity: assoc.RightTable,
				RightField:  assoc.RightField,
			}},
		}

		if assoc.Type == mmodel.EdgeTypeComposition {
			edge.Properties = map[string]any{"cascade_delete": true}
		}

		graph.Edges = append(graph.Edges, edge)
	}

	fingerprint, err := s.Fingerprint(ctx)
	if err != nil {
		return nil, err
	}

	graph.SourceFingerprint = fingerprint

	return graph, nil
}
