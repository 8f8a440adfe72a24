package graphcache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataexplorer/core/internal/mlog"
	"github.com/dataexplorer/core/internal/repository"
	"github.com/dataexplorer/core/pkg/mmodel"
)

func newTestRepo(t *testing.T) *repository.EmbeddedRepository {
	t.Helper()

	repo, err := repository.NewEmbeddedRepository(":memory:", mlog.NoopLogger{})
	require.NoError(t, err)

	ctx := context.Background()

	_, err = repo.DB().ExecContext(ctx, "CREATE TABLE accounts (id INTEGER PRIMARY KEY, name TEXT NOT NULL)")
	require.NoError(t, err)

	_, err = repo.DB().ExecContext(ctx, "CREATE TABLE transactions (id INTEGER PRIMARY KEY, account_id INTEGER)")
	require.NoError(t, err)

	return repo
}

func testDoc() SchemaDocument {
	return SchemaDocument{
		Schema: "public",
		Tables: []string{"accounts", "transactions"},
		Associations: []AssociationSpec{{
			Name:        "account_transactions",
			Type:        mmodel.EdgeTypeForeignKey,
			Cardinality: mmodel.CardinalityMany,
			LeftTable:   "transactions",
			LeftField:   "account_id",
			RightTable:  "accounts",
			RightField:  "id",
		}},
	}
}

func TestSchemaSource_BuildProducesTableAndElementNodes(t *testing.T) {
	repo := newTestRepo(t)
	source := NewSchemaSource(repo, testDoc())

	graph, err := source.Build(context.Background())
	require.NoError(t, err)
	require.NoError(t, graph.Validate())

	var tableNodes, elementNodes int
	for _, n := range graph.Nodes {
		switch n.Type {
		case mmodel.NodeTypeTable:
			tableNodes++
		case mmodel.NodeTypeElement:
			elementNodes++
		}
	}

	assert.Equal(t, 2, tableNodes)
	assert.Equal(t, 4, elementNodes) // 2 accounts cols + 2 transactions cols
	assert.NotEmpty(t, graph.SourceFingerprint)
}

func TestSchemaSource_BuildIncludesForeignKeyEdgeWithJoinClause(t *testing.T) {
	repo := newTestRepo(t)
	source := NewSchemaSource(repo, testDoc())

	graph, err := source.Build(context.Background())
	require.NoError(t, err)

	var fkEdge *mmodel.Edge
	for i := range graph.Edges {
		if graph.Edges[i].Type == mmodel.EdgeTypeForeignKey {
			fkEdge = &graph.Edges[i]
		}
	}

	require.NotNil(t, fkEdge)
	require.Len(t, fkEdge.Join, 1)
	assert.Equal(t, "account_id", fkEdge.Join[0].LeftField)
	assert.Equal(t, "accounts", fkEdge.Join[0].RightEntity)
	assert.Equal(t, "id", fkEdge.Join[0].RightField)
	assert.Equal(t, mmodel.CardinalityMany, fkEdge.Cardinality)
	assert.Nil(t, fkEdge.Properties)
}

func TestSchemaSource_BuildMarksCompositionEdgesCascadeDelete(t *testing.T) {
	repo := newTestRepo(t)
	doc := testDoc()
	doc.Associations[0].Type = mmodel.EdgeTypeComposition

	source := NewSchemaSource(repo, doc)

	graph, err := source.Build(context.Background())
	require.NoError(t, err)

	var compositionEdge *mmodel.Edge
	for i := range graph.Edges {
		if graph.Edges[i].Type == mmodel.EdgeTypeComposition {
			compositionEdge = &graph.Edges[i]
		}
	}

	require.NotNil(t, compositionEdge)
	assert.Equal(t, true, compositionEdge.Properties["cascade_delete"])
}

func TestSchemaSource_FingerprintStableAcrossRepeatedBuilds(t *testing.T) {
	repo := newTestRepo(t)
	source := NewSchemaSource(repo, testDoc())

	ctx := context.Background()

	fp1, err := source.Fingerprint(ctx)
	require.NoError(t, err)

	fp2, err := source.Fingerprint(ctx)
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2)
}

func TestSchemaSource_FingerprintChangesWithSchemaDrift(t *testing.T) {
	repo := newTestRepo(t)
	source := NewSchemaSource(repo, testDoc())

	ctx := context.Background()

	fp1, err := source.Fingerprint(ctx)
	require.NoError(t, err)

	_, err = repo.DB().ExecContext(ctx, "ALTER TABLE accounts ADD COLUMN email TEXT")
	require.NoError(t, err)

	fp2, err := source.Fingerprint(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, fp1, fp2)
}
