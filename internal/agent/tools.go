package agent

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/dataexplorer/core/internal/apperr"
	"github.com/dataexplorer/core/internal/graphcache"
	"github.com/dataexplorer/core/internal/repository"
	"github.com/dataexplorer/core/pkg/mmodel"
)

// Catalogue is the minimum tool set of spec.md §4.F, advertised to the
// LLM and dispatched synchronously by the orchestrator.
var Catalogue = []ToolSpec{
	{Name: "list_data_products", Description: "List the data products available on the current backend."},
	{Name: "describe_table", Description: "Describe a table's columns: {product, table}."},
	{Name: "execute_query", Description: "Run a read-only SQL query against a product: {product, sql, params, limit}. Use {{p}} in sql for the product's physical table."},
	{Name: "graph_neighbours", Description: "List a schema graph node's neighbours: {node_id, depth}."},
	{Name: "find_fields_by_semantic_tag", Description: "Find schema-graph element nodes annotated with a semantic tag: {tag}."},
}

// toolRunner dispatches one named tool call against the Repository and
// Graph Cache Engine, returning the content to append as a role=tool
// message. It never bypasses the Repository's read-only validation —
// execute_query always goes through Repository.ExecuteQuery.
type toolRunner struct {
	repo        repository.Repository
	graphEngine *graphcache.Engine
	graphSource graphcache.Source
	graphKind   mmodel.GraphKind
	graphID     string
}

func (t *toolRunner) run(ctx context.Context, call ToolCall) (string, error) {
	switch call.Name {
	case "list_data_products":
		return t.listDataProducts(ctx)
	case "describe_table":
		return t.describeTable(ctx, call.Arguments)
	case "execute_query":
		return t.executeQuery(ctx, call.Arguments)
	case "graph_neighbours":
		return t.graphNeighbours(ctx, call.Arguments)
	case "find_fields_by_semantic_tag":
		return t.findFieldsBySemanticTag(ctx, call.Arguments)
	default:
		return "", apperr.New(apperr.KindQueryInvalid, "unknown tool "+call.Name)
	}
}

func (t *toolRunner) listDataProducts(ctx context.Context) (string, error) {
	products, err := t.repo.ListProducts(ctx)
	if err != nil {
		return "", err
	}

	return marshalToolResult(products)
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}

	return fallback
}

func (t *toolRunner) describeTable(ctx context.Context, args map[string]any) (string, error) {
	table := stringArg(args, "table")
	product := stringArg(args, "product")

	cols, err := t.repo.DescribeTable(ctx, product, table)
	if err != nil {
		return "", err
	}

	return marshalToolResult(cols)
}

func (t *toolRunner) executeQuery(ctx context.Context, args map[string]any) (string, error) {
	product := stringArg(args, "product")
	sqlTemplate := stringArg(args, "sql")
	limit := intArg(args, "limit", repository.DefaultLimits.Default)

	var params []any
	if raw, ok := args["params"].([]any); ok {
		params = raw
	}

	physical := t.repo.PhysicalTableName(product)
	sql := strings.ReplaceAll(sqlTemplate, "{{p}}", physical)

	result, err := t.repo.ExecuteQuery(ctx, sql, params, limit)
	if err != nil {
		return "", err
	}

	return marshalToolResult(result)
}

func (t *toolRunner) currentGraph(ctx context.Context) (*mmodel.Graph, error) {
	if t.graphEngine == nil || t.graphSource == nil {
		return nil, apperr.New(apperr.KindInternal, "graph cache not configured for this session")
	}

	graph, _, err := t.graphEngine.GetOrRebuild(ctx, t.graphKind, t.graphID, t.graphSource)
	return graph, err
}

func (t *toolRunner) graphNeighbours(ctx context.Context, args map[string]any) (string, error) {
	nodeID := stringArg(args, "node_id")
	depth := intArg(args, "depth", 1)

	graph, err := t.currentGraph(ctx)
	if err != nil {
		return "", err
	}

	neighbours := neighboursWithinDepth(graph, nodeID, depth)

	return marshalToolResult(neighbours)
}

// neighboursWithinDepth walks the graph's edges breadth-first from start,
// returning every distinct node reached within depth hops.
func neighboursWithinDepth(graph *mmodel.Graph, start string, depth int) []mmodel.Node {
	nodesByID := make(map[string]mmodel.Node, len(graph.Nodes))
	for _, n := range graph.Nodes {
		nodesByID[n.ID] = n
	}

	adjacency := make(map[string][]string)
	for _, e := range graph.Edges {
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
		adjacency[e.Target] = append(adjacency[e.Target], e.Source)
	}

	visited := map[string]bool{start: true}
	frontier := []string{start}

	var out []mmodel.Node

	for d := 0; d < depth && len(frontier) > 0; d++ {
		var next []string

		for _, id := range frontier {
			for _, neighbourID := range adjacency[id] {
				if visited[neighbourID] {
					continue
				}

				visited[neighbourID] = true
				next = append(next, neighbourID)

				if n, ok := nodesByID[neighbourID]; ok {
					out = append(out, n)
				}
			}
		}

		frontier = next
	}

	return out
}

func (t *toolRunner) findFieldsBySemanticTag(ctx context.Context, args map[string]any) (string, error) {
	tag := stringArg(args, "tag")

	graph, err := t.currentGraph(ctx)
	if err != nil {
		return "", err
	}

	var matches []mmodel.Node

	for _, n := range graph.Nodes {
		if n.Type != mmodel.NodeTypeElement {
			continue
		}

		if semanticTag, _ := n.Properties["semantic_tag"].(string); semanticTag == tag {
			matches = append(matches, n)
		}
	}

	return marshalToolResult(matches)
}

func marshalToolResult(v any) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to serialize tool result", err)
	}

	return string(payload), nil
}
