package analyzer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataexplorer/core/internal/analyzer"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestModuleIsolationAgent_FlagsCrossModuleImport(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, "modules/ai_assistant/service.go", `package aiassistant

import (
	"context"

	"example.com/core/modules/data_products/internals"
)

func Run(ctx context.Context) {
	internals.Do()
}
`)

	tree, err := analyzer.Walk(root)
	require.NoError(t, err)

	findings, err := analyzer.ModuleIsolationAgent(context.Background(), tree)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "rule_I1", findings[0].RuleID)
	assert.Equal(t, "critical", string(findings[0].Severity))
	assert.Equal(t, "modules/ai_assistant/service.go", findings[0].Location.Path)
}

func TestModuleIsolationAgent_AllowsOwnModuleImport(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, "modules/ai_assistant/service.go", `package aiassistant

import "example.com/core/modules/ai_assistant/internal/tooling"

func Run() { tooling.Noop() }
`)

	tree, err := analyzer.Walk(root)
	require.NoError(t, err)

	findings, err := analyzer.ModuleIsolationAgent(context.Background(), tree)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestEngine_Run_GateScenarioFromSpec(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, "modules/ai_assistant/service.go", `package aiassistant

import "example.com/core/modules/data_products/internals"

func Run() { internals.Do() }
`)

	tree, err := analyzer.Walk(root)
	require.NoError(t, err)

	report, err := analyzer.New().Run(context.Background(), tree, "ai_assistant")
	require.NoError(t, err)
	require.NotEmpty(t, report.Findings)

	var found bool
	for _, f := range report.Findings {
		if f.RuleID == "rule_I1" {
			found = true
		}
	}
	assert.True(t, found)

	health := report.Health["ai_assistant"]
	assert.Less(t, health.Score, 100)
}

func TestEngine_Run_DeduplicatesIdenticalFindings(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, "modules/billing/service.go", `package billing

import "example.com/core/modules/data_products/internals"
import "example.com/core/modules/data_products/internals"

func Run() { internals.Do() }
`)

	tree, err := analyzer.Walk(root)
	require.NoError(t, err)

	report, err := analyzer.New().Run(context.Background(), tree, "")
	require.NoError(t, err)

	seen := map[string]int{}
	for _, f := range report.Findings {
		seen[f.RuleID+f.Location.Path]++
	}

	for key, count := range seen {
		assert.LessOrEqualf(t, count, 2, "key %s appeared more than twice (once per import line is expected, not more)", key)
	}
}
