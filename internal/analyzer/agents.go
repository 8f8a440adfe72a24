package analyzer

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/dataexplorer/core/pkg/mmodel"
)

// Agent is a pure function of a SourceTree: spec.md §4.G requires every
// analyzer to be independent of the others and free of side effects on
// the tree itself.
type Agent func(ctx context.Context, tree *SourceTree) ([]mmodel.Finding, error)

// Catalogue is the nine agents run by Engine.Run, in the order spec.md
// §4.G lists them.
var Catalogue = []struct {
	Name  string
	Agent Agent
}{
	{"architect", ArchitectAgent},
	{"security", SecurityAgent},
	{"performance", PerformanceAgent},
	{"test_coverage", TestCoverageAgent},
	{"module_federation", ModuleFederationAgent},
	{"module_isolation", ModuleIsolationAgent},
	{"documentation", DocumentationAgent},
	{"file_organization", FileOrganizationAgent},
	{"ux_architecture", UXArchitectureAgent},
}

var envAccessPattern = regexp.MustCompile(`\bos\.(Getenv|LookupEnv)\(`)

// ArchitectAgent flags rule_A1: a module reading environment or global
// state directly to acquire a repository, instead of resolving it
// through the DI container.
func ArchitectAgent(_ context.Context, tree *SourceTree) ([]mmodel.Finding, error) {
	var findings []mmodel.Finding

	for _, f := range tree.GoFiles() {
		moduleID, ok := ModuleOf(f.Path)
		if !ok {
			continue
		}

		lines, err := Read(f)
		if err != nil {
			continue
		}

		for i, line := range lines {
			if envAccessPattern.MatchString(line) {
				findings = append(findings, mmodel.Finding{
					Agent:       "architect",
					Severity:    mmodel.SeverityHigh,
					Location:    mmodel.Location{Path: f.Path, Line: i + 1},
					RuleID:      "rule_A1",
					Message:     "module " + moduleID + " reads process environment directly instead of resolving a capability through the DI container",
					Remediation: "inject the dependency via container.Resolver instead of os.Getenv/os.LookupEnv",
				})
			}
		}
	}

	return findings, nil
}

var (
	sqlConcatPattern  = regexp.MustCompile(`ExecuteQuery\([^)]*\+[^)]*\)`)
	sqlSprintfPattern = regexp.MustCompile(`fmt\.Sprintf\([^)]*\)`)
	secretPattern     = regexp.MustCompile(`(?i)(password|secret|api[_-]?key|token)\s*[:=]\s*"[^"$][^"]{3,}"`)
	executeQueryCall  = regexp.MustCompile(`\.ExecuteQuery\(`)
	limitFieldPattern = regexp.MustCompile(`Limit\s*:`)
)

// SecurityAgent flags rule_S1 (interpolated SQL reaching execute_query),
// rule_S2 (hard-coded secrets), and rule_S3 (unchecked user input
// reaching execute_query via string formatting).
func SecurityAgent(_ context.Context, tree *SourceTree) ([]mmodel.Finding, error) {
	var findings []mmodel.Finding

	for _, f := range tree.GoFiles() {
		lines, err := Read(f)
		if err != nil {
			continue
		}

		for i, line := range lines {
			if sqlConcatPattern.MatchString(line) {
				findings = append(findings, mmodel.Finding{
					Agent:       "security",
					Severity:    mmodel.SeverityCritical,
					Location:    mmodel.Location{Path: f.Path, Line: i + 1},
					RuleID:      "rule_S1",
					Message:     "string concatenation builds a query passed to ExecuteQuery",
					Remediation: "parameterize the query instead of concatenating caller-supplied strings",
				})
			}

			if executeQueryCall.MatchString(line) && i > 0 && sqlSprintfPattern.MatchString(lines[i-1]) {
				findings = append(findings, mmodel.Finding{
					Agent:       "security",
					Severity:    mmodel.SeverityCritical,
					Location:    mmodel.Location{Path: f.Path, Line: i + 1},
					RuleID:      "rule_S3",
					Message:     "fmt.Sprintf-formatted value flows into ExecuteQuery on the following line",
					Remediation: "bind parameters through the query's placeholder mechanism instead of formatting into the SQL text",
				})
			}

			if secretPattern.MatchString(line) {
				findings = append(findings, mmodel.Finding{
					Agent:       "security",
					Severity:    mmodel.SeverityCritical,
					Location:    mmodel.Location{Path: f.Path, Line: i + 1},
					RuleID:      "rule_S2",
					Message:     "hard-coded credential-shaped literal",
					Remediation: "load the value from configuration/secret storage instead of a literal",
				})
			}
		}
	}

	return findings, nil
}

var loopRangePattern = regexp.MustCompile(`for\s+\w*,?\s*\w*\s*:?=\s*range\s+\w+`)

// PerformanceAgent flags rule_P1 (a query call nested inside a loop over
// a prior query's rows) and rule_P3 (ExecuteQuery without a Limit field,
// i.e. an unbounded result set). Missing Graph Cache Engine usage is not
// checked; no rule_P2 finding is produced.
func PerformanceAgent(_ context.Context, tree *SourceTree) ([]mmodel.Finding, error) {
	var findings []mmodel.Finding

	for _, f := range tree.GoFiles() {
		lines, err := Read(f)
		if err != nil {
			continue
		}

		inLoop := -1

		for i, line := range lines {
			if loopRangePattern.MatchString(line) {
				inLoop = i
				continue
			}

			if inLoop >= 0 && i-inLoop < 20 && executeQueryCall.MatchString(line) {
				findings = append(findings, mmodel.Finding{
					Agent:       "performance",
					Severity:    mmodel.SeverityHigh,
					Location:    mmodel.Location{Path: f.Path, Line: i + 1},
					RuleID:      "rule_P1",
					Message:     "query executed inside a loop over a prior query's rows (N+1 shape)",
					Remediation: "batch the lookup into a single query, or cache the per-iteration result",
				})
			}

			if strings.Contains(line, "ExecuteQuery(") && !hasLimitWithin(lines, i, 5) {
				findings = append(findings, mmodel.Finding{
					Agent:       "performance",
					Severity:    mmodel.SeverityMedium,
					Location:    mmodel.Location{Path: f.Path, Line: i + 1},
					RuleID:      "rule_P3",
					Message:     "ExecuteQuery call has no visible Limit, risking an unbounded result set",
					Remediation: "set QuerySpec.Limit explicitly",
				})
			}
		}
	}

	return findings, nil
}

func hasLimitWithin(lines []string, i, window int) bool {
	start := i - window
	if start < 0 {
		start = 0
	}

	end := i + window
	if end > len(lines) {
		end = len(lines)
	}

	for _, l := range lines[start:end] {
		if limitFieldPattern.MatchString(l) {
			return true
		}
	}

	return false
}

var httptestImport = regexp.MustCompile(`"net/http/httptest"`)

// TestCoverageAgent flags rule_T1 (a module missing an httptest-based
// contract test exercising its declared routes) and rule_T2 (the
// frontend registry missing its own contract test).
func TestCoverageAgent(_ context.Context, tree *SourceTree) ([]mmodel.Finding, error) {
	var findings []mmodel.Finding

	moduleHasHTTPTest := map[string]bool{}
	moduleFiles := map[string]bool{}

	for _, f := range tree.GoFiles() {
		if moduleID, ok := ModuleOf(f.Path); ok {
			moduleFiles[moduleID] = true
		}
	}

	for _, f := range tree.GoTestFiles() {
		moduleID, ok := ModuleOf(f.Path)
		if !ok {
			continue
		}

		moduleFiles[moduleID] = true

		lines, err := Read(f)
		if err != nil {
			continue
		}

		for _, line := range lines {
			if httptestImport.MatchString(line) {
				moduleHasHTTPTest[moduleID] = true
				break
			}
		}
	}

	for moduleID := range moduleFiles {
		if !moduleHasHTTPTest[moduleID] {
			findings = append(findings, mmodel.Finding{
				Agent:       "test_coverage",
				Severity:    mmodel.SeverityMedium,
				Location:    mmodel.Location{Path: "modules/" + moduleID},
				RuleID:      "rule_T1",
				Message:     "module " + moduleID + " has no net/http/httptest contract test exercising its declared routes",
				Remediation: "add a contract test that calls the module's routes over HTTP, not via internal package imports",
			})
		}
	}

	hasRegistryTest := false

	for _, f := range tree.GoTestFiles() {
		if strings.Contains(f.Path, "registry") {
			hasRegistryTest = true
			break
		}
	}

	if !hasRegistryTest {
		findings = append(findings, mmodel.Finding{
			Agent:    "test_coverage",
			Severity: mmodel.SeverityLow,
			Location: mmodel.Location{Path: "internal/registry"},
			RuleID:   "rule_T2",
			Message:  "no frontend-registry contract test found",
		})
	}

	return findings, nil
}

var moduleIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{2,63}$`)

// ModuleFederationAgent flags rule_M1: module descriptors that fail the
// schema of spec.md §6 — missing required fields, id collisions, or a
// route prefix not matching the module id.
func ModuleFederationAgent(_ context.Context, tree *SourceTree) ([]mmodel.Finding, error) {
	var findings []mmodel.Finding

	seen := map[string]string{}

	for _, f := range tree.Files {
		if !strings.HasSuffix(f.Path, ".json") || !strings.Contains(f.Path, "modules") {
			continue
		}

		raw, err := Read(f)
		if err != nil {
			continue
		}

		var desc struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Version  string `json:"version"`
			Category string `json:"category"`
			Routes   []struct {
				Path string `json:"path"`
			} `json:"routes"`
		}

		if err := json.Unmarshal([]byte(strings.Join(raw, "\n")), &desc); err != nil {
			continue
		}

		if desc.ID == "" || desc.Name == "" || desc.Version == "" || desc.Category == "" {
			findings = append(findings, mmodel.Finding{
				Agent:    "module_federation",
				Severity: mmodel.SeverityHigh,
				Location: mmodel.Location{Path: f.Path},
				RuleID:   "rule_M1",
				Message:  "module descriptor is missing one of id/name/version/category",
			})

			continue
		}

		if !moduleIDPattern.MatchString(desc.ID) {
			findings = append(findings, mmodel.Finding{
				Agent:    "module_federation",
				Severity: mmodel.SeverityHigh,
				Location: mmodel.Location{Path: f.Path},
				RuleID:   "rule_M1",
				Message:  "module id " + strconv.Quote(desc.ID) + " does not match [a-z][a-z0-9_]{2,63}",
			})
		}

		if other, dup := seen[desc.ID]; dup {
			findings = append(findings, mmodel.Finding{
				Agent:    "module_federation",
				Severity: mmodel.SeverityCritical,
				Location: mmodel.Location{Path: f.Path},
				RuleID:   "rule_M1",
				Message:  "duplicate module id " + desc.ID + ", also declared at " + other,
			})
		}

		seen[desc.ID] = f.Path

		hyphenatedID := strings.ReplaceAll(desc.ID, "_", "-")

		for _, route := range desc.Routes {
			if !strings.HasPrefix(strings.TrimPrefix(route.Path, "/"), hyphenatedID) {
				findings = append(findings, mmodel.Finding{
					Agent:    "module_federation",
					Severity: mmodel.SeverityMedium,
					Location: mmodel.Location{Path: f.Path},
					RuleID:   "rule_M1",
					Message:  "route path " + route.Path + " does not start with the module's own (hyphenated) id",
				})
			}
		}
	}

	return findings, nil
}

var moduleImportPattern = regexp.MustCompile(`"[^"]*modules/([a-z0-9_]+)/[^"]*"`)

// ModuleIsolationAgent flags rule_I1, the load-bearing rule: any module
// source file importing from another module's own tree. The only legal
// cross-module reference is through a capability resolved from the DI
// container.
func ModuleIsolationAgent(_ context.Context, tree *SourceTree) ([]mmodel.Finding, error) {
	var findings []mmodel.Finding

	for _, f := range tree.GoFiles() {
		ownerModule, ok := ModuleOf(f.Path)
		if !ok {
			continue
		}

		lines, err := Read(f)
		if err != nil {
			continue
		}

		for i, line := range lines {
			matches := moduleImportPattern.FindAllStringSubmatch(line, -1)
			for _, m := range matches {
				importedModule := m[1]
				if importedModule != ownerModule {
					findings = append(findings, mmodel.Finding{
						Agent:       "module_isolation",
						Severity:    mmodel.SeverityCritical,
						Location:    mmodel.Location{Path: f.Path, Line: i + 1},
						RuleID:      "rule_I1",
						Message:     "module " + ownerModule + " imports from modules/" + importedModule + ", bypassing the DI container",
						Remediation: "resolve a capability for the needed behavior instead of importing the other module's package directly",
						Evidence:    strings.TrimSpace(line),
					})
				}
			}
		}
	}

	return findings, nil
}

var exportedFuncPattern = regexp.MustCompile(`^func\s+(\([^)]*\)\s*)?([A-Z]\w*)\(`)

// DocumentationAgent flags rule_D1: exported functions under internal/
// or modules/ with no preceding doc comment.
func DocumentationAgent(_ context.Context, tree *SourceTree) ([]mmodel.Finding, error) {
	var findings []mmodel.Finding

	for _, f := range tree.GoFiles() {
		if !strings.HasPrefix(f.Path, "internal/") && !strings.HasPrefix(f.Path, "modules/") {
			continue
		}

		lines, err := Read(f)
		if err != nil {
			continue
		}

		for i, line := range lines {
			m := exportedFuncPattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}

			name := m[2]

			documented := i > 0 && strings.HasPrefix(strings.TrimSpace(lines[i-1]), "//")

			if !documented {
				findings = append(findings, mmodel.Finding{
					Agent:    "documentation",
					Severity: mmodel.SeverityLow,
					Location: mmodel.Location{Path: f.Path, Line: i + 1},
					RuleID:   "rule_D1",
					Message:  "exported function " + name + " has no doc comment",
				})
			}
		}
	}

	return findings, nil
}

// FileOrganizationAgent flags rule_F2 (every *.cache file, reported as an
// orphan cache artefact; whether Go source references it is not checked)
// and rule_F3 (test files collected under a bare root-level tests/
// directory instead of living alongside their package). Empty directories
// are not checked; no rule_F1 finding is produced.
func FileOrganizationAgent(_ context.Context, tree *SourceTree) ([]mmodel.Finding, error) {
	var findings []mmodel.Finding

	for _, f := range tree.Files {
		if strings.HasPrefix(f.Path, "tests/") && strings.HasSuffix(f.Path, "_test.go") {
			findings = append(findings, mmodel.Finding{
				Agent:    "file_organization",
				Severity: mmodel.SeverityMedium,
				Location: mmodel.Location{Path: f.Path},
				RuleID:   "rule_F3",
				Message:  "test file lives under a bare root tests/ directory instead of beside its package",
			})
		}

		if strings.HasSuffix(f.Path, ".cache") {
			findings = append(findings, mmodel.Finding{
				Agent:    "file_organization",
				Severity: mmodel.SeverityLow,
				Location: mmodel.Location{Path: f.Path},
				RuleID:   "rule_F2",
				Message:  "orphan cache artefact committed to the tree",
			})
		}
	}

	return findings, nil
}

var importantPattern = regexp.MustCompile(`!important`)

const importantThreshold = 5

// UXArchitectureAgent flags rule_U1: a CSS file whose count of
// !important declarations (the proxy for style-weight override abuse)
// exceeds importantThreshold.
func UXArchitectureAgent(_ context.Context, tree *SourceTree) ([]mmodel.Finding, error) {
	var findings []mmodel.Finding

	for _, f := range tree.Files {
		if !strings.HasSuffix(f.Path, ".css") {
			continue
		}

		lines, err := Read(f)
		if err != nil {
			continue
		}

		count := 0
		for _, line := range lines {
			count += len(importantPattern.FindAllString(line, -1))
		}

		if count > importantThreshold {
			findings = append(findings, mmodel.Finding{
				Agent:    "ux_architecture",
				Severity: mmodel.SeverityMedium,
				Location: mmodel.Location{Path: f.Path},
				RuleID:   "rule_U1",
				Message:  strconv.Itoa(count) + " !important declarations exceed the threshold of " + strconv.Itoa(importantThreshold),
			})
		}
	}

	return findings, nil
}
