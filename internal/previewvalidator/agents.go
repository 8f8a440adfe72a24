package previewvalidator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dataexplorer/core/pkg/mmodel"
)

var moduleIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{2,63}$`)

// moduleFederation validates a module descriptor JSON file against
// spec.md §6's schema, mirroring the Analyzer Engine's rule_M1 but
// against the declared descriptor rather than a loaded Registry entry.
func moduleFederation(path string) ([]mmodel.Finding, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var desc struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Version  string `json:"version"`
		Category string `json:"category"`
	}

	if err := json.Unmarshal(raw, &desc); err != nil {
		return []mmodel.Finding{{
			Agent:    "module_federation",
			Severity: mmodel.SeverityHigh,
			Location: mmodel.Location{Path: path},
			RuleID:   "rule_M1",
			Message:  "descriptor is not valid JSON: " + err.Error(),
		}}, nil
	}

	var findings []mmodel.Finding

	if desc.ID == "" || desc.Name == "" || desc.Version == "" || desc.Category == "" {
		findings = append(findings, mmodel.Finding{
			Agent:    "module_federation",
			Severity: mmodel.SeverityHigh,
			Location: mmodel.Location{Path: path},
			RuleID:   "rule_M1",
			Message:  "planned descriptor is missing one of id/name/version/category",
		})
	}

	if desc.ID != "" && !moduleIDPattern.MatchString(desc.ID) {
		findings = append(findings, mmodel.Finding{
			Agent:    "module_federation",
			Severity: mmodel.SeverityHigh,
			Location: mmodel.Location{Path: path},
			RuleID:   "rule_M1",
			Message:  "planned module id " + strconv.Quote(desc.ID) + " does not match [a-z][a-z0-9_]{2,63}",
		})
	}

	return findings, nil
}

// moduleIsolation flags rule_I1 against a design doc's planned_imports:
// any planned import of another module's tree bypasses the DI container
// before a line of code exists to enforce it.
func moduleIsolation(doc *Document) []mmodel.Finding {
	var findings []mmodel.Finding

	for _, imp := range doc.FrontMatter.PlannedImports {
		moduleID, ok := importedModule(imp)
		if ok && moduleID != doc.FrontMatter.ModuleID {
			findings = append(findings, mmodel.Finding{
				Agent:       "module_isolation",
				Severity:    mmodel.SeverityCritical,
				Location:    mmodel.Location{Path: doc.Path},
				RuleID:      "rule_I1",
				Message:     "planned import of modules/" + moduleID + " bypasses the DI container",
				Remediation: "declare a required capability instead of a direct cross-module import",
				Evidence:    imp,
			})
		}
	}

	return findings
}

func importedModule(importPath string) (string, bool) {
	idx := strings.Index(importPath, "modules/")
	if idx < 0 {
		return "", false
	}

	rest := importPath[idx+len("modules/"):]

	end := strings.Index(rest, "/")
	if end < 0 {
		return rest, rest != ""
	}

	return rest[:end], true
}

var envAccessPattern = regexp.MustCompile(`\bos\.(Getenv|LookupEnv)\(`)

// architect flags rule_A1 against a design doc's prose: a plan that
// mentions reading the environment directly to acquire a repository,
// rather than resolving one from the container.
func architect(doc *Document) []mmodel.Finding {
	if envAccessPattern.MatchString(doc.Body) {
		return []mmodel.Finding{{
			Agent:       "architect",
			Severity:    mmodel.SeverityMedium,
			Location:    mmodel.Location{Path: doc.Path},
			RuleID:      "rule_A1",
			Message:     "design doc describes acquiring a repository via direct environment access instead of the DI container",
			Remediation: "plan to resolve the dependency through container.Resolver",
		}}
	}

	return nil
}

// testCoverage flags rule_T1: a doc declaring planned_routes with no
// corresponding plan to test them.
func testCoverage(doc *Document) []mmodel.Finding {
	if len(doc.FrontMatter.PlannedRoutes) == 0 {
		return nil
	}

	if strings.Contains(strings.ToLower(doc.Body), "contract test") || strings.Contains(strings.ToLower(doc.Body), "httptest") {
		return nil
	}

	return []mmodel.Finding{{
		Agent:    "test_coverage",
		Severity: mmodel.SeverityMedium,
		Location: mmodel.Location{Path: doc.Path},
		RuleID:   "rule_T1",
		Message:  "design doc plans routes but never mentions a contract test for them",
	}}
}

// documentation flags rule_D1: a doc declaring planned_routes or
// planned_imports with no documented_operations entry covering the
// module's own public surface.
func documentation(doc *Document) []mmodel.Finding {
	if (len(doc.FrontMatter.PlannedRoutes) > 0 || len(doc.FrontMatter.PlannedImports) > 0) && len(doc.FrontMatter.Documented) == 0 {
		return []mmodel.Finding{{
			Agent:    "documentation",
			Severity: mmodel.SeverityLow,
			Location: mmodel.Location{Path: doc.Path},
			RuleID:   "rule_D1",
			Message:  "design doc declares planned surface area but lists no documented_operations",
		}}
	}

	return nil
}

// Run parses every *.md design doc and *.json module descriptor under
// root and runs the five-agent subset against them. Sequential: a design
// doc set is small enough that the sub-second budget holds without a
// fork-join orchestrator.
func Run(root string) ([]mmodel.Finding, error) {
	var findings []mmodel.Finding

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		switch {
		case strings.HasSuffix(path, ".json"):
			fs, mfErr := moduleFederation(path)
			if mfErr != nil {
				return nil
			}

			findings = append(findings, fs...)

		case strings.HasSuffix(path, ".md"):
			doc, parseErr := ParseDesignDoc(path)
			if parseErr != nil {
				return parseErr
			}

			findings = append(findings, moduleIsolation(doc)...)
			findings = append(findings, architect(doc)...)
			findings = append(findings, testCoverage(doc)...)
			findings = append(findings, documentation(doc)...)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(findings, func(i, j int) bool { return mmodel.Less(findings[i], findings[j]) })

	return findings, nil
}
