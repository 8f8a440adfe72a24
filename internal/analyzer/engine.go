package analyzer

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dataexplorer/core/pkg/mmodel"
)

// mergeChannelCapacityPerAgent is the per-agent slice of the bounded
// merge channel spec.md §5 requires (capacity = number of agents × 64),
// bounding memory when an agent emits faster than the merger consumes.
const mergeChannelCapacityPerAgent = 64

// Report is the Analyzer Engine's output: the merged, de-duplicated,
// sorted Finding list plus a Health score per module touched by any
// Finding.
type Report struct {
	Findings []mmodel.Finding
	Health   map[string]mmodel.Health
}

// Engine runs the nine agents of the Catalogue fork-join style over one
// SourceTree.
type Engine struct {
	agents []Agent
}

// New builds an Engine running the full Catalogue.
func New() *Engine {
	agents := make([]Agent, len(Catalogue))
	for i, entry := range Catalogue {
		agents[i] = entry.Agent
	}

	return &Engine{agents: agents}
}

// Run launches every agent concurrently against tree, merges their
// findings through a bounded channel, de-duplicates identical
// (path, rule_id, line) triples, sorts by severity desc/path/line, and,
// when moduleFilter is non-empty, drops findings located in any other
// module; findings whose path lies outside every module are kept.
func (e *Engine) Run(ctx context.Context, tree *SourceTree, moduleFilter string) (*Report, error) {
	merged := make(chan mmodel.Finding, len(e.agents)*mergeChannelCapacityPerAgent)

	group, gctx := errgroup.WithContext(ctx)

	for _, agent := range e.agents {
		agent := agent

		group.Go(func() error {
			findings, err := agent(gctx, tree)
			if err != nil {
				return err
			}

			for _, f := range findings {
				select {
				case merged <- f:
				case <-gctx.Done():
					return gctx.Err()
				}
			}

			return nil
		})
	}

	go func() {
		_ = group.Wait()
		close(merged)
	}()

	seen := make(map[string]bool)

	var all []mmodel.Finding

	for f := range merged {
		if moduleFilter != "" {
			moduleID, ok := ModuleOf(f.Location.Path)
			if ok && moduleID != moduleFilter {
				continue
			}
		}

		key := dedupKey(f)
		if seen[key] {
			continue
		}

		seen[key] = true
		all = append(all, f)
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool { return mmodel.Less(all[i], all[j]) })

	return &Report{Findings: all, Health: computeHealthByModule(all)}, nil
}

func dedupKey(f mmodel.Finding) string {
	return strings.Join([]string{f.Location.Path, f.RuleID, strconv.Itoa(f.Location.Line)}, "|")
}

func computeHealthByModule(findings []mmodel.Finding) map[string]mmodel.Health {
	byModule := make(map[string][]mmodel.Finding)

	for _, f := range findings {
		moduleID, ok := ModuleOf(f.Location.Path)
		if !ok {
			moduleID = "_root"
		}

		byModule[moduleID] = append(byModule[moduleID], f)
	}

	health := make(map[string]mmodel.Health, len(byModule))
	for moduleID, fs := range byModule {
		health[moduleID] = mmodel.ComputeHealth(moduleID, fs)
	}

	return health
}
