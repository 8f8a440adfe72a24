// Package registry implements the Module Federation Runtime's Module
// Registry (spec.md §4.B): it scans a module root for descriptor files,
// validates each against the schema of §6, indexes by id, and exposes a
// read-only frontend navigation manifest.
package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/dataexplorer/core/internal/apperr"
	"github.com/dataexplorer/core/internal/container"
	"github.com/dataexplorer/core/internal/mlog"
	"github.com/dataexplorer/core/pkg/mmodel"
)

var validate = validator.New()

// Registry indexes every module descriptor loaded from a module root.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]*mmodel.ModuleDescriptor
	cacheKey    string
	logger      mlog.Logger
}

// New creates an empty Registry.
func New(logger mlog.Logger) *Registry {
	return &Registry{
		descriptors: make(map[string]*mmodel.ModuleDescriptor),
		logger:      logger,
	}
}

// Load scans root for *.json descriptor files, parses and validates
// each, and indexes every module, enabled or not (disabled ones are
// filtered out only by the enabled-module views). Duplicate ids fail the whole
// process, as does any descriptor that fails schema validation
// (ErrConfig) — matching spec.md §4.B: "Duplicate ids fail the whole
// process."
func (r *Registry) Load(root string) error {
	entries, err := filepath.Glob(filepath.Join(root, "*.json"))
	if err != nil {
		return apperr.Wrap(apperr.KindConfig, "failed to scan module root "+root, err)
	}

	sort.Strings(entries)

	descriptors := make(map[string]*mmodel.ModuleDescriptor, len(entries))
	hashInput := strings.Builder{}

	for _, path := range entries {
		info, statErr := os.Stat(path)
		if statErr != nil {
			return apperr.Wrap(apperr.KindConfig, "failed to stat descriptor "+path, statErr)
		}

		fmt.Fprintf(&hashInput, "%s|%d|%d;", path, info.ModTime().UnixNano(), info.Size())

		desc, parseErr := parseDescriptor(path)
		if parseErr != nil {
			return parseErr
		}

		if err := validateDescriptor(desc); err != nil {
			return err
		}

		if _, dup := descriptors[desc.ID]; dup {
			return apperr.New(apperr.KindConfig, fmt.Sprintf("duplicate module id %q (second definition at %s)", desc.ID, path))
		}

		descriptors[desc.ID] = desc
	}

	sum := sha256.Sum256([]byte(hashInput.String()))

	r.mu.Lock()
	r.descriptors = descriptors
	r.cacheKey = hex.EncodeToString(sum[:])
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Infof("module registry loaded %d descriptors (cache key %s)", len(descriptors), r.cacheKey[:12])
	}

	return nil
}

func parseDescriptor(path string) (*mmodel.ModuleDescriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, "failed to read descriptor "+path, err)
	}

	desc := &mmodel.ModuleDescriptor{Enabled: true}
	if err := json.Unmarshal(raw, desc); err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, "malformed descriptor JSON in "+path, err)
	}

	desc.SourcePath = path

	return desc, nil
}

// validateDescriptor enforces the schema of spec.md §6: required fields,
// id pattern, category enum, and route-path-prefix-matches-id.
func validateDescriptor(desc *mmodel.ModuleDescriptor) error {
	if err := validate.Struct(desc); err != nil {
		return apperr.Wrap(apperr.KindConfig, "descriptor "+desc.SourcePath+" failed schema validation", err)
	}

	if !mmodel.IDPattern.MatchString(desc.ID) {
		return apperr.New(apperr.KindConfig, fmt.Sprintf("descriptor %s: id %q is not lowercase-snake", desc.SourcePath, desc.ID))
	}

	if !desc.Category.Valid() {
		return apperr.New(apperr.KindConfig, fmt.Sprintf("descriptor %s: invalid category %q", desc.SourcePath, desc.Category))
	}

	hyphenated := strings.ReplaceAll(desc.ID, "_", "-")

	for _, route := range desc.Routes {
		if !strings.HasPrefix(route.Path, "/") {
			return apperr.New(apperr.KindConfig, fmt.Sprintf("descriptor %s: route path %q must begin with /", desc.SourcePath, route.Path))
		}

		if !strings.HasPrefix(strings.TrimPrefix(route.Path, "/"), hyphenated) {
			return apperr.New(apperr.KindConfig, fmt.Sprintf("descriptor %s: route path %q must begin with /%s", desc.SourcePath, route.Path, hyphenated))
		}
	}

	return nil
}

// ResolveCapabilities asks c for every required capability of every
// enabled module, aborting with a precise error citing module id and
// capability name on the first miss (spec.md §4.B). Optional capabilities
// that fail to resolve are tolerated; callers receive the set of
// optional capabilities that fell back to a no-op.
func (r *Registry) ResolveCapabilities(c *container.Container) (noops map[string][]string, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	noops = make(map[string][]string)

	ids := r.sortedIDsLocked()

	for _, id := range ids {
		desc := r.descriptors[id]
		if !desc.Enabled {
			continue
		}

		for _, capName := range desc.Requires {
			if _, resolveErr := c.Resolve(capName); resolveErr != nil {
				return nil, apperr.Wrap(apperr.KindUnbound, fmt.Sprintf("module %q requires capability %q which failed to resolve", desc.ID, capName), resolveErr)
			}
		}

		for _, capName := range desc.Optional {
			if _, resolveErr := c.Resolve(capName); resolveErr != nil {
				noops[desc.ID] = append(noops[desc.ID], capName)
			}
		}
	}

	return noops, nil
}

func (r *Registry) sortedIDsLocked() []string {
	ids := make([]string, 0, len(r.descriptors))
	for id := range r.descriptors {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// Get returns the descriptor for id, or ErrNotFound.
func (r *Registry) Get(id string) (*mmodel.ModuleDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.descriptors[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "no module registered with id "+id)
	}

	return desc, nil
}

// Snapshot returns the frontend-safe manifest for every enabled module,
// sorted by id for determinism.
func (r *Registry) Snapshot() []mmodel.FrontendDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.sortedIDsLocked()

	out := make([]mmodel.FrontendDescriptor, 0, len(ids))

	for _, id := range ids {
		desc := r.descriptors[id]
		if desc.Enabled {
			out = append(out, desc.ToFrontend())
		}
	}

	return out
}

// CacheKey returns the current file-mtime-tuple cache key.
func (r *Registry) CacheKey() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.cacheKey
}

// EagerModules returns the ids of every enabled module with
// eager_init=true, in stable order, for startup construction.
func (r *Registry) EagerModules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.sortedIDsLocked()

	out := make([]string, 0)

	for _, id := range ids {
		desc := r.descriptors[id]
		if desc.Enabled && desc.EagerInit {
			out = append(out, id)
		}
	}

	return out
}

// Count returns the number of loaded (enabled or not) descriptors.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.descriptors)
}

// EnabledCount returns the number of enabled descriptors.
func (r *Registry) EnabledCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0

	for _, d := range r.descriptors {
		if d.Enabled {
			n++
		}
	}

	return n
}
