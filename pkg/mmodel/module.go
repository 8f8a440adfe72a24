// Package mmodel holds the data-model types of the core runtime, named
// and tagged the way the reference platform's own mmodel package shapes
// its domain structs: PascalCase Go fields, snake_case JSON tags,
// validator/v10 tags on input structs.
package mmodel

import "regexp"

// Category is the closed set of module categories allowed by the
// descriptor schema (spec.md §6).
type Category string

const (
	CategoryCore           Category = "core"
	CategoryInfrastructure Category = "infrastructure"
	CategoryFeature        Category = "feature"
	CategoryHybrid         Category = "hybrid"
	CategoryDevTools       Category = "dev-tools"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryCore, CategoryInfrastructure, CategoryFeature, CategoryHybrid, CategoryDevTools:
		return true
	default:
		return false
	}
}

// IDPattern is the required shape of a module id: lowercase-snake,
// [a-z][a-z0-9_]{2,63}.
var IDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{2,63}$`)

// RouteDescriptor is a single navigable route a module contributes to
// the frontend registry.
type RouteDescriptor struct {
	Path        string `json:"path" validate:"required"`
	DisplayName string `json:"display_name" validate:"required,max=128"`
	Icon        string `json:"icon,omitempty"`
	Order       int    `json:"order,omitempty"`
}

// Backend is the descriptor's optional reference to a DI capability
// blueprint providing its data backend.
type Backend struct {
	Blueprint string `json:"blueprint,omitempty"`
}

// ModuleDescriptor is the immutable, once-per-process record loaded from
// a module descriptor JSON file (spec.md §3, §6).
type ModuleDescriptor struct {
	ID       string   `json:"id" validate:"required"`
	Name     string   `json:"name" validate:"required,max=128"`
	Version  string   `json:"version" validate:"required"`
	Category Category `json:"category" validate:"required"`

	Enabled    bool `json:"enabled"`
	EagerInit  bool `json:"eager_init"`

	Backend Backend `json:"backend,omitempty"`

	Routes []RouteDescriptor `json:"routes,omitempty"`

	Requires []string `json:"requires,omitempty"`
	Optional []string `json:"optional,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`

	// SourcePath is the file the descriptor was loaded from; not part of
	// the JSON schema, populated by the loader for diagnostics.
	SourcePath string `json:"-"`
}

// FrontendDescriptor is the read-only, internal-path-free subset of a
// ModuleDescriptor that the HTTP facade serves to the frontend (spec.md
// §4.B "Navigation manifest").
type FrontendDescriptor struct {
	ID                   string            `json:"id"`
	Name                 string            `json:"name"`
	Category             Category          `json:"category"`
	Routes               []RouteDescriptor `json:"routes"`
	EagerInit            bool              `json:"eager_init"`
	RequiredCapabilities []string          `json:"required_capabilities"`
	OptionalCapabilities []string          `json:"optional_capabilities"`
}

// ToFrontend projects a ModuleDescriptor down to its frontend-safe
// subset (L2: descriptor -> snapshot -> descriptor subset, modulo
// private fields).
func (m *ModuleDescriptor) ToFrontend() FrontendDescriptor {
	return FrontendDescriptor{
		ID:                   m.ID,
		Name:                 m.Name,
		Category:             m.Category,
		Routes:               m.Routes,
		EagerInit:            m.EagerInit,
		RequiredCapabilities: m.Requires,
		OptionalCapabilities: m.Optional,
	}
}
