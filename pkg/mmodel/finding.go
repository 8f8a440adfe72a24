package mmodel

// Severity is the closed set of Finding severities, ordered worst-first
// for the Analyzer Engine's sort.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// weight returns the severity's sort rank, highest first. The health
// score penalty (100 - (10*critical + 3*high + 1*medium + 0*low)) is
// Penalty's, not weight's.
func (s Severity) weight() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Penalty returns the health-score penalty this severity contributes.
func (s Severity) Penalty() int {
	switch s {
	case SeverityCritical:
		return 10
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// Location pinpoints a Finding within the source tree.
type Location struct {
	Path string `json:"path"`
	Line int    `json:"line,omitempty"`
}

// Finding is the immutable output unit of the Analyzer Engine and the
// Preview Validator.
type Finding struct {
	Agent       string   `json:"agent"`
	Severity    Severity `json:"severity"`
	Location    Location `json:"location"`
	RuleID      string   `json:"rule_id"`
	Message     string   `json:"message"`
	Remediation string   `json:"remediation,omitempty"`
	Evidence    string   `json:"evidence,omitempty"`
}

// Less orders findings by (severity desc, path, line), the Analyzer
// Engine's merge sort key.
func Less(a, b Finding) bool {
	if a.Severity.weight() != b.Severity.weight() {
		return a.Severity.weight() > b.Severity.weight()
	}

	if a.Location.Path != b.Location.Path {
		return a.Location.Path < b.Location.Path
	}

	return a.Location.Line < b.Location.Line
}

// Health is the per-module severity-weighted aggregate score.
type Health struct {
	ModuleID string `json:"module_id"`
	Score    int    `json:"score"`
	Critical int    `json:"critical"`
	High     int    `json:"high"`
	Medium   int    `json:"medium"`
	Low      int    `json:"low"`
}

// ComputeHealth aggregates a slice of Findings for one module into a
// Health score, floored at 0.
func ComputeHealth(moduleID string, findings []Finding) Health {
	h := Health{ModuleID: moduleID}

	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			h.Critical++
		case SeverityHigh:
			h.High++
		case SeverityMedium:
			h.Medium++
		case SeverityLow:
			h.Low++
		}
	}

	score := 100 - (10*h.Critical + 3*h.High + 1*h.Medium)
	if score < 0 {
		score = 0
	}

	h.Score = score

	return h
}
