package mmodel

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLess_OrdersBySeverityThenPathThenLine(t *testing.T) {
	findings := []Finding{
		{Severity: SeverityLow, Location: Location{Path: "b.go", Line: 1}},
		{Severity: SeverityCritical, Location: Location{Path: "z.go", Line: 5}},
		{Severity: SeverityCritical, Location: Location{Path: "a.go", Line: 9}},
		{Severity: SeverityHigh, Location: Location{Path: "a.go", Line: 1}},
	}

	sort.Slice(findings, func(i, j int) bool { return Less(findings[i], findings[j]) })

	assert.Equal(t, SeverityCritical, findings[0].Severity)
	assert.Equal(t, "a.go", findings[0].Location.Path)
	assert.Equal(t, SeverityCritical, findings[1].Severity)
	assert.Equal(t, "z.go", findings[1].Location.Path)
	assert.Equal(t, SeverityHigh, findings[2].Severity)
	assert.Equal(t, SeverityLow, findings[3].Severity)
}

func TestComputeHealth_FloorsAtZero(t *testing.T) {
	findings := make([]Finding, 20)
	for i := range findings {
		findings[i] = Finding{Severity: SeverityCritical}
	}

	h := ComputeHealth("mod", findings)

	assert.Equal(t, 0, h.Score)
	assert.Equal(t, 20, h.Critical)
}

func TestComputeHealth_WeightedScore(t *testing.T) {
	findings := []Finding{
		{Severity: SeverityHigh},
		{Severity: SeverityMedium},
		{Severity: SeverityLow},
		{Severity: SeverityLow},
	}

	h := ComputeHealth("mod", findings)

	// 100 - (3*1 + 1*1 + 0*2) = 96
	assert.Equal(t, 96, h.Score)
}
