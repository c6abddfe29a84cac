package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    ScanStatus
		to      ScanStatus
		allowed bool
	}{
		{"pending to scanning", StatusPending, StatusScanning, true},
		{"pending skips to completed", StatusPending, StatusCompleted, false},
		{"pending skips to failed", StatusPending, StatusFailed, false},
		{"scanning to completed", StatusScanning, StatusCompleted, true},
		{"scanning to failed", StatusScanning, StatusFailed, true},
		{"scanning back to pending", StatusScanning, StatusPending, false},
		{"completed is terminal", StatusCompleted, StatusScanning, false},
		{"failed is terminal", StatusFailed, StatusScanning, false},
		{"completed to failed", StatusCompleted, StatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestNewSecurityReport_Defaults(t *testing.T) {
	r := NewSecurityReport()

	assert.Equal(t, StatusPending, r.Status, "new reports start pending")
	assert.Equal(t, "SecurityReport", r.ObjType)
	assert.False(t, r.ScanDate.IsZero(), "scan date should be stamped")
	assert.Zero(t, r.RiskScore)
}

func TestSeverity_Rank(t *testing.T) {
	// CRITICAL sorts first; each step down ranks strictly higher.
	order := []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
	for i := 1; i < len(order); i++ {
		assert.Less(t, order[i-1].Rank(), order[i].Rank(),
			"%s should rank before %s", order[i-1], order[i])
	}
	assert.Equal(t, 0, SeverityCritical.Rank())
}
