// Package model defines the data structures used by secscan,
// including security reports, findings, dependency risks, and recommendations.
package model

import (
	"time"
)

// ScanStatus represents the lifecycle state of a security report
type ScanStatus string

const (
	// StatusPending means the report exists but scanning has not started.
	StatusPending ScanStatus = "PENDING"
	// StatusScanning means the analysis pipeline is running.
	StatusScanning ScanStatus = "SCANNING"
	// StatusCompleted means the scan finished and all results are persisted.
	StatusCompleted ScanStatus = "COMPLETED"
	// StatusFailed means the scan aborted; the Error field holds the cause.
	StatusFailed ScanStatus = "FAILED"
)

// CanTransition reports whether the lifecycle allows moving to next.
// A report never skips SCANNING and never leaves a terminal state.
func (s ScanStatus) CanTransition(next ScanStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusScanning
	case StatusScanning:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// SecurityReport is the aggregate root for one scan of a repository checkout
type SecurityReport struct {
	Key                  string     `json:"_key,omitempty"`
	RepoID               string     `json:"repo_id"`
	ProjectID            string     `json:"project_id,omitempty"`
	CommitSha            string     `json:"commit_sha,omitempty"` // Git commit the checkout was at when scanned
	Status               ScanStatus `json:"status"`
	RiskScore            int        `json:"risk_score"` // Aggregate score 0-100
	TotalVulnerabilities int        `json:"total_vulnerabilities"`
	CriticalCount        int        `json:"critical_count"`
	HighCount            int        `json:"high_count"`
	MediumCount          int        `json:"medium_count"`
	LowCount             int        `json:"low_count"` // LOW and INFO merged
	FilesScanned         int        `json:"files_scanned"`
	Truncated            bool       `json:"truncated,omitempty"` // File budget hit before the tree was exhausted
	Error                string     `json:"error,omitempty"`
	ScanDate             time.Time  `json:"scan_date"`
	ScanDuration         int64      `json:"scan_duration_ms"`
	ObjType              string     `json:"objtype,omitempty"`
}

// NewSecurityReport is the constructor that sets the appropriate default values
func NewSecurityReport() *SecurityReport {
	return &SecurityReport{
		ObjType:  "SecurityReport",
		Status:   StatusPending,
		ScanDate: time.Now(),
	}
}
