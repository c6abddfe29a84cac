// Package model - API types for combining models in API requests/responses
package model

// ScanRequest is the body of a scan trigger call
type ScanRequest struct {
	RepoID    string `json:"repo_id"`
	ProjectID string `json:"project_id,omitempty"`
	Path      string `json:"path"`
	CommitSha string `json:"commit_sha,omitempty"`
}

// ReportWithDetail combines a SecurityReport with its child records for API communication
type ReportWithDetail struct {
	SecurityReport
	Vulnerabilities []Vulnerability  `json:"vulnerabilities"`
	DependencyRisks []DependencyRisk `json:"dependency_risks"`
	Recommendations []Recommendation `json:"recommendations"`
}

// PackageExposure represents one known vulnerability aggregated across the
// latest reports of all repositories
type PackageExposure struct {
	CveID         string   `json:"cve_id"`
	PackageName   string   `json:"package_name"`
	Severity      Severity `json:"severity"`
	Title         string   `json:"title"`
	FixedVersion  string   `json:"fixed_version,omitempty"`
	AffectedRepos []string `json:"affected_repos"`
	ReportCount   int      `json:"report_count"`
}
