// Package model - Vulnerability defines a single security finding on a report
package model

// Severity is the finding severity scale
type Severity string

const (
	// SeverityCritical is reserved for findings that are directly exploitable, such as leaked credentials.
	SeverityCritical Severity = "CRITICAL"
	// SeverityHigh covers injection-class findings and known-vulnerable dependencies.
	SeverityHigh Severity = "HIGH"
	// SeverityMedium covers weakened defenses such as broken cryptography.
	SeverityMedium Severity = "MEDIUM"
	// SeverityLow covers hygiene issues with no direct exploit path.
	SeverityLow Severity = "LOW"
	// SeverityInfo is informational only and carries no score weight.
	SeverityInfo Severity = "INFO"
)

// Rank orders severities for sorting, most severe first (CRITICAL == 0)
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	case SeverityInfo:
		return 4
	default:
		return 5
	}
}

// VulnType classifies how a finding was detected
type VulnType string

const (
	// VulnTypeDependency is a declared dependency matching a known advisory.
	VulnTypeDependency VulnType = "DEPENDENCY"
	// VulnTypeSecrets is a hardcoded credential or key literal.
	VulnTypeSecrets VulnType = "SECRETS_EXPOSURE"
	// VulnTypeSQLInjection is SQL built from string concatenation or interpolation.
	VulnTypeSQLInjection VulnType = "SQL_INJECTION"
	// VulnTypeXSS is a raw HTML sink or dynamic code evaluation.
	VulnTypeXSS VulnType = "XSS"
	// VulnTypeCryptography is a weak hash, cipher, or random source.
	VulnTypeCryptography VulnType = "CRYPTOGRAPHY"
	// VulnTypePathTraversal is a file operation fed from request input.
	VulnTypePathTraversal VulnType = "PATH_TRAVERSAL"
	// VulnTypeDeserialization is deserialization of untrusted input.
	VulnTypeDeserialization VulnType = "INSECURE_DESERIALIZATION"
)

// Vulnerability represents one finding attached to a SecurityReport.
// Resolved is the only field that may change after the scan completes.
type Vulnerability struct {
	Key            string   `json:"_key,omitempty"`
	ReportKey      string   `json:"report_key"`
	Type           VulnType `json:"type"`
	Severity       Severity `json:"severity"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	FilePath       string   `json:"file_path,omitempty"`    // Relative to the scanned root
	LineNumber     int      `json:"line_number,omitempty"`  // 1-based
	CodeSnippet    string   `json:"code_snippet,omitempty"` // Trimmed offending line
	CveID          string   `json:"cve_id,omitempty"`
	CvssScore      float64  `json:"cvss_score,omitempty"`
	PackageName    string   `json:"package_name,omitempty"`
	PackageVersion string   `json:"package_version,omitempty"`
	FixedVersion   string   `json:"fixed_version,omitempty"`
	OwaspCategory  string   `json:"owasp_category,omitempty"` // e.g. "A03:2021"
	CweID          string   `json:"cwe_id,omitempty"`         // e.g. "CWE-89"
	Resolved       bool     `json:"resolved"`
	ObjType        string   `json:"objtype,omitempty"`
}

// NewVulnerability creates a new Vulnerability instance with default values
func NewVulnerability() *Vulnerability {
	return &Vulnerability{
		ObjType: "Vulnerability",
	}
}
