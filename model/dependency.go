// Package model - dependency types shared by the manifest readers and the
// supply-chain scorer
package model

// PackageManager identifies the ecosystem a dependency was declared in
type PackageManager string

const (
	// ManagerNpm covers package.json dependencies and devDependencies.
	ManagerNpm PackageManager = "npm"
	// ManagerPip covers requirements.txt entries.
	ManagerPip PackageManager = "pip"
	// ManagerBundler covers Gemfile gem declarations.
	ManagerBundler PackageManager = "bundler"
	// ManagerComposer covers composer.json require entries.
	ManagerComposer PackageManager = "composer"
)

// PurlType maps a package manager to its package-url type component
func (m PackageManager) PurlType() string {
	switch m {
	case ManagerNpm:
		return "npm"
	case ManagerPip:
		return "pypi"
	case ManagerBundler:
		return "gem"
	case ManagerComposer:
		return "composer"
	default:
		return "generic"
	}
}

// RiskLevel is the coarse supply-chain rating of a dependency
type RiskLevel string

const (
	// RiskLow is the default for dependencies with no notable signals.
	RiskLow RiskLevel = "LOW"
	// RiskMedium flags deprecated packages and high-risk licenses.
	RiskMedium RiskLevel = "MEDIUM"
	// RiskHigh flags suspicious-score outliers (likely typosquats).
	RiskHigh RiskLevel = "HIGH"
)

// LicenseRisk classifies a resolved license identifier
type LicenseRisk string

const (
	// LicenseRiskNone means no license information was available.
	LicenseRiskNone LicenseRisk = "NONE"
	// LicenseRiskLow covers permissive licenses.
	LicenseRiskLow LicenseRisk = "LOW"
	// LicenseRiskMedium covers weaker copyleft (GPL-2.0, LGPL, MPL, EPL).
	LicenseRiskMedium LicenseRisk = "MEDIUM"
	// LicenseRiskHigh covers strong copyleft (GPL-3.0 family, AGPL, SSPL).
	LicenseRiskHigh LicenseRisk = "HIGH"
)

// DeclaredDependency is one entry parsed from a package manifest.
// It is an intermediate scan value and is not persisted.
type DeclaredDependency struct {
	Name         string         `json:"name"`
	VersionSpec  string         `json:"version_spec"` // As written in the manifest, e.g. "^4.17.15"
	Manager      PackageManager `json:"manager"`
	Direct       bool           `json:"direct"`
	Depth        int            `json:"depth"`
	ManifestPath string         `json:"manifest_path"` // Relative to the scanned root
	Purl         string         `json:"purl,omitempty"` // Base purl without version, e.g. pkg:npm/lodash
}

// DependencyRisk is the persisted supply-chain assessment of one dependency
type DependencyRisk struct {
	Key                string         `json:"_key,omitempty"`
	ReportKey          string         `json:"report_key"`
	PackageName        string         `json:"package_name"`
	PackageVersion     string         `json:"package_version"`
	PackageManager     PackageManager `json:"package_manager"`
	Purl               string         `json:"purl,omitempty"`
	IsDeprecated       bool           `json:"is_deprecated"`
	HasVulnerabilities bool           `json:"has_vulnerabilities"`
	License            string         `json:"license,omitempty"`
	LicenseRisk        LicenseRisk    `json:"license_risk"`
	DirectDependency   bool           `json:"direct_dependency"`
	DependencyDepth    int            `json:"dependency_depth"`
	SuspiciousScore    int            `json:"suspicious_score"` // 0-100
	RiskLevel          RiskLevel      `json:"risk_level"`
	ObjType            string         `json:"objtype,omitempty"`
}

// NewDependencyRisk creates a new DependencyRisk instance with default values
func NewDependencyRisk() *DependencyRisk {
	return &DependencyRisk{
		ObjType:     "DependencyRisk",
		LicenseRisk: LicenseRiskNone,
		RiskLevel:   RiskLow,
	}
}
