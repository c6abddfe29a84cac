// Package model - Recommendation defines remediation advice attached to a report
package model

// Recommendation categories. Each synthesis rule emits exactly one category.
const (
	// CategoryDependencyUpdate groups findings for one vulnerable package.
	CategoryDependencyUpdate = "DEPENDENCY_UPDATE"
	// CategorySecretsManagement covers hardcoded credential findings.
	CategorySecretsManagement = "SECRETS_MANAGEMENT"
	// CategorySQLInjection covers injection findings in code.
	CategorySQLInjection = "SQL_INJECTION"
	// CategoryXSSPrevention covers raw HTML sink findings.
	CategoryXSSPrevention = "XSS_PREVENTION"
	// CategoryDependencyHygiene covers deprecated package replacement.
	CategoryDependencyHygiene = "DEPENDENCY_HYGIENE"
	// CategorySupplyChain covers suspicious package audit advice.
	CategorySupplyChain = "SUPPLY_CHAIN"
)

// Recommendation represents one remediation item synthesized from scan results.
// Implemented is the only field that may change after the scan completes.
type Recommendation struct {
	Key             string   `json:"_key,omitempty"`
	ReportKey       string   `json:"report_key"`
	Severity        Severity `json:"severity"`
	Category        string   `json:"category"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Steps           []string `json:"steps"` // Ordered remediation steps
	RelatedVulnKeys []string `json:"related_vulnerability_keys,omitempty"`
	EstimatedEffort string   `json:"estimated_effort"`
	Priority        int      `json:"priority"` // 1-10, 10 most urgent
	Implemented     bool     `json:"implemented"`
	ObjType         string   `json:"objtype,omitempty"`
}

// NewRecommendation creates a new Recommendation instance with default values
func NewRecommendation() *Recommendation {
	return &Recommendation{
		ObjType: "Recommendation",
	}
}
