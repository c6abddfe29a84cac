package scanner

import (
	"strings"

	"github.com/launchforge/secscan/model"
)

// severityWeight is the risk score contribution of one finding
func severityWeight(s model.Severity) int {
	switch s {
	case model.SeverityCritical:
		return 10
	case model.SeverityHigh:
		return 5
	case model.SeverityMedium:
		return 2
	case model.SeverityLow:
		return 1
	default:
		return 0
	}
}

// riskScore folds findings and dependency risks into the report score,
// clamped to 0-100. Dependency risks add +3 deprecated, +5 with matched
// advisories, +5 with a suspicion score above 50, +2 with a high-risk
// license.
func riskScore(findings []model.Vulnerability, risks []model.DependencyRisk) int {
	score := 0

	for _, f := range findings {
		score += severityWeight(f.Severity)
	}
	for _, r := range risks {
		if r.IsDeprecated {
			score += 3
		}
		if r.HasVulnerabilities {
			score += 5
		}
		if r.SuspiciousScore > 50 {
			score += 5
		}
		if r.LicenseRisk == model.LicenseRiskHigh {
			score += 2
		}
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// tallySeverities counts findings per severity. INFO folds into the low
// bucket.
func tallySeverities(findings []model.Vulnerability) (critical, high, medium, low int) {
	for _, f := range findings {
		switch f.Severity {
		case model.SeverityCritical:
			critical++
		case model.SeverityHigh:
			high++
		case model.SeverityMedium:
			medium++
		default:
			low++
		}
	}
	return critical, high, medium, low
}

// markVulnerablePackages sets HasVulnerabilities on every risk whose package
// produced a dependency finding.
func markVulnerablePackages(findings []model.Vulnerability, risks []model.DependencyRisk) {
	flagged := make(map[string]bool)
	for _, f := range findings {
		if f.Type == model.VulnTypeDependency && f.PackageName != "" {
			flagged[strings.ToLower(f.PackageName)] = true
		}
	}

	for i := range risks {
		if flagged[strings.ToLower(risks[i].PackageName)] {
			risks[i].HasVulnerabilities = true
		}
	}
}
