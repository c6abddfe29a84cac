package scanner

import (
	"regexp"
	"strings"

	"github.com/launchforge/secscan/intel"
	"github.com/launchforge/secscan/model"
)

var consecutiveDigits = regexp.MustCompile(`[0-9]{3,}`)

// assessDependencies scores every declared dependency for supply-chain risk.
// The assessment is independent of the advisory matcher; HasVulnerabilities
// is joined on during aggregation.
func assessDependencies(catalog *intel.Catalog, deps []model.DeclaredDependency) []model.DependencyRisk {
	risks := make([]model.DependencyRisk, 0, len(deps))

	for _, dep := range deps {
		risk := model.NewDependencyRisk()
		risk.PackageName = dep.Name
		risk.PackageVersion = dep.VersionSpec
		risk.PackageManager = dep.Manager
		risk.Purl = dep.Purl
		risk.IsDeprecated = catalog.IsDeprecated(dep.Name)
		risk.License = resolveLicense(dep)
		risk.LicenseRisk = catalog.ClassifyLicense(risk.License)
		risk.DirectDependency = dep.Direct
		risk.DependencyDepth = dep.Depth
		risk.SuspiciousScore = suspicionScore(catalog, dep.Name)
		risk.RiskLevel = riskLevelFor(risk)
		risks = append(risks, *risk)
	}

	return risks
}

// resolveLicense is a stub. The scanner makes no network calls, so license
// metadata stays unresolved until a registry metadata source exists; the
// classifier is exercised with injected values in tests.
func resolveLicense(model.DeclaredDependency) string {
	return ""
}

// suspicionScore applies the typosquat and naming heuristics, capped at 100:
// +50 per popular package at edit distance 1, +30 at distance 2, +20 for a
// short name containing "test", +15 for a run of three or more digits, +10
// for names under three characters, +25 per generic-name pattern match.
func suspicionScore(catalog *intel.Catalog, name string) int {
	score := 0
	lower := strings.ToLower(name)

	for _, popular := range catalog.PopularPackages {
		switch levenshtein(lower, popular) {
		case 1:
			score += 50
		case 2:
			score += 30
		}
	}

	if strings.Contains(lower, "test") && len(lower) < 8 {
		score += 20
	}
	if consecutiveDigits.MatchString(lower) {
		score += 15
	}
	if len(lower) < 3 {
		score += 10
	}
	for _, pattern := range catalog.GenericPatterns {
		if pattern.MatchString(lower) {
			score += 25
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}

// riskLevelFor derives the coarse rating: HIGH on a suspicion score above 70,
// MEDIUM for deprecated packages or high-risk licenses, LOW otherwise.
func riskLevelFor(risk *model.DependencyRisk) model.RiskLevel {
	switch {
	case risk.SuspiciousScore > 70:
		return model.RiskHigh
	case risk.IsDeprecated || risk.LicenseRisk == model.LicenseRiskHigh:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

// levenshtein computes edit distance with unit insert, delete, and
// substitute costs.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}
