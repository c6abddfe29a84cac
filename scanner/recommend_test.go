package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchforge/secscan/model"
)

func depFinding(key, pkg string, severity model.Severity, fixed string) model.Vulnerability {
	return model.Vulnerability{
		Key:          key,
		Type:         model.VulnTypeDependency,
		PackageName:  pkg,
		Severity:     severity,
		FixedVersion: fixed,
	}
}

func TestDependencyUpdateRecs_GroupsByPackageAndSeverity(t *testing.T) {
	findings := []model.Vulnerability{
		depFinding("k1", "lodash", model.SeverityHigh, "4.17.21"),
		depFinding("k2", "lodash", model.SeverityHigh, ""),
		depFinding("k3", "lodash", model.SeverityCritical, "4.17.12"),
		depFinding("k4", "express", model.SeverityHigh, "4.19.2"),
		{Key: "k5", Type: model.VulnTypeSecrets, Severity: model.SeverityCritical},
	}

	recs := dependencyUpdateRecs(findings)
	require.Len(t, recs, 3, "one group per (package, severity) pair")

	byTitle := make(map[string]model.Recommendation)
	for _, r := range recs {
		assert.Equal(t, model.CategoryDependencyUpdate, r.Category)
		byTitle[r.Title+"/"+string(r.Severity)] = r
	}

	lodashHigh := byTitle["Update lodash to a patched version/HIGH"]
	assert.Equal(t, 8, lodashHigh.Priority)
	assert.ElementsMatch(t, []string{"k1", "k2"}, lodashHigh.RelatedVulnKeys)
	assert.Contains(t, lodashHigh.Description, "2 known advisories")
	assert.Contains(t, lodashHigh.Description, "version 4.17.21")

	lodashCritical := byTitle["Update lodash to a patched version/CRITICAL"]
	assert.Equal(t, 10, lodashCritical.Priority)
	assert.Equal(t, []string{"k3"}, lodashCritical.RelatedVulnKeys)
	assert.Contains(t, lodashCritical.Description, "1 known advisory")

	expressHigh := byTitle["Update express to a patched version/HIGH"]
	assert.Equal(t, 8, expressHigh.Priority)
	assert.Equal(t, []string{"k4"}, expressHigh.RelatedVulnKeys)
}

func TestDependencyUpdateRecs_NoFixedVersionFallsBack(t *testing.T) {
	recs := dependencyUpdateRecs([]model.Vulnerability{
		depFinding("k1", "minimist", model.SeverityMedium, ""),
	})

	require.Len(t, recs, 1)
	assert.Equal(t, 5, recs[0].Priority)
	assert.Contains(t, recs[0].Description, "the latest patched release")
}

func TestCodePatternRecs(t *testing.T) {
	findings := []model.Vulnerability{
		{Key: "s1", Type: model.VulnTypeSecrets, Severity: model.SeverityCritical},
		{Key: "s2", Type: model.VulnTypeSecrets, Severity: model.SeverityCritical},
		{Key: "q1", Type: model.VulnTypeSQLInjection, Severity: model.SeverityHigh},
		{Key: "x1", Type: model.VulnTypeXSS, Severity: model.SeverityHigh},
		{Key: "c1", Type: model.VulnTypeCryptography, Severity: model.SeverityMedium},
	}

	recs := codePatternRecs(findings)
	require.Len(t, recs, 3, "weak crypto gets no dedicated recommendation")

	byCategory := make(map[string]model.Recommendation)
	for _, r := range recs {
		byCategory[r.Category] = r
	}

	secrets := byCategory[model.CategorySecretsManagement]
	assert.Equal(t, 10, secrets.Priority)
	assert.Equal(t, model.SeverityCritical, secrets.Severity)
	assert.ElementsMatch(t, []string{"s1", "s2"}, secrets.RelatedVulnKeys)

	sqli := byCategory[model.CategorySQLInjection]
	assert.Equal(t, 9, sqli.Priority)
	assert.Equal(t, model.SeverityHigh, sqli.Severity)
	assert.Equal(t, []string{"q1"}, sqli.RelatedVulnKeys)

	xss := byCategory[model.CategoryXSSPrevention]
	assert.Equal(t, 8, xss.Priority)
	assert.Equal(t, model.SeverityHigh, xss.Severity)
	assert.Equal(t, []string{"x1"}, xss.RelatedVulnKeys)
}

func TestRiskHygieneRecs(t *testing.T) {
	risks := []model.DependencyRisk{
		{PackageName: "request", IsDeprecated: true},
		{PackageName: "left-pad", IsDeprecated: true},
		{PackageName: "raect", SuspiciousScore: 71},
		{PackageName: "qz", SuspiciousScore: 70},
		{PackageName: "lodash"},
	}

	recs := riskHygieneRecs(risks)
	require.Len(t, recs, 2, "one recommendation per condition, not per package")

	audit := recs[0]
	assert.Equal(t, model.CategorySupplyChain, audit.Category)
	assert.Equal(t, model.SeverityHigh, audit.Severity)
	assert.Equal(t, 7, audit.Priority)
	assert.Contains(t, audit.Description, "raect (71/100)")
	assert.NotContains(t, audit.Description, "qz", "suspicion must exceed 70 to warrant an audit")

	replace := recs[1]
	assert.Equal(t, model.CategoryDependencyHygiene, replace.Category)
	assert.Equal(t, model.SeverityMedium, replace.Severity)
	assert.Equal(t, 5, replace.Priority)
	assert.Contains(t, replace.Description, "request")
	assert.Contains(t, replace.Description, "left-pad")
	assert.Contains(t, replace.Description, "2 packages are")
}

func TestSynthesizeRecommendations_SortedByPriority(t *testing.T) {
	findings := []model.Vulnerability{
		depFinding("k1", "lodash", model.SeverityHigh, "4.17.21"),
		{Key: "s1", Type: model.VulnTypeSecrets, Severity: model.SeverityCritical},
		{Key: "q1", Type: model.VulnTypeSQLInjection, Severity: model.SeverityHigh},
	}
	risks := []model.DependencyRisk{
		{PackageName: "request", IsDeprecated: true},
	}

	recs := synthesizeRecommendations(findings, risks)
	require.Len(t, recs, 4)

	priorities := make([]int, 0, len(recs))
	for _, r := range recs {
		priorities = append(priorities, r.Priority)
	}
	assert.Equal(t, []int{10, 9, 8, 5}, priorities)
	assert.Equal(t, model.CategorySecretsManagement, recs[0].Category)
	assert.Equal(t, model.CategoryDependencyHygiene, recs[3].Category)
}

func TestSynthesizeRecommendations_EmptyInput(t *testing.T) {
	assert.Empty(t, synthesizeRecommendations(nil, nil))
}
