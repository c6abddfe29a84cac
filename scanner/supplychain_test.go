package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchforge/secscan/intel"
	"github.com/launchforge/secscan/model"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"react", "react", 0},
		{"raect", "react", 2}, // plain edit distance, transposition costs two
		{"reactt", "react", 1},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"lodash", "lodahs", 2},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, levenshtein(tt.a, tt.b))
		})
	}
}

func TestSuspicionScore_Typosquats(t *testing.T) {
	catalog := defaultCatalog(t)

	// Exact popular names contribute nothing.
	assert.Equal(t, 0, suspicionScore(catalog, "react"))
	assert.Equal(t, 0, suspicionScore(catalog, "lodash"))

	// Distance 1 from a popular package.
	assert.Equal(t, 50, suspicionScore(catalog, "reactt"))

	// Distance 2.
	assert.Equal(t, 30, suspicionScore(catalog, "raect"))
}

func TestSuspicionScore_NamingHeuristics(t *testing.T) {
	catalog := defaultCatalog(t)

	// Three or more consecutive digits.
	assert.Equal(t, 15, suspicionScore(catalog, "abcdef123456"))

	// Very short name.
	assert.Equal(t, 10, suspicionScore(catalog, "qz"))

	// Generic naming patterns.
	assert.Equal(t, 25, suspicionScore(catalog, "libx"))
	assert.Equal(t, 25, suspicionScore(catalog, "utils1"))
}

func TestSuspicionScore_SyntheticCatalogAndCap(t *testing.T) {
	dir := t.TempDir()
	synthetic := `
popular_packages:
  - abcd
  - abce
  - abcf
deprecated_packages: []
generic_name_patterns: []
license_risk:
  high: []
  medium: []
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, intel.SupplyChainFile), []byte(synthetic), 0o600))
	catalog, err := intel.Load(dir)
	require.NoError(t, err)

	// Distance 1 from all three popular names: 150 raw, capped at 100.
	assert.Equal(t, 100, suspicionScore(catalog, "abcg"))
}

func TestRiskLevelFor(t *testing.T) {
	tests := []struct {
		name string
		risk model.DependencyRisk
		want model.RiskLevel
	}{
		{"suspicion above threshold", model.DependencyRisk{SuspiciousScore: 71}, model.RiskHigh},
		{"suspicion at threshold stays lower", model.DependencyRisk{SuspiciousScore: 70}, model.RiskLow},
		{"deprecated", model.DependencyRisk{IsDeprecated: true}, model.RiskMedium},
		{"high license risk", model.DependencyRisk{LicenseRisk: model.LicenseRiskHigh}, model.RiskMedium},
		{"suspicion wins over deprecated", model.DependencyRisk{SuspiciousScore: 80, IsDeprecated: true}, model.RiskHigh},
		{"clean", model.DependencyRisk{}, model.RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, riskLevelFor(&tt.risk))
		})
	}
}

func TestAssessDependencies(t *testing.T) {
	catalog := defaultCatalog(t)

	risks := assessDependencies(catalog, []model.DeclaredDependency{
		declared("request", "2.88.2", model.ManagerNpm),
		declared("lodash", "^4.17.15", model.ManagerNpm),
	})
	require.Len(t, risks, 2)

	// request is deprecated and one edit away from "requests".
	assert.True(t, risks[0].IsDeprecated)
	assert.Equal(t, 50, risks[0].SuspiciousScore)
	assert.Equal(t, model.RiskMedium, risks[0].RiskLevel)
	assert.Equal(t, "request", risks[0].PackageName)
	assert.Equal(t, "2.88.2", risks[0].PackageVersion)
	assert.Equal(t, "pkg:npm/request", risks[0].Purl)
	assert.True(t, risks[0].DirectDependency)

	assert.False(t, risks[1].IsDeprecated)
	assert.Equal(t, 0, risks[1].SuspiciousScore)
	assert.Equal(t, model.RiskLow, risks[1].RiskLevel)
	assert.False(t, risks[1].HasVulnerabilities, "advisory join happens during aggregation, not here")

	// License lookup is a stub; risks stay unclassified.
	assert.Empty(t, risks[0].License)
	assert.Equal(t, model.LicenseRiskNone, risks[0].LicenseRisk)
}
