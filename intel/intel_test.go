package intel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchforge/secscan/model"
)

func TestDefault_CompilesEmbeddedArtifacts(t *testing.T) {
	catalog, err := Default()
	require.NoError(t, err)

	assert.NotEmpty(t, catalog.Rules, "embedded rules should compile")
	assert.NotEmpty(t, catalog.PopularPackages)
	assert.NotEmpty(t, catalog.Deprecated)

	// Every rule carries its category tagging.
	for _, rule := range catalog.Rules {
		assert.NotNil(t, rule.Pattern, "rule %s should have a compiled pattern", rule.ID)
		assert.NotEmpty(t, rule.OwaspCategory, "rule %s should carry an OWASP tag", rule.ID)
		assert.NotEmpty(t, rule.CweID, "rule %s should carry a CWE tag", rule.ID)
	}
}

func TestDefault_LodashAdvisory(t *testing.T) {
	catalog, err := Default()
	require.NoError(t, err)

	advisories := catalog.AdvisoriesFor(model.ManagerNpm, "lodash")
	require.Len(t, advisories, 1)
	assert.Equal(t, "CVE-2020-8203", advisories[0].CveID)
	assert.Equal(t, "<4.17.21", advisories[0].Range)
	assert.Equal(t, model.SeverityHigh, advisories[0].ParsedSeverity())

	// Case-insensitive lookup.
	assert.Len(t, catalog.AdvisoriesFor(model.ManagerNpm, "LoDash"), 1)
	// Unknown package and wrong manager return nothing.
	assert.Nil(t, catalog.AdvisoriesFor(model.ManagerNpm, "no-such-package"))
	assert.Nil(t, catalog.AdvisoriesFor(model.ManagerPip, "lodash"))
}

func TestLoad_OverrideDirectoryReplacesArtifact(t *testing.T) {
	dir := t.TempDir()
	override := `
npm:
  leftish-pad:
    - cve: CVE-2099-0001
      title: Test advisory
      description: Synthetic entry.
      severity: LOW
      cvss: 2.0
      range: "<1.0.0"
      fixed: 1.0.0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, AdvisoriesFile), []byte(override), 0o600))

	catalog, err := Load(dir)
	require.NoError(t, err)

	// Overridden advisories replace the embedded table entirely.
	assert.Nil(t, catalog.AdvisoriesFor(model.ManagerNpm, "lodash"))
	assert.Len(t, catalog.AdvisoriesFor(model.ManagerNpm, "leftish-pad"), 1)

	// Files the directory does not provide fall back to the embedded ones.
	assert.NotEmpty(t, catalog.Rules)
	assert.True(t, catalog.IsDeprecated("request"))
}

func TestLoad_BadRulePatternFails(t *testing.T) {
	dir := t.TempDir()
	badRules := `
rules:
  - id: broken-rule
    category: XSS
    title: Broken
    description: Unclosed group.
    pattern: '(unclosed'
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, RulesFile), []byte(badRules), 0o600))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken-rule")
}

func TestLoad_BadAdvisoryRejected(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		errPart string
	}{
		{
			name: "unknown manager",
			yaml: "maven:\n  log4j:\n    - cve: CVE-2021-44228\n      severity: CRITICAL\n      range: \"<2.15.0\"\n",
			errPart: "unknown package manager",
		},
		{
			name: "bad severity",
			yaml: "npm:\n  foo:\n    - cve: CVE-2099-0002\n      severity: SEVERE\n      range: \"<1.0.0\"\n",
			errPart: "invalid severity",
		},
		{
			name: "missing range",
			yaml: "npm:\n  foo:\n    - cve: CVE-2099-0003\n      severity: LOW\n",
			errPart: "missing range",
		},
		{
			name: "unparseable range",
			yaml: "npm:\n  foo:\n    - cve: CVE-2099-0004\n      severity: LOW\n      range: \"<not.a.version\"\n",
			errPart: "bad range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, AdvisoriesFile), []byte(tt.yaml), 0o600))

			_, err := Load(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestClassifyLicense(t *testing.T) {
	catalog, err := Default()
	require.NoError(t, err)

	assert.Equal(t, model.LicenseRiskHigh, catalog.ClassifyLicense("AGPL-3.0"))
	assert.Equal(t, model.LicenseRiskHigh, catalog.ClassifyLicense("gpl-3.0-only"))
	assert.Equal(t, model.LicenseRiskMedium, catalog.ClassifyLicense("LGPL-3.0"))
	assert.Equal(t, model.LicenseRiskLow, catalog.ClassifyLicense("MIT"))
	assert.Equal(t, model.LicenseRiskNone, catalog.ClassifyLicense(""))
}

func TestIsDeprecated(t *testing.T) {
	catalog, err := Default()
	require.NoError(t, err)

	assert.True(t, catalog.IsDeprecated("request"))
	assert.True(t, catalog.IsDeprecated("Left-Pad"))
	assert.False(t, catalog.IsDeprecated("lodash"))
}
