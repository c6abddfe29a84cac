package graphql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchforge/secscan/model"
)

func TestCreateSchema_QueryFields(t *testing.T) {
	schema, err := CreateSchema()
	require.NoError(t, err)

	fields := schema.QueryType().Fields()
	for _, name := range []string{"report", "latestReport", "reports", "projectReports", "packageExposure"} {
		assert.Contains(t, fields, name)
	}

	args := map[string]bool{}
	for _, arg := range fields["reports"].Args {
		args[arg.Name()] = true
	}
	assert.True(t, args["repoId"])
	assert.True(t, args["limit"])
}

func TestReportTypes_Shape(t *testing.T) {
	full := ReportType.Fields()
	for _, name := range []string{
		"key", "repo_id", "status", "risk_score", "scan_date",
		"severity_counts", "vulnerabilities", "dependency_risks", "recommendations",
	} {
		assert.Contains(t, full, name)
	}

	// Report lists stay shallow; child records hang off the single-report type.
	summary := ReportSummaryType.Fields()
	assert.Contains(t, summary, "severity_counts")
	assert.NotContains(t, summary, "vulnerabilities")
	assert.NotContains(t, summary, "dependency_risks")
	assert.NotContains(t, summary, "recommendations")
}

// Enum values must be the typed model constants, otherwise typed struct fields
// do not serialize.
func TestEnums_TypedValues(t *testing.T) {
	severities := map[string]interface{}{}
	for _, v := range SeverityType.Values() {
		severities[v.Name] = v.Value
	}
	assert.Equal(t, model.SeverityCritical, severities["CRITICAL"])
	assert.Equal(t, model.SeverityHigh, severities["HIGH"])
	assert.Equal(t, model.SeverityMedium, severities["MEDIUM"])
	assert.Equal(t, model.SeverityLow, severities["LOW"])
	assert.Equal(t, model.SeverityInfo, severities["INFO"])

	statuses := map[string]interface{}{}
	for _, v := range ScanStatusType.Values() {
		statuses[v.Name] = v.Value
	}
	assert.Equal(t, model.StatusPending, statuses["PENDING"])
	assert.Equal(t, model.StatusScanning, statuses["SCANNING"])
	assert.Equal(t, model.StatusCompleted, statuses["COMPLETED"])
	assert.Equal(t, model.StatusFailed, statuses["FAILED"])

	risks := map[string]interface{}{}
	for _, v := range RiskLevelType.Values() {
		risks[v.Name] = v.Value
	}
	assert.Equal(t, model.RiskLow, risks["LOW"])
	assert.Equal(t, model.RiskMedium, risks["MEDIUM"])
	assert.Equal(t, model.RiskHigh, risks["HIGH"])
}
