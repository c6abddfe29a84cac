// Package graphql provides the GraphQL schema definition and resolvers
package graphql

import (
	"context"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/graphql-go/graphql"

	"github.com/launchforge/secscan/database"
	"github.com/launchforge/secscan/model"
)

var db database.DBConnection

// InitDB initializes the global database connection variable used by all resolvers.
func InitDB(dbConn database.DBConnection) {
	db = dbConn
}

// SeverityType defines the GraphQL enum for finding severity levels. Values
// are the model constants so documents read from the database serialize
// without translation.
var SeverityType = graphql.NewEnum(graphql.EnumConfig{
	Name: "Severity",
	Values: graphql.EnumValueConfigMap{
		"CRITICAL": &graphql.EnumValueConfig{Value: model.SeverityCritical},
		"HIGH":     &graphql.EnumValueConfig{Value: model.SeverityHigh},
		"MEDIUM":   &graphql.EnumValueConfig{Value: model.SeverityMedium},
		"LOW":      &graphql.EnumValueConfig{Value: model.SeverityLow},
		"INFO":     &graphql.EnumValueConfig{Value: model.SeverityInfo},
	},
})

// ScanStatusType defines the GraphQL enum for the report lifecycle
var ScanStatusType = graphql.NewEnum(graphql.EnumConfig{
	Name: "ScanStatus",
	Values: graphql.EnumValueConfigMap{
		"PENDING":   &graphql.EnumValueConfig{Value: model.StatusPending},
		"SCANNING":  &graphql.EnumValueConfig{Value: model.StatusScanning},
		"COMPLETED": &graphql.EnumValueConfig{Value: model.StatusCompleted},
		"FAILED":    &graphql.EnumValueConfig{Value: model.StatusFailed},
	},
})

// RiskLevelType defines the GraphQL enum for dependency risk ratings
var RiskLevelType = graphql.NewEnum(graphql.EnumConfig{
	Name: "RiskLevel",
	Values: graphql.EnumValueConfigMap{
		"LOW":    &graphql.EnumValueConfig{Value: model.RiskLow},
		"MEDIUM": &graphql.EnumValueConfig{Value: model.RiskMedium},
		"HIGH":   &graphql.EnumValueConfig{Value: model.RiskHigh},
	},
})

// SeverityCountsType defines the GraphQL object for finding counts grouped by
// severity
var SeverityCountsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "SeverityCounts",
	Fields: graphql.Fields{
		"critical": &graphql.Field{Type: graphql.Int, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			report, _ := p.Source.(model.SecurityReport)
			return report.CriticalCount, nil
		}},
		"high": &graphql.Field{Type: graphql.Int, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			report, _ := p.Source.(model.SecurityReport)
			return report.HighCount, nil
		}},
		"medium": &graphql.Field{Type: graphql.Int, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			report, _ := p.Source.(model.SecurityReport)
			return report.MediumCount, nil
		}},
		"low": &graphql.Field{Type: graphql.Int, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			report, _ := p.Source.(model.SecurityReport)
			return report.LowCount, nil
		}},
	},
})

// VulnerabilityType defines the GraphQL object for individual security findings
var VulnerabilityType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Vulnerability",
	Fields: graphql.Fields{
		"key":             &graphql.Field{Type: graphql.String},
		"report_key":      &graphql.Field{Type: graphql.String},
		"type":            &graphql.Field{Type: graphql.String},
		"severity":        &graphql.Field{Type: SeverityType},
		"title":           &graphql.Field{Type: graphql.String},
		"description":     &graphql.Field{Type: graphql.String},
		"file_path":       &graphql.Field{Type: graphql.String},
		"line_number":     &graphql.Field{Type: graphql.Int},
		"code_snippet":    &graphql.Field{Type: graphql.String},
		"cve_id":          &graphql.Field{Type: graphql.String},
		"cvss_score":      &graphql.Field{Type: graphql.Float},
		"package_name":    &graphql.Field{Type: graphql.String},
		"package_version": &graphql.Field{Type: graphql.String},
		"fixed_version":   &graphql.Field{Type: graphql.String},
		"owasp_category":  &graphql.Field{Type: graphql.String},
		"cwe_id":          &graphql.Field{Type: graphql.String},
		"resolved":        &graphql.Field{Type: graphql.Boolean},
	},
})

// DependencyRiskType defines the GraphQL object for supply-chain assessments
var DependencyRiskType = graphql.NewObject(graphql.ObjectConfig{
	Name: "DependencyRisk",
	Fields: graphql.Fields{
		"key":                 &graphql.Field{Type: graphql.String},
		"report_key":          &graphql.Field{Type: graphql.String},
		"package_name":        &graphql.Field{Type: graphql.String},
		"package_version":     &graphql.Field{Type: graphql.String},
		"package_manager":     &graphql.Field{Type: graphql.String},
		"purl":                &graphql.Field{Type: graphql.String},
		"is_deprecated":       &graphql.Field{Type: graphql.Boolean},
		"has_vulnerabilities": &graphql.Field{Type: graphql.Boolean},
		"license":             &graphql.Field{Type: graphql.String},
		"license_risk":        &graphql.Field{Type: graphql.String},
		"direct_dependency":   &graphql.Field{Type: graphql.Boolean},
		"dependency_depth":    &graphql.Field{Type: graphql.Int},
		"suspicious_score":    &graphql.Field{Type: graphql.Int},
		"risk_level":          &graphql.Field{Type: RiskLevelType},
	},
})

// RecommendationType defines the GraphQL object for remediation advice
var RecommendationType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Recommendation",
	Fields: graphql.Fields{
		"key":                        &graphql.Field{Type: graphql.String},
		"report_key":                 &graphql.Field{Type: graphql.String},
		"severity":                   &graphql.Field{Type: SeverityType},
		"category":                   &graphql.Field{Type: graphql.String},
		"title":                      &graphql.Field{Type: graphql.String},
		"description":                &graphql.Field{Type: graphql.String},
		"steps":                      &graphql.Field{Type: graphql.NewList(graphql.String)},
		"related_vulnerability_keys": &graphql.Field{Type: graphql.NewList(graphql.String)},
		"estimated_effort":           &graphql.Field{Type: graphql.String},
		"priority":                   &graphql.Field{Type: graphql.Int},
		"implemented":                &graphql.Field{Type: graphql.Boolean},
	},
})

// ReportType defines the GraphQL object for a full security report with its
// child records resolvable on demand
var ReportType = graphql.NewObject(graphql.ObjectConfig{
	Name: "SecurityReport",
	Fields: graphql.Fields{
		"key":                   &graphql.Field{Type: graphql.String},
		"repo_id":               &graphql.Field{Type: graphql.String},
		"project_id":            &graphql.Field{Type: graphql.String},
		"commit_sha":            &graphql.Field{Type: graphql.String},
		"status":                &graphql.Field{Type: ScanStatusType},
		"risk_score":            &graphql.Field{Type: graphql.Int},
		"total_vulnerabilities": &graphql.Field{Type: graphql.Int},
		"critical_count":        &graphql.Field{Type: graphql.Int},
		"high_count":            &graphql.Field{Type: graphql.Int},
		"medium_count":          &graphql.Field{Type: graphql.Int},
		"low_count":             &graphql.Field{Type: graphql.Int},
		"files_scanned":         &graphql.Field{Type: graphql.Int},
		"truncated":             &graphql.Field{Type: graphql.Boolean},
		"error":                 &graphql.Field{Type: graphql.String},
		"scan_duration_ms":      &graphql.Field{Type: graphql.Int},

		"scan_date": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				report, _ := p.Source.(model.SecurityReport)
				return report.ScanDate.Format(time.RFC3339), nil
			},
		},

		"severity_counts": &graphql.Field{
			Type: SeverityCountsType,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source, nil
			},
		},

		"vulnerabilities": &graphql.Field{
			Type: graphql.NewList(VulnerabilityType),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				report, ok := p.Source.(model.SecurityReport)
				if !ok {
					return nil, nil
				}
				return resolveReportVulnerabilities(report.Key)
			},
		},
		"dependency_risks": &graphql.Field{
			Type: graphql.NewList(DependencyRiskType),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				report, ok := p.Source.(model.SecurityReport)
				if !ok {
					return nil, nil
				}
				return resolveReportRisks(report.Key)
			},
		},
		"recommendations": &graphql.Field{
			Type: graphql.NewList(RecommendationType),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				report, ok := p.Source.(model.SecurityReport)
				if !ok {
					return nil, nil
				}
				return resolveReportRecommendations(report.Key)
			},
		},
	},
})

// ReportSummaryType defines a lightweight GraphQL object for report listings:
// lifecycle state and counts without the child records
var ReportSummaryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "SecurityReportSummary",
	Fields: graphql.Fields{
		"key":                   &graphql.Field{Type: graphql.String},
		"repo_id":               &graphql.Field{Type: graphql.String},
		"project_id":            &graphql.Field{Type: graphql.String},
		"commit_sha":            &graphql.Field{Type: graphql.String},
		"status":                &graphql.Field{Type: ScanStatusType},
		"risk_score":            &graphql.Field{Type: graphql.Int},
		"total_vulnerabilities": &graphql.Field{Type: graphql.Int},
		"critical_count":        &graphql.Field{Type: graphql.Int},
		"high_count":            &graphql.Field{Type: graphql.Int},
		"medium_count":          &graphql.Field{Type: graphql.Int},
		"low_count":             &graphql.Field{Type: graphql.Int},
		"files_scanned":         &graphql.Field{Type: graphql.Int},
		"truncated":             &graphql.Field{Type: graphql.Boolean},
		"error":                 &graphql.Field{Type: graphql.String},
		"scan_duration_ms":      &graphql.Field{Type: graphql.Int},

		"scan_date": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				report, _ := p.Source.(model.SecurityReport)
				return report.ScanDate.Format(time.RFC3339), nil
			},
		},

		"severity_counts": &graphql.Field{
			Type: SeverityCountsType,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source, nil
			},
		},
	},
})

// PackageExposureType defines the GraphQL object for one known vulnerability
// aggregated across the latest completed report of every repository
var PackageExposureType = graphql.NewObject(graphql.ObjectConfig{
	Name: "PackageExposure",
	Fields: graphql.Fields{
		"cve_id":         &graphql.Field{Type: graphql.String},
		"package_name":   &graphql.Field{Type: graphql.String},
		"severity":       &graphql.Field{Type: SeverityType},
		"title":          &graphql.Field{Type: graphql.String},
		"fixed_version":  &graphql.Field{Type: graphql.String},
		"affected_repos": &graphql.Field{Type: graphql.NewList(graphql.String)},
		"report_count":   &graphql.Field{Type: graphql.Int},
	},
})

// fetchReport loads one report document by key, or nil when absent
func fetchReport(key string) (interface{}, error) {
	ctx := context.Background()
	query := `
		FOR r IN report
			FILTER r._key == @key
			LIMIT 1
			RETURN r
	`
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{
			"key": key,
		},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return nil, nil
	}

	var report model.SecurityReport
	if _, err := cursor.ReadDocument(ctx, &report); err != nil {
		return nil, err
	}
	return report, nil
}

// resolveLatestReport loads the most recent report of a repository by scan date
func resolveLatestReport(repoID string) (interface{}, error) {
	ctx := context.Background()
	query := `
		FOR r IN report
			FILTER r.repo_id == @repoId
			SORT r.scan_date DESC
			LIMIT 1
			RETURN r
	`
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{
			"repoId": repoID,
		},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return nil, nil
	}

	var report model.SecurityReport
	if _, err := cursor.ReadDocument(ctx, &report); err != nil {
		return nil, err
	}
	return report, nil
}

// resolveReports lists reports newest first, optionally filtered by repository
func resolveReports(repoID string, limit int) ([]model.SecurityReport, error) {
	ctx := context.Background()
	query := `
		FOR r IN report
			FILTER @repoId == "" OR r.repo_id == @repoId
			SORT r.scan_date DESC
			LIMIT @limit
			RETURN r
	`
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{
			"repoId": repoID,
			"limit":  limit,
		},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var reports []model.SecurityReport
	for cursor.HasMore() {
		var report model.SecurityReport
		if _, err := cursor.ReadDocument(ctx, &report); err != nil {
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// resolveProjectReports lists reports across every repository of a project,
// newest first
func resolveProjectReports(projectID string) ([]model.SecurityReport, error) {
	ctx := context.Background()
	query := `
		FOR r IN report
			FILTER r.project_id == @projectId
			SORT r.scan_date DESC
			RETURN r
	`
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{
			"projectId": projectID,
		},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var reports []model.SecurityReport
	for cursor.HasMore() {
		var report model.SecurityReport
		if _, err := cursor.ReadDocument(ctx, &report); err != nil {
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// resolveReportVulnerabilities fetches the findings of one report, most severe
// first, then by location for a stable order
func resolveReportVulnerabilities(reportKey string) ([]model.Vulnerability, error) {
	ctx := context.Background()
	query := `
		FOR v IN vulnerability
			FILTER v.report_key == @key
			LET rank = v.severity == "CRITICAL" ? 0 : v.severity == "HIGH" ? 1 : v.severity == "MEDIUM" ? 2 : v.severity == "LOW" ? 3 : 4
			SORT rank ASC, v.file_path ASC, v.line_number ASC
			RETURN v
	`
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{
			"key": reportKey,
		},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var vulns []model.Vulnerability
	for cursor.HasMore() {
		var vuln model.Vulnerability
		if _, err := cursor.ReadDocument(ctx, &vuln); err != nil {
			continue
		}
		vulns = append(vulns, vuln)
	}
	return vulns, nil
}

// resolveReportRisks fetches the dependency assessments of one report,
// riskiest first, then by package name
func resolveReportRisks(reportKey string) ([]model.DependencyRisk, error) {
	ctx := context.Background()
	query := `
		FOR d IN dependencyrisk
			FILTER d.report_key == @key
			LET rank = d.risk_level == "HIGH" ? 2 : d.risk_level == "MEDIUM" ? 1 : 0
			SORT rank DESC, d.package_name ASC
			RETURN d
	`
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{
			"key": reportKey,
		},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var risks []model.DependencyRisk
	for cursor.HasMore() {
		var risk model.DependencyRisk
		if _, err := cursor.ReadDocument(ctx, &risk); err != nil {
			continue
		}
		risks = append(risks, risk)
	}
	return risks, nil
}

// resolveReportRecommendations fetches the remediation items of one report,
// most urgent first
func resolveReportRecommendations(reportKey string) ([]model.Recommendation, error) {
	ctx := context.Background()
	query := `
		FOR c IN recommendation
			FILTER c.report_key == @key
			SORT c.priority DESC, c.title ASC
			RETURN c
	`
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{
			"key": reportKey,
		},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var recs []model.Recommendation
	for cursor.HasMore() {
		var rec model.Recommendation
		if _, err := cursor.ReadDocument(ctx, &rec); err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// resolvePackageExposure aggregates dependency findings by CVE and package
// across the latest completed report of every repository, most severe first.
// Only the newest completed report per repository counts, so resolved
// exposure drops out as soon as a clean scan lands.
func resolvePackageExposure(limit int) ([]model.PackageExposure, error) {
	ctx := context.Background()
	query := `
		LET latest = (
			FOR r IN report
				FILTER r.status == "COMPLETED"
				SORT r.repo_id ASC, r.scan_date DESC
				COLLECT repo = r.repo_id INTO grp KEEP r
				RETURN FIRST(grp[*].r)
		)

		FOR rep IN latest
			FOR v IN vulnerability
				FILTER v.report_key == rep._key
				   AND v.type == "DEPENDENCY"
				   AND v.cve_id != null AND v.cve_id != ""
				LET rank = v.severity == "CRITICAL" ? 0 : v.severity == "HIGH" ? 1 : v.severity == "MEDIUM" ? 2 : v.severity == "LOW" ? 3 : 4

				COLLECT cve = v.cve_id, pkg = v.package_name
				AGGREGATE
					titles = UNIQUE(v.title),
					fixed = UNIQUE(v.fixed_version),
					repos = UNIQUE(rep.repo_id),
					reportKeys = UNIQUE(v.report_key),
					minRank = MIN(rank)

				SORT minRank ASC, cve ASC
				LIMIT @limit

				RETURN {
					cve_id: cve,
					package_name: pkg,
					severity: minRank == 0 ? "CRITICAL" : minRank == 1 ? "HIGH" : minRank == 2 ? "MEDIUM" : minRank == 3 ? "LOW" : "INFO",
					title: FIRST(titles) != null ? FIRST(titles) : "",
					fixed_version: FIRST(fixed) != null ? FIRST(fixed) : "",
					affected_repos: SORTED_UNIQUE(repos),
					report_count: LENGTH(reportKeys)
				}
	`
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{
			"limit": limit,
		},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var exposures []model.PackageExposure
	seen := make(map[string]bool)

	for cursor.HasMore() {
		var exposure model.PackageExposure
		if _, err := cursor.ReadDocument(ctx, &exposure); err != nil {
			continue
		}

		dedupeKey := exposure.CveID + ":" + exposure.PackageName
		if seen[dedupeKey] {
			continue
		}
		seen[dedupeKey] = true

		exposures = append(exposures, exposure)
	}
	return exposures, nil
}

// CreateSchema generates and returns the configured GraphQL schema for the API.
func CreateSchema() (graphql.Schema, error) {
	rootQuery := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"report": &graphql.Field{
				Type: ReportType,
				Args: graphql.FieldConfigArgument{
					"key": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.String),
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					key := p.Args["key"].(string)
					return fetchReport(key)
				},
			},
			"latestReport": &graphql.Field{
				Type: ReportType,
				Args: graphql.FieldConfigArgument{
					"repoId": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.String),
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					repoID := p.Args["repoId"].(string)
					return resolveLatestReport(repoID)
				},
			},
			"reports": &graphql.Field{
				Type: graphql.NewList(ReportSummaryType),
				Args: graphql.FieldConfigArgument{
					"repoId": &graphql.ArgumentConfig{
						Type:         graphql.String,
						DefaultValue: "",
					},
					"limit": &graphql.ArgumentConfig{
						Type:         graphql.Int,
						DefaultValue: 50,
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					repoID := p.Args["repoId"].(string)
					limit := p.Args["limit"].(int)
					return resolveReports(repoID, limit)
				},
			},
			"projectReports": &graphql.Field{
				Type: graphql.NewList(ReportSummaryType),
				Args: graphql.FieldConfigArgument{
					"projectId": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.String),
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					projectID := p.Args["projectId"].(string)
					return resolveProjectReports(projectID)
				},
			},
			"packageExposure": &graphql.Field{
				Type: graphql.NewList(PackageExposureType),
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{
						Type:         graphql.Int,
						DefaultValue: 100,
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					limit := p.Args["limit"].(int)
					return resolvePackageExposure(limit)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: rootQuery,
	})
}
