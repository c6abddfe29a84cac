package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/launchforge/secscan/util"
)

var (
	reportsRepo   string
	reportsStatus string
	reportsLimit  int
)

// reportsCmd represents the reports command
var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List scan reports from the server",
	Long:  `Retrieves report summaries through the GraphQL API, newest first.`,
	RunE:  runReports,
}

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report [key]",
	Short: "Show one report with its findings and recommendations",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(reportCmd)

	reportsCmd.Flags().StringVar(&reportsRepo, "repo", "", "Only list reports for this repository")
	reportsCmd.Flags().StringVar(&reportsStatus, "status", "", "Only list reports in this state (PENDING, SCANNING, COMPLETED, FAILED)")
	reportsCmd.Flags().IntVar(&reportsLimit, "limit", 50, "Maximum number of reports to list")
}

// queryGraphQL posts one GraphQL query to the server and decodes the response
func queryGraphQL(query string, variables map[string]interface{}, out interface{}) error {
	payload := map[string]interface{}{
		"query":     query,
		"variables": variables,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	resp, err := http.Post(serverURL+"/api/v1/graphql", "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func runReports(cmd *cobra.Command, args []string) error {
	if reportsStatus != "" && !util.Contains([]string{"PENDING", "SCANNING", "COMPLETED", "FAILED"}, reportsStatus) {
		return fmt.Errorf("invalid status filter: %s", reportsStatus)
	}

	query := `query ($repoId: String, $limit: Int) {
		reports(repoId: $repoId, limit: $limit) {
			key repo_id status risk_score total_vulnerabilities scan_date
		}
	}`

	var result struct {
		Data struct {
			Reports []struct {
				Key       string `json:"key"`
				RepoID    string `json:"repo_id"`
				Status    string `json:"status"`
				RiskScore int    `json:"risk_score"`
				Total     int    `json:"total_vulnerabilities"`
				ScanDate  string `json:"scan_date"`
			} `json:"reports"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}

	if err := queryGraphQL(query, map[string]interface{}{
		"repoId": reportsRepo,
		"limit":  reportsLimit,
	}, &result); err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("query failed: %s", result.Errors[0].Message)
	}

	fmt.Printf("%-38s %-24s %-10s %5s %9s  %-22s\n", "KEY", "REPO", "STATUS", "RISK", "FINDINGS", "SCANNED")
	fmt.Println("─────────────────────────────────────────────────────────────────────────────────────────────────────────────────")

	shown := 0
	for _, r := range result.Data.Reports {
		if reportsStatus != "" && r.Status != reportsStatus {
			continue
		}
		fmt.Printf("%-38s %-24s %-10s %5d %9d  %-22s\n",
			r.Key, truncate(r.RepoID, 24), r.Status, r.RiskScore, r.Total, r.ScanDate)
		shown++
	}

	fmt.Printf("\n%d report(s)\n", shown)
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	key := args[0]

	query := `query ($key: String!) {
		report(key: $key) {
			key repo_id project_id commit_sha status error
			risk_score total_vulnerabilities critical_count high_count medium_count low_count
			files_scanned truncated scan_date scan_duration_ms
			vulnerabilities { severity title file_path line_number package_name package_version resolved }
			dependency_risks { package_name package_version risk_level suspicious_score is_deprecated license }
			recommendations { severity title estimated_effort implemented }
		}
	}`

	var result struct {
		Data struct {
			Report *struct {
				Key        string `json:"key"`
				RepoID     string `json:"repo_id"`
				ProjectID  string `json:"project_id"`
				CommitSha  string `json:"commit_sha"`
				Status     string `json:"status"`
				Error      string `json:"error"`
				RiskScore  int    `json:"risk_score"`
				Total      int    `json:"total_vulnerabilities"`
				Critical   int    `json:"critical_count"`
				High       int    `json:"high_count"`
				Medium     int    `json:"medium_count"`
				Low        int    `json:"low_count"`
				Files      int    `json:"files_scanned"`
				Truncated  bool   `json:"truncated"`
				ScanDate   string `json:"scan_date"`
				DurationMs int64  `json:"scan_duration_ms"`

				Vulnerabilities []struct {
					Severity       string `json:"severity"`
					Title          string `json:"title"`
					FilePath       string `json:"file_path"`
					LineNumber     int    `json:"line_number"`
					PackageName    string `json:"package_name"`
					PackageVersion string `json:"package_version"`
					Resolved       bool   `json:"resolved"`
				} `json:"vulnerabilities"`

				DependencyRisks []struct {
					PackageName     string `json:"package_name"`
					PackageVersion  string `json:"package_version"`
					RiskLevel       string `json:"risk_level"`
					SuspiciousScore int    `json:"suspicious_score"`
					IsDeprecated    bool   `json:"is_deprecated"`
					License         string `json:"license"`
				} `json:"dependency_risks"`

				Recommendations []struct {
					Severity        string `json:"severity"`
					Title           string `json:"title"`
					EstimatedEffort string `json:"estimated_effort"`
					Implemented     bool   `json:"implemented"`
				} `json:"recommendations"`
			} `json:"report"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}

	if err := queryGraphQL(query, map[string]interface{}{"key": key}, &result); err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("query failed: %s", result.Errors[0].Message)
	}
	if result.Data.Report == nil {
		return fmt.Errorf("report not found: %s", key)
	}

	r := result.Data.Report

	fmt.Printf("Report: %s\n", r.Key)
	fmt.Printf("Repository: %s\n", r.RepoID)
	if r.ProjectID != "" {
		fmt.Printf("Project: %s\n", r.ProjectID)
	}
	fmt.Printf("Commit: %s\n", util.GetStringOrDefault(r.CommitSha, "-"))
	fmt.Printf("Status: %s\n", r.Status)
	if r.Error != "" {
		fmt.Printf("Error: %s\n", r.Error)
	}
	fmt.Printf("Scanned: %s (%d files, %dms)\n", r.ScanDate, r.Files, r.DurationMs)
	if r.Truncated {
		fmt.Println("Note: file budget hit, results may be incomplete")
	}
	fmt.Println()
	fmt.Printf("Risk score: %d/100\n", r.RiskScore)
	fmt.Printf("Findings: %d (critical %d, high %d, medium %d, low %d)\n",
		r.Total, r.Critical, r.High, r.Medium, r.Low)

	if len(r.Vulnerabilities) > 0 {
		fmt.Printf("\n%-10s %-45s %-45s\n", "SEVERITY", "TITLE", "LOCATION")
		fmt.Println("──────────────────────────────────────────────────────────────────────────────────────────────────────")
		for _, v := range r.Vulnerabilities {
			location := "-"
			switch {
			case v.PackageName != "":
				location = v.PackageName + "@" + v.PackageVersion
			case v.FilePath != "":
				location = fmt.Sprintf("%s:%d", v.FilePath, v.LineNumber)
			}
			resolved := ""
			if v.Resolved {
				resolved = " (resolved)"
			}
			fmt.Printf("%-10s %-45s %-45s%s\n", v.Severity, truncate(v.Title, 45), truncate(location, 45), resolved)
		}
	}

	if len(r.DependencyRisks) > 0 {
		fmt.Printf("\n%-8s %-35s %-15s %10s  %s\n", "RISK", "PACKAGE", "VERSION", "SUSPICION", "FLAGS")
		fmt.Println("──────────────────────────────────────────────────────────────────────────────────────────")
		for _, d := range r.DependencyRisks {
			flags := ""
			if d.IsDeprecated {
				flags = "deprecated"
			}
			fmt.Printf("%-8s %-35s %-15s %10d  %s\n",
				d.RiskLevel, truncate(d.PackageName, 35), truncate(d.PackageVersion, 15), d.SuspiciousScore, flags)
		}
	}

	if len(r.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, rec := range r.Recommendations {
			done := " "
			if rec.Implemented {
				done = "x"
			}
			fmt.Printf("  [%s] [%s] %s (effort: %s)\n", done, rec.Severity, rec.Title, rec.EstimatedEffort)
		}
	}

	return nil
}
