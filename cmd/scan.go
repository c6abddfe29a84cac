package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/launchforge/secscan/intel"
	"github.com/launchforge/secscan/model"
	"github.com/launchforge/secscan/scanner"
	"github.com/launchforge/secscan/util"
)

var (
	scanCommit   string
	scanJSONFile string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a local checkout without a server",
	Long: `Runs the full analysis pipeline against a local directory and prints
the resulting report. Nothing is persisted; use trigger to record
scans through the API.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanCommit, "commit", "", "Commit SHA to record on the report (default: current git HEAD)")
	scanCmd.Flags().StringVar(&scanJSONFile, "json", "", "Write the full report as JSON to a file")
}

func runScan(cmd *cobra.Command, args []string) error {
	absPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("scan path is not a directory: %s", absPath)
	}

	repoID := util.CleanName(filepath.Base(absPath))

	commit := scanCommit
	if commit == "" {
		commit = util.RunCmd(absPath, "git rev-parse HEAD")
	}

	catalog, err := intel.Load(util.GetEnvDefault("SECSCAN_INTEL_DIR", ""))
	if err != nil {
		return fmt.Errorf("failed to load intel catalog: %w", err)
	}
	engine := scanner.NewEngine(catalog, limitsFromEnv())

	if verbose {
		fmt.Printf("Scanning %s as repository %s\n", absPath, repoID)
	}

	outcome, err := engine.Scan(context.Background(), scanner.Target{
		RepoID:    repoID,
		RootPath:  absPath,
		CommitSha: commit,
	})
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	report := buildLocalReport(repoID, commit, outcome)

	printReportSummary(report)
	printFindings(outcome.Findings)
	printRecommendations(outcome.Recommendations, 5)

	if util.IsNotEmpty(scanJSONFile) {
		detail := model.ReportWithDetail{
			SecurityReport:  *report,
			Vulnerabilities: outcome.Findings,
			DependencyRisks: outcome.DependencyRisks,
			Recommendations: outcome.Recommendations,
		}
		data, err := json.MarshalIndent(detail, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		if err := os.WriteFile(scanJSONFile, data, 0644); err != nil {
			return fmt.Errorf("failed to write report file: %w", err)
		}
		fmt.Printf("\nReport written to: %s\n", scanJSONFile)
	}

	return nil
}

// buildLocalReport assembles a completed report from an engine outcome for
// display. Nothing is persisted and no key is assigned.
func buildLocalReport(repoID, commit string, outcome *scanner.Outcome) *model.SecurityReport {
	report := model.NewSecurityReport()
	report.RepoID = repoID
	report.CommitSha = commit
	report.Status = model.StatusCompleted
	report.RiskScore = outcome.RiskScore
	report.TotalVulnerabilities = len(outcome.Findings)
	report.CriticalCount = outcome.Critical
	report.HighCount = outcome.High
	report.MediumCount = outcome.Medium
	report.LowCount = outcome.Low
	report.FilesScanned = outcome.FilesScanned
	report.Truncated = outcome.Truncated
	report.ScanDuration = outcome.Duration.Milliseconds()
	return report
}

func printReportSummary(report *model.SecurityReport) {
	fmt.Printf("Repository: %s\n", report.RepoID)
	if report.CommitSha != "" {
		fmt.Printf("Commit: %s\n", report.CommitSha)
	}
	fmt.Printf("Files scanned: %d", report.FilesScanned)
	if report.Truncated {
		fmt.Printf(" (file budget hit, results may be incomplete)")
	}
	fmt.Println()
	fmt.Printf("Duration: %dms\n", report.ScanDuration)
	fmt.Println()
	fmt.Printf("Risk score: %d/100\n", report.RiskScore)
	fmt.Printf("Findings: %d (critical %d, high %d, medium %d, low %d)\n",
		report.TotalVulnerabilities, report.CriticalCount,
		report.HighCount, report.MediumCount, report.LowCount)
}

func printFindings(findings []model.Vulnerability) {
	if len(findings) == 0 {
		fmt.Println("\nNo findings.")
		return
	}

	sorted := make([]model.Vulnerability, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Severity.Rank() < sorted[j].Severity.Rank()
	})

	fmt.Printf("\n%-10s %-45s %-45s\n", "SEVERITY", "TITLE", "LOCATION")
	fmt.Println("──────────────────────────────────────────────────────────────────────────────────────────────────────")

	for _, v := range sorted {
		fmt.Printf("%-10s %-45s %-45s\n", v.Severity, truncate(v.Title, 45), truncate(findingLocation(v), 45))
	}
}

// findingLocation renders where a finding lives: the package coordinate for
// dependency findings, a file position for code findings
func findingLocation(v model.Vulnerability) string {
	switch {
	case v.PackageName != "":
		return v.PackageName + "@" + v.PackageVersion
	case v.FilePath != "":
		return fmt.Sprintf("%s:%d", v.FilePath, v.LineNumber)
	default:
		return "-"
	}
}

func printRecommendations(recs []model.Recommendation, top int) {
	if len(recs) == 0 {
		return
	}

	fmt.Println("\nRecommendations:")
	for i, rec := range recs {
		if i >= top {
			fmt.Printf("  ... and %d more\n", len(recs)-top)
			break
		}
		fmt.Printf("  [%s] %s (effort: %s)\n", rec.Severity, rec.Title, rec.EstimatedEffort)
		if verbose {
			fmt.Printf("      %s\n", rec.Description)
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
