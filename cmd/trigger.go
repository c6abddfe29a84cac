package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/launchforge/secscan/model"
	"github.com/launchforge/secscan/util"
)

var (
	triggerRepo    string
	triggerProject string
	triggerPath    string
	triggerCommit  string
)

// triggerCmd represents the trigger command
var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Trigger a background scan on the server",
	Long: `Posts a scan request to the API. The scan runs on the server against a
path visible to it; poll the returned report key for completion.`,
	RunE: runTrigger,
}

func init() {
	rootCmd.AddCommand(triggerCmd)
	triggerCmd.Flags().StringVar(&triggerRepo, "repo", "", "Repository id (required)")
	triggerCmd.Flags().StringVar(&triggerProject, "project", "", "Project id grouping related repositories")
	triggerCmd.Flags().StringVar(&triggerPath, "path", "", "Checkout path on the server host (required)")
	triggerCmd.Flags().StringVar(&triggerCommit, "commit", "", "Commit SHA to record on the report")
	triggerCmd.MarkFlagRequired("repo")
	triggerCmd.MarkFlagRequired("path")
}

func runTrigger(cmd *cobra.Command, args []string) error {
	if util.IsEmpty(triggerRepo) || util.IsEmpty(triggerPath) {
		return fmt.Errorf("repo and path must not be empty")
	}

	req := model.ScanRequest{
		RepoID:    triggerRepo,
		ProjectID: triggerProject,
		Path:      triggerPath,
		CommitSha: triggerCommit,
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if verbose {
		fmt.Println("Request payload:")
		fmt.Println(string(jsonData))
	}

	resp, err := http.Post(serverURL+"/api/v1/scans", "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var result struct {
		Success   bool   `json:"success"`
		Message   string `json:"message"`
		ReportKey string `json:"report_key"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		// scan accepted
	case http.StatusConflict:
		return fmt.Errorf("scan rejected: %s", result.Message)
	default:
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	fmt.Printf("✓ Scan started for repository %s\n", triggerRepo)
	fmt.Printf("Report key: %s\n", result.ReportKey)
	fmt.Printf("Poll with: secscan report %s\n", result.ReportKey)
	return nil
}
