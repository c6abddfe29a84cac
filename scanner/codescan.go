package scanner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/launchforge/secscan/intel"
	"github.com/launchforge/secscan/model"
)

const maxSnippetLen = 200

// scanCodeFiles applies the rule catalog line by line to each listed file.
// Output order is walk order, then line number, then catalog rule order, so
// rescanning an unchanged tree yields identical findings. Keys are assigned
// later by the engine. One finding is produced per (file, line, rule) match.
func scanCodeFiles(ctx context.Context, catalog *intel.Catalog, root string, files []string) ([]model.Vulnerability, error) {
	var findings []model.Vulnerability

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			logger.Warn("skipping unreadable file", zap.String("path", rel), zap.Error(err))
			continue
		}
		if bytes.IndexByte(data, 0) >= 0 {
			continue
		}

		for i, line := range strings.Split(string(data), "\n") {
			for _, rule := range catalog.Rules {
				if !rule.Pattern.MatchString(line) {
					continue
				}

				vuln := model.NewVulnerability()
				vuln.Type = rule.Type
				vuln.Severity = rule.Severity
				vuln.Title = rule.Title
				vuln.Description = rule.Description
				vuln.FilePath = rel
				vuln.LineNumber = i + 1
				vuln.CodeSnippet = snippet(line)
				vuln.OwaspCategory = rule.OwaspCategory
				vuln.CweID = rule.CweID
				findings = append(findings, *vuln)
			}
		}
	}

	return findings, nil
}

func snippet(line string) string {
	s := strings.TrimSpace(line)
	if len(s) > maxSnippetLen {
		s = s[:maxSnippetLen]
	}
	return s
}
