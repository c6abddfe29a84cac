package scanner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/launchforge/secscan/model"
)

// depGroup collects the dependency findings for one (package, severity) pair
type depGroup struct {
	pkg      string
	severity model.Severity
	fixed    string
	keys     []string
	count    int
}

// synthesizeRecommendations turns scan results into prioritized remediation
// advice: one update recommendation per vulnerable (package, severity) group,
// one per present code finding class, and hygiene items from the dependency
// risks. Output is sorted by priority, most urgent first.
func synthesizeRecommendations(findings []model.Vulnerability, risks []model.DependencyRisk) []model.Recommendation {
	var recs []model.Recommendation
	recs = append(recs, dependencyUpdateRecs(findings)...)
	recs = append(recs, codePatternRecs(findings)...)
	recs = append(recs, riskHygieneRecs(risks)...)

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Priority != recs[j].Priority {
			return recs[i].Priority > recs[j].Priority
		}
		return recs[i].Severity.Rank() < recs[j].Severity.Rank()
	})

	return recs
}

func dependencyUpdateRecs(findings []model.Vulnerability) []model.Recommendation {
	groups := make(map[string]*depGroup)
	var order []string

	for _, f := range findings {
		if f.Type != model.VulnTypeDependency {
			continue
		}
		key := fmt.Sprintf("%s:%s", f.PackageName, f.Severity)
		g, exists := groups[key]
		if !exists {
			g = &depGroup{pkg: f.PackageName, severity: f.Severity}
			groups[key] = g
			order = append(order, key)
		}
		if g.fixed == "" {
			g.fixed = f.FixedVersion
		}
		g.keys = append(g.keys, f.Key)
		g.count++
	}

	recs := make([]model.Recommendation, 0, len(order))
	for _, key := range order {
		g := groups[key]

		target := "the latest patched release"
		if g.fixed != "" {
			target = "version " + g.fixed
		}

		rec := model.NewRecommendation()
		rec.Key = uuid.NewString()
		rec.Severity = g.severity
		rec.Category = model.CategoryDependencyUpdate
		rec.Title = fmt.Sprintf("Update %s to a patched version", g.pkg)
		rec.Description = fmt.Sprintf("%s matched %s. Upgrade to %s.",
			g.pkg, countNoun(g.count, "known advisory", "known advisories"), target)
		rec.Steps = []string{
			"Review the advisory details and confirm the affected code paths are in use",
			fmt.Sprintf("Bump %s to %s in the manifest", g.pkg, target),
			"Reinstall dependencies and run the project test suite",
			"Deploy and watch for regressions",
		}
		rec.RelatedVulnKeys = g.keys
		rec.EstimatedEffort = "1-2 hours"
		rec.Priority = updatePriority(g.severity)
		recs = append(recs, *rec)
	}

	return recs
}

// updatePriority maps the severity of a vulnerable dependency group to the
// urgency of its update recommendation.
func updatePriority(s model.Severity) int {
	switch s {
	case model.SeverityCritical:
		return 10
	case model.SeverityHigh:
		return 8
	case model.SeverityMedium:
		return 5
	default:
		return 3
	}
}

func codePatternRecs(findings []model.Vulnerability) []model.Recommendation {
	keysByType := make(map[model.VulnType][]string)
	for _, f := range findings {
		switch f.Type {
		case model.VulnTypeSecrets, model.VulnTypeSQLInjection, model.VulnTypeXSS:
			keysByType[f.Type] = append(keysByType[f.Type], f.Key)
		}
	}

	var recs []model.Recommendation

	if keys := keysByType[model.VulnTypeSecrets]; len(keys) > 0 {
		rec := model.NewRecommendation()
		rec.Key = uuid.NewString()
		rec.Severity = model.SeverityCritical
		rec.Category = model.CategorySecretsManagement
		rec.Title = "Remove hardcoded secrets and rotate the exposed credentials"
		rec.Description = fmt.Sprintf("%s found in source. Anything committed must be treated as compromised.",
			countNoun(len(keys), "hardcoded secret", "hardcoded secrets"))
		rec.Steps = []string{
			"Rotate every credential that appeared in source",
			"Move secrets to environment variables or a secrets manager",
			"Purge the leaked values from version control history",
			"Add a pre-commit secret scan to block reintroduction",
		}
		rec.RelatedVulnKeys = keys
		rec.EstimatedEffort = "2-4 hours"
		rec.Priority = 10
		recs = append(recs, *rec)
	}

	if keys := keysByType[model.VulnTypeSQLInjection]; len(keys) > 0 {
		rec := model.NewRecommendation()
		rec.Key = uuid.NewString()
		rec.Severity = model.SeverityHigh
		rec.Category = model.CategorySQLInjection
		rec.Title = "Parameterize database queries"
		rec.Description = fmt.Sprintf("%s built from string concatenation or interpolation.",
			countNoun(len(keys), "SQL query is", "SQL queries are"))
		rec.Steps = []string{
			"Replace concatenated SQL with parameterized queries or an ORM",
			"Validate and constrain user input at the handler boundary",
			"Add integration tests covering the rewritten queries",
		}
		rec.RelatedVulnKeys = keys
		rec.EstimatedEffort = "4-8 hours"
		rec.Priority = 9
		recs = append(recs, *rec)
	}

	if keys := keysByType[model.VulnTypeXSS]; len(keys) > 0 {
		rec := model.NewRecommendation()
		rec.Key = uuid.NewString()
		rec.Severity = model.SeverityHigh
		rec.Category = model.CategoryXSSPrevention
		rec.Title = "Sanitize HTML rendering paths"
		rec.Description = fmt.Sprintf("%s render unescaped markup or evaluate dynamic code.",
			countNoun(len(keys), "code location", "code locations"))
		rec.Steps = []string{
			"Replace raw HTML sinks with text rendering where possible",
			"Sanitize unavoidable HTML with a vetted library before rendering",
			"Remove eval and Function constructor usage",
		}
		rec.RelatedVulnKeys = keys
		rec.EstimatedEffort = "2-4 hours"
		rec.Priority = 8
		recs = append(recs, *rec)
	}

	return recs
}

// riskHygieneRecs emits at most one recommendation per hygiene condition,
// listing every offending package, rather than one per package.
func riskHygieneRecs(risks []model.DependencyRisk) []model.Recommendation {
	var deprecated []string
	var suspicious []string
	for _, r := range risks {
		if r.IsDeprecated {
			deprecated = append(deprecated, r.PackageName)
		}
		if r.SuspiciousScore > 70 {
			suspicious = append(suspicious, fmt.Sprintf("%s (%d/100)", r.PackageName, r.SuspiciousScore))
		}
	}

	var recs []model.Recommendation

	if len(suspicious) > 0 {
		rec := model.NewRecommendation()
		rec.Key = uuid.NewString()
		rec.Severity = model.SeverityHigh
		rec.Category = model.CategorySupplyChain
		rec.Title = "Audit packages with suspicious names"
		rec.Description = fmt.Sprintf("%s scored above 70 on supply-chain heuristics and may be typosquats: %s.",
			countNoun(len(suspicious), "package", "packages"), strings.Join(suspicious, ", "))
		rec.Steps = []string{
			"Verify each package name against the intended upstream project",
			"Inspect the published source and maintainer history",
			"Pin or replace any package whose provenance cannot be confirmed",
		}
		rec.EstimatedEffort = "2-4 hours"
		rec.Priority = 7
		recs = append(recs, *rec)
	}

	if len(deprecated) > 0 {
		rec := model.NewRecommendation()
		rec.Key = uuid.NewString()
		rec.Severity = model.SeverityMedium
		rec.Category = model.CategoryDependencyHygiene
		rec.Title = "Replace deprecated dependencies"
		rec.Description = fmt.Sprintf("%s no longer maintained and will not receive security fixes: %s.",
			countNoun(len(deprecated), "package is", "packages are"), strings.Join(deprecated, ", "))
		rec.Steps = []string{
			"Identify maintained replacements",
			"Migrate usages package by package",
			"Remove the deprecated packages from the manifest",
		}
		rec.EstimatedEffort = "1-2 days"
		rec.Priority = 5
		recs = append(recs, *rec)
	}

	return recs
}

func countNoun(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
