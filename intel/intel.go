// Package intel loads the threat intelligence catalog used by the scanners:
// known-vulnerability advisories, code pattern rules, and supply-chain
// reference lists. The catalog ships as embedded YAML artifacts and can be
// overridden per deployment from a directory, so the data versions
// independently of the engine.
package intel

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v2"

	"github.com/launchforge/secscan/model"
)

//go:embed data/advisories.yaml
var defaultAdvisories []byte

//go:embed data/rules.yaml
var defaultRules []byte

//go:embed data/supplychain.yaml
var defaultSupplyChain []byte

// Artifact file names looked up in an override directory.
const (
	AdvisoriesFile  = "advisories.yaml"
	RulesFile       = "rules.yaml"
	SupplyChainFile = "supplychain.yaml"
)

// Advisory is one known-vulnerability record for a package within an ecosystem
type Advisory struct {
	CveID        string  `yaml:"cve"`
	Title        string  `yaml:"title"`
	Description  string  `yaml:"description"`
	Severity     string  `yaml:"severity"`
	CvssScore    float64 `yaml:"cvss"`
	Range        string  `yaml:"range"` // single semver comparator, e.g. "<4.17.21"
	FixedVersion string  `yaml:"fixed"`
	CweID        string  `yaml:"cwe"`
}

// Rule is one compiled code pattern with its fixed classification
type Rule struct {
	ID            string
	Type          model.VulnType
	Severity      model.Severity
	Title         string
	Description   string
	OwaspCategory string
	CweID         string
	Pattern       *regexp.Regexp
}

// Catalog is the compiled threat intelligence consumed by the scan engine
type Catalog struct {
	Advisories      map[model.PackageManager]map[string][]Advisory
	Rules           []Rule
	PopularPackages []string
	Deprecated      map[string]bool
	GenericPatterns []*regexp.Regexp
	LicenseRisk     map[string]model.LicenseRisk // upper-cased SPDX id -> risk class
}

// categoryClass fixes the finding type, severity, and tagging per rule category
var categoryClass = map[string]struct {
	Type     model.VulnType
	Severity model.Severity
	Owasp    string
	Cwe      string
}{
	"SECRETS_EXPOSURE":         {model.VulnTypeSecrets, model.SeverityCritical, "A07:2021", "CWE-798"},
	"SQL_INJECTION":            {model.VulnTypeSQLInjection, model.SeverityHigh, "A03:2021", "CWE-89"},
	"XSS":                      {model.VulnTypeXSS, model.SeverityHigh, "A03:2021", "CWE-79"},
	"CRYPTOGRAPHY":             {model.VulnTypeCryptography, model.SeverityMedium, "A02:2021", "CWE-327"},
	"PATH_TRAVERSAL":           {model.VulnTypePathTraversal, model.SeverityHigh, "A01:2021", "CWE-22"},
	"INSECURE_DESERIALIZATION": {model.VulnTypeDeserialization, model.SeverityMedium, "A08:2021", "CWE-502"},
}

type rawRule struct {
	ID          string `yaml:"id"`
	Category    string `yaml:"category"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Pattern     string `yaml:"pattern"`
	Cwe         string `yaml:"cwe"`
}

type ruleFile struct {
	Rules []rawRule `yaml:"rules"`
}

type supplyChainFile struct {
	PopularPackages     []string `yaml:"popular_packages"`
	DeprecatedPackages  []string `yaml:"deprecated_packages"`
	GenericNamePatterns []string `yaml:"generic_name_patterns"`
	LicenseRisk         struct {
		High   []string `yaml:"high"`
		Medium []string `yaml:"medium"`
	} `yaml:"license_risk"`
}

// Default compiles the embedded catalog artifacts
func Default() (*Catalog, error) {
	return build(defaultAdvisories, defaultRules, defaultSupplyChain)
}

// Load compiles the catalog from dir, falling back to the embedded artifact
// for any file the directory does not provide. An empty dir loads the
// embedded defaults.
func Load(dir string) (*Catalog, error) {
	if dir == "" {
		return Default()
	}

	adv, err := readOrDefault(filepath.Join(dir, AdvisoriesFile), defaultAdvisories)
	if err != nil {
		return nil, err
	}
	rules, err := readOrDefault(filepath.Join(dir, RulesFile), defaultRules)
	if err != nil {
		return nil, err
	}
	sc, err := readOrDefault(filepath.Join(dir, SupplyChainFile), defaultSupplyChain)
	if err != nil {
		return nil, err
	}

	return build(adv, rules, sc)
}

func readOrDefault(path string, fallback []byte) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fallback, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading catalog artifact %s: %w", path, err)
	}
	return data, nil
}

func build(advData, ruleData, scData []byte) (*Catalog, error) {
	catalog := &Catalog{
		Advisories:  make(map[model.PackageManager]map[string][]Advisory),
		Deprecated:  make(map[string]bool),
		LicenseRisk: make(map[string]model.LicenseRisk),
	}

	if err := catalog.loadAdvisories(advData); err != nil {
		return nil, err
	}
	if err := catalog.loadRules(ruleData); err != nil {
		return nil, err
	}
	if err := catalog.loadSupplyChain(scData); err != nil {
		return nil, err
	}

	return catalog, nil
}

var knownManagers = map[string]model.PackageManager{
	"npm":      model.ManagerNpm,
	"pip":      model.ManagerPip,
	"bundler":  model.ManagerBundler,
	"composer": model.ManagerComposer,
}

func (c *Catalog) loadAdvisories(data []byte) error {
	var raw map[string]map[string][]Advisory
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing advisories: %w", err)
	}

	for managerName, packages := range raw {
		manager, ok := knownManagers[managerName]
		if !ok {
			return fmt.Errorf("advisories: unknown package manager %q", managerName)
		}

		byPackage := make(map[string][]Advisory, len(packages))
		for pkg, advisories := range packages {
			for _, adv := range advisories {
				if _, err := parseSeverity(adv.Severity); err != nil {
					return fmt.Errorf("advisory %s for %s/%s: %w", adv.CveID, managerName, pkg, err)
				}
				if adv.Range == "" {
					return fmt.Errorf("advisory %s for %s/%s: missing range", adv.CveID, managerName, pkg)
				}
				if _, err := semver.NewConstraint(adv.Range); err != nil {
					return fmt.Errorf("advisory %s for %s/%s: bad range %q: %w", adv.CveID, managerName, pkg, adv.Range, err)
				}
			}
			byPackage[strings.ToLower(pkg)] = advisories
		}
		c.Advisories[manager] = byPackage
	}

	return nil
}

func (c *Catalog) loadRules(data []byte) error {
	var raw ruleFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing rules: %w", err)
	}

	seen := make(map[string]bool, len(raw.Rules))
	for _, r := range raw.Rules {
		if r.ID == "" {
			return fmt.Errorf("rules: rule with empty id")
		}
		if seen[r.ID] {
			return fmt.Errorf("rules: duplicate rule id %q", r.ID)
		}
		seen[r.ID] = true

		class, ok := categoryClass[r.Category]
		if !ok {
			return fmt.Errorf("rule %s: unknown category %q", r.ID, r.Category)
		}

		pattern, err := regexp.Compile(r.Pattern)
		if err != nil {
			return fmt.Errorf("rule %s: bad pattern: %w", r.ID, err)
		}

		cwe := class.Cwe
		if r.Cwe != "" {
			cwe = r.Cwe
		}

		c.Rules = append(c.Rules, Rule{
			ID:            r.ID,
			Type:          class.Type,
			Severity:      class.Severity,
			Title:         r.Title,
			Description:   r.Description,
			OwaspCategory: class.Owasp,
			CweID:         cwe,
			Pattern:       pattern,
		})
	}

	if len(c.Rules) == 0 {
		return fmt.Errorf("rules: catalog contains no rules")
	}

	return nil
}

func (c *Catalog) loadSupplyChain(data []byte) error {
	var raw supplyChainFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing supply chain lists: %w", err)
	}

	c.PopularPackages = raw.PopularPackages
	for _, name := range raw.DeprecatedPackages {
		c.Deprecated[strings.ToLower(name)] = true
	}

	for _, p := range raw.GenericNamePatterns {
		compiled, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("supply chain: bad generic name pattern %q: %w", p, err)
		}
		c.GenericPatterns = append(c.GenericPatterns, compiled)
	}

	for _, id := range raw.LicenseRisk.High {
		c.LicenseRisk[strings.ToUpper(id)] = model.LicenseRiskHigh
	}
	for _, id := range raw.LicenseRisk.Medium {
		c.LicenseRisk[strings.ToUpper(id)] = model.LicenseRiskMedium
	}

	return nil
}

// AdvisoriesFor returns the advisories recorded for a package, or nil when
// the package is not in the catalog. Lookup is case-insensitive.
func (c *Catalog) AdvisoriesFor(manager model.PackageManager, name string) []Advisory {
	byPackage, ok := c.Advisories[manager]
	if !ok {
		return nil
	}
	return byPackage[strings.ToLower(name)]
}

// IsDeprecated reports whether a package name is on the deprecation list.
// The list is manager-agnostic.
func (c *Catalog) IsDeprecated(name string) bool {
	return c.Deprecated[strings.ToLower(name)]
}

// ClassifyLicense maps an SPDX identifier to its risk class. Unknown or
// empty identifiers classify as NONE.
func (c *Catalog) ClassifyLicense(license string) model.LicenseRisk {
	if license == "" {
		return model.LicenseRiskNone
	}
	if risk, ok := c.LicenseRisk[strings.ToUpper(license)]; ok {
		return risk
	}
	return model.LicenseRiskLow
}

func parseSeverity(s string) (model.Severity, error) {
	switch model.Severity(strings.ToUpper(s)) {
	case model.SeverityCritical:
		return model.SeverityCritical, nil
	case model.SeverityHigh:
		return model.SeverityHigh, nil
	case model.SeverityMedium:
		return model.SeverityMedium, nil
	case model.SeverityLow:
		return model.SeverityLow, nil
	default:
		return "", fmt.Errorf("invalid severity %q", s)
	}
}

// ParsedSeverity returns the advisory severity as a model value. Severities
// are validated at load time, so this never fails on a built catalog.
func (a Advisory) ParsedSeverity() model.Severity {
	sev, err := parseSeverity(a.Severity)
	if err != nil {
		return model.SeverityMedium
	}
	return sev
}
