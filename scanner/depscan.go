package scanner

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/launchforge/secscan/intel"
	"github.com/launchforge/secscan/model"
)

// owaspVulnerableComponents tags every dependency finding.
const owaspVulnerableComponents = "A06:2021"

// matchDependencies checks each declared dependency against the advisory
// catalog and returns one finding per advisory whose range contains the
// declared version. Versions that cannot be coerced to semver never match.
func matchDependencies(catalog *intel.Catalog, deps []model.DeclaredDependency) []model.Vulnerability {
	var findings []model.Vulnerability

	for _, dep := range deps {
		advisories := catalog.AdvisoriesFor(dep.Manager, dep.Name)
		if len(advisories) == 0 {
			continue
		}

		version, err := semver.NewVersion(sanitizeVersion(dep.VersionSpec))
		if err != nil {
			logger.Debug("declared version not comparable",
				zap.String("package", dep.Name), zap.String("spec", dep.VersionSpec))
			continue
		}

		for _, adv := range advisories {
			constraint, cerr := semver.NewConstraint(adv.Range)
			if cerr != nil || !constraint.Check(version) {
				continue
			}

			vuln := model.NewVulnerability()
			vuln.Type = model.VulnTypeDependency
			vuln.Severity = adv.ParsedSeverity()
			vuln.Title = adv.Title
			vuln.Description = adv.Description
			vuln.FilePath = dep.ManifestPath
			vuln.CveID = adv.CveID
			vuln.CvssScore = adv.CvssScore
			vuln.PackageName = dep.Name
			vuln.PackageVersion = version.Original()
			vuln.FixedVersion = adv.FixedVersion
			vuln.OwaspCategory = owaspVulnerableComponents
			vuln.CweID = adv.CweID
			findings = append(findings, *vuln)
		}
	}

	return findings
}

// sanitizeVersion strips range operators from a declared version spec so the
// remainder can parse as a concrete version: "^4.17.15" -> "4.17.15",
// "~> 6.1.4" -> "6.1.4". Only the first constraint of a comma or pipe joined
// spec is considered.
func sanitizeVersion(spec string) string {
	spec = strings.TrimSpace(spec)
	if idx := strings.IndexAny(spec, ",|"); idx >= 0 {
		spec = spec[:idx]
	}
	spec = strings.TrimLeft(spec, "^~><=! ")
	spec = strings.TrimPrefix(spec, "v")
	return strings.TrimSpace(spec)
}
