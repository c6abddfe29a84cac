package scanner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/launchforge/secscan/model"
	"github.com/launchforge/secscan/util"
)

// manifestNames are the package manifests the readers understand, checked in
// this order within each directory.
var manifestNames = []string{"package.json", "requirements.txt", "Gemfile", "composer.json"}

// parseManifests discovers package manifests at the scan root and one
// directory level below it (monorepo packages) and returns every declared
// dependency. A malformed or unreadable manifest is logged and skipped;
// an unreadable root is fatal.
func parseManifests(root string) ([]model.DeclaredDependency, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading scan root %s: %w", root, err)
	}

	dirs := []string{""}
	for _, entry := range entries {
		if entry.IsDir() && !skipDirs[entry.Name()] {
			dirs = append(dirs, entry.Name())
		}
	}

	var deps []model.DeclaredDependency
	for _, dir := range dirs {
		for _, name := range manifestNames {
			rel := filepath.Join(dir, name)
			full := filepath.Join(root, rel)
			if !util.FileExists(full) {
				continue
			}

			parsed, perr := parseManifest(full, filepath.ToSlash(rel))
			if perr != nil {
				logger.Warn("skipping manifest", zap.String("path", rel), zap.Error(perr))
				continue
			}
			deps = append(deps, parsed...)
		}
	}

	return deps, nil
}

func parseManifest(path, rel string) ([]model.DeclaredDependency, error) {
	switch filepath.Base(path) {
	case "package.json":
		return parsePackageJSON(path, rel)
	case "requirements.txt":
		return parseRequirementsTxt(path, rel)
	case "Gemfile":
		return parseGemfile(path, rel)
	case "composer.json":
		return parseComposerJSON(path, rel)
	default:
		return nil, fmt.Errorf("no reader for %s", rel)
	}
}

func parsePackageJSON(path, rel string) ([]model.DeclaredDependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var manifest struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", rel, err)
	}

	deps := declaredFromMap(manifest.Dependencies, model.ManagerNpm, rel)
	deps = append(deps, declaredFromMap(manifest.DevDependencies, model.ManagerNpm, rel)...)
	return deps, nil
}

func parseRequirementsTxt(path, rel string) ([]model.DeclaredDependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var deps []model.DeclaredDependency
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		// Drop environment markers: "flask==2.0; python_version < '3.10'"
		if idx := strings.Index(line, ";"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}

		name, spec := splitRequirement(line)
		if name == "" {
			continue
		}
		deps = append(deps, newDeclared(name, spec, model.ManagerPip, rel))
	}

	return deps, nil
}

// splitRequirement splits a pip requirement on its first comparison operator.
// "django==3.2.1" -> ("django", "3.2.1"); extras are stripped from the name.
func splitRequirement(line string) (string, string) {
	operators := []string{"==", ">=", "<=", "~=", "!=", ">", "<"}

	idx, opLen := len(line), 0
	for _, op := range operators {
		if i := strings.Index(line, op); i >= 0 && i < idx {
			idx, opLen = i, len(op)
		}
	}

	name := strings.TrimSpace(line[:idx])
	if bracket := strings.Index(name, "["); bracket >= 0 {
		name = name[:bracket]
	}
	if idx == len(line) {
		return name, ""
	}
	return name, strings.TrimSpace(line[idx+opLen:])
}

// gemfileLine matches: gem 'name' or gem "name", "~> 1.2" (first constraint only)
var gemfileLine = regexp.MustCompile(`^\s*gem\s+['"]([^'"]+)['"](?:\s*,\s*['"]([^'"]+)['"])?`)

func parseGemfile(path, rel string) ([]model.DeclaredDependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var deps []model.DeclaredDependency
	for _, line := range strings.Split(string(data), "\n") {
		match := gemfileLine.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		deps = append(deps, newDeclared(match[1], match[2], model.ManagerBundler, rel))
	}

	return deps, nil
}

func parseComposerJSON(path, rel string) ([]model.DeclaredDependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var manifest struct {
		Require    map[string]string `json:"require"`
		RequireDev map[string]string `json:"require-dev"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", rel, err)
	}

	deps := declaredFromMap(filterPlatform(manifest.Require), model.ManagerComposer, rel)
	deps = append(deps, declaredFromMap(filterPlatform(manifest.RequireDev), model.ManagerComposer, rel)...)
	return deps, nil
}

// filterPlatform drops composer platform requirements (php itself and
// extensions), which are not installable packages.
func filterPlatform(require map[string]string) map[string]string {
	filtered := make(map[string]string, len(require))
	for name, spec := range require {
		if name == "php" || strings.HasPrefix(name, "ext-") {
			continue
		}
		filtered[name] = spec
	}
	return filtered
}

// declaredFromMap converts a manifest dependency map into declarations,
// sorted by name so reruns produce identical output.
func declaredFromMap(m map[string]string, manager model.PackageManager, rel string) []model.DeclaredDependency {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	deps := make([]model.DeclaredDependency, 0, len(names))
	for _, name := range names {
		deps = append(deps, newDeclared(name, m[name], manager, rel))
	}
	return deps
}

func newDeclared(name, spec string, manager model.PackageManager, rel string) model.DeclaredDependency {
	return model.DeclaredDependency{
		Name:         name,
		VersionSpec:  spec,
		Manager:      manager,
		Direct:       true,
		Depth:        0,
		ManifestPath: rel,
		Purl:         util.MakeBasePurl(manager.PurlType(), name),
	}
}
