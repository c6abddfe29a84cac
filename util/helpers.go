// Package util provides utility functions shared across the secscan service and CLI.
package util

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/package-url/packageurl-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// GetEnvDefault is a convenience function for handling env vars
func GetEnvDefault(key, defVal string) string {
	val, ex := os.LookupEnv(key) // get the env var
	if !ex {                     // not found return default
		return defVal
	}
	return val // return value for env var
}

// InitLogger sets up the zap logger for packages that do not touch the database
func InitLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	logger, _ := config.Build()
	return logger
}

// IsEmpty checks if a string is empty or contains only whitespace
func IsEmpty(s string) bool {
	return len(strings.TrimSpace(s)) == 0
}

// IsNotEmpty checks if a string is not empty
func IsNotEmpty(s string) bool {
	return !IsEmpty(s)
}

// FileExists checks if a file exists
func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}

// CleanName removes periods and dashes from the name, replacing with underscores
func CleanName(name string) string {
	if name == "" {
		return name
	}
	name = strings.ReplaceAll(name, ".", "_")
	name = strings.ReplaceAll(name, "-", "_")
	return name
}

// Contains checks if a string slice contains an item
func Contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// GetStringOrDefault returns value or default if empty
func GetStringOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

// RunCmd executes a shell command in dir and returns the trimmed output.
// Git commands short-circuit when dir is not a repository.
func RunCmd(dir, cmd string) string {
	if strings.Contains(cmd, "git") {
		if _, err := os.Stat(filepath.Join(dir, ".git")); os.IsNotExist(err) {
			return ""
		}
	}

	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return ""
	}

	var cmdExec *exec.Cmd
	// For complex shell commands, use sh -c
	if strings.Contains(cmd, "|") || strings.Contains(cmd, "&&") || strings.Contains(cmd, "||") || strings.Contains(cmd, ";") {
		cmdExec = exec.Command("sh", "-c", cmd)
	} else {
		cmdExec = exec.Command(parts[0], parts[1:]...)
	}
	cmdExec.Dir = dir

	output, err := cmdExec.Output()
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(output))
}

// MakeBasePurl builds a canonical base PURL (no version, qualifiers, or subpath)
// for a package name within an ecosystem. Scoped npm names keep their scope as
// the namespace component.
// Example: ("npm", "@babel/core") -> pkg:npm/%40babel/core
func MakeBasePurl(purlType, name string) string {
	namespace := ""
	if idx := strings.Index(name, "/"); idx > 0 {
		namespace = name[:idx]
		name = name[idx+1:]
	}

	base := packageurl.PackageURL{
		Type:      purlType,
		Namespace: namespace,
		Name:      name,
		// Version, Qualifiers and Subpath are intentionally omitted
	}

	return strings.ToLower(base.ToString())
}
