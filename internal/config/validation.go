package config

import (
	"fmt"
	"net"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/conneroisu/xtpl/internal/compiler"
	"github.com/conneroisu/xtpl/internal/logging"
	"github.com/conneroisu/xtpl/internal/validation"
)

// ValidationError is a problem with one configuration field.
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors.
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted list of all validation issues.
func (vr *ValidationResult) String() string {
	var builder strings.Builder
	write := func(title string, issues []ValidationError) {
		if len(issues) == 0 {
			return
		}
		builder.WriteString(title + ":\n")
		for _, issue := range issues {
			builder.WriteString(fmt.Sprintf("  - %s: %s\n", issue.Field, issue.Message))
			for _, suggestion := range issue.Suggestions {
				builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
			}
		}
	}
	write("errors", vr.Errors)
	write("warnings", vr.Warnings)
	return builder.String()
}

func (vr *ValidationResult) fail(field string, value interface{}, message string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Value: value, Message: message, Suggestions: suggestions})
}

func (vr *ValidationResult) warn(field string, value interface{}, message string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Value: value, Message: message, Suggestions: suggestions})
}

var (
	extensionRegex = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	nameRegex      = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	hostnameRegex  = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)
)

// Validate checks every section of config.
func Validate(config *Config) *ValidationResult {
	result := &ValidationResult{}

	validateEngine(&config.Engine, result)
	validateSource(&config.Source, result)
	validateBuild(&config.Build, result)
	validateServer(&config.Server, result)
	validateDevelopment(&config.Development, result)
	validateLog(&config.Log, result)

	return result
}

func validateEngine(config *EngineConfig, result *ValidationResult) {
	if config.Extension != "" && !extensionRegex.MatchString(config.Extension) {
		result.fail("engine.extension", config.Extension, "extension must be alphanumeric without a leading dot",
			"Use 'html' rather than '.html'")
	}
	for field, value := range map[string]string{
		"engine.default_partial": config.DefaultPartial,
		"engine.super_alias":     config.SuperAlias,
		"engine.module_id":       config.ModuleID,
	} {
		if !nameRegex.MatchString(value) {
			result.fail(field, value, "must be a non-empty name of letters, digits, '_', '.' or '-'")
		}
	}
	if _, err := compiler.Lookup(config.Compiler); err != nil {
		result.fail("engine.compiler", config.Compiler, err.Error(),
			"Available compilers: "+strings.Join(compiler.Names(), ", "))
	}
}

func validateSource(config *SourceConfig, result *ValidationResult) {
	if config.BaseURL != "" {
		if err := validation.ValidateURL(config.BaseURL); err != nil {
			result.fail("source.base_url", config.BaseURL, err.Error())
		}
		return
	}
	if err := validatePath(config.Root); err != nil {
		result.fail("source.root", config.Root, err.Error())
	}
}

func validateBuild(config *BuildConfig, result *ValidationResult) {
	if err := validatePath(config.OutputDir); err != nil {
		result.fail("build.output_dir", config.OutputDir, err.Error())
	}
	if config.Manifest != "" {
		if err := validatePath(config.Manifest); err != nil {
			result.fail("build.manifest", config.Manifest, err.Error())
		}
	}
	for _, pattern := range config.Patterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			result.fail("build.patterns", pattern, "malformed pattern")
		}
	}
	if config.Concurrency < 1 {
		result.fail("build.concurrency", config.Concurrency, "concurrency must be at least 1")
	} else if config.Concurrency > 64 {
		result.warn("build.concurrency", config.Concurrency, "very high concurrency",
			"Values above the number of CPUs rarely help")
	}
}

func validateServer(config *ServerConfig, result *ValidationResult) {
	// Port 0 lets the system assign one.
	if config.Port < 0 || config.Port > 65535 {
		result.fail("server.port", config.Port, fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			"Common development ports: 3000, 8080, 8000")
	} else if config.Port > 0 && config.Port < 1024 {
		result.warn("server.port", config.Port, "port below 1024 requires elevated privileges")
	}

	if config.Host != "" {
		if err := validateHostname(config.Host); err != nil {
			result.fail("server.host", config.Host, err.Error(),
				"Use 'localhost' for local development",
				"Use '0.0.0.0' to bind to all interfaces")
		} else if config.Host == "0.0.0.0" || config.Host == "::" {
			result.warn("server.host", config.Host, "preview server is reachable from other machines")
		}
	}

	for _, origin := range config.AllowedOrigins {
		if err := validation.ValidateOrigin(origin); err != nil {
			result.fail("server.allowed_origins", origin, err.Error(),
				"Origins look like https://app.example.com")
		} else if origin == "*" {
			result.warn("server.allowed_origins", origin, "wildcard origin disables WebSocket origin checks")
		}
	}
}

func validateDevelopment(config *DevelopmentConfig, result *ValidationResult) {
	if config.Debounce < 0 {
		result.fail("development.debounce", config.Debounce, "debounce must not be negative")
	}
}

func validateLog(config *LogConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		result.fail("log.level", config.Level, err.Error())
	}
	if config.Format != "text" && config.Format != "json" {
		result.fail("log.format", config.Format, "format must be text or json")
	}
}

// validatePath accepts relative paths that stay inside the working tree.
func validatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty path")
	}
	if filepath.IsAbs(path) {
		return nil
	}

	cleanPath := filepath.Clean(path)
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}
	return nil
}

func validateHostname(host string) error {
	if net.ParseIP(host) != nil || host == "localhost" {
		return nil
	}
	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid hostname format")
	}
	return nil
}
