package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hyakvnc/hyakvnc/errors"
	"github.com/hyakvnc/hyakvnc/pkg/paths"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads and parses a hyakvnc configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	return LoadFromBytes(data)
}

// LoadDefault finds and loads the configuration from the usual locations.
// A missing config file is reported as CONFIG_NOT_FOUND; callers that can
// run on defaults alone treat that case as an empty config.
func LoadDefault() (*Config, error) {
	path, err := FindConfigFile()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// LoadOrDefaults is LoadDefault but a missing file yields the built-in
// defaults instead of an error.
func LoadOrDefaults() (*Config, error) {
	cfg, err := LoadDefault()
	if err != nil {
		if errors.Is(err, errors.ErrCodeConfigNotFound) {
			cfg = &Config{}
			cfg.SetDefaults()
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// LoadFromBytes parses configuration from a byte array
func LoadFromBytes(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
	}

	// Set defaults before schema validation so required fields filled by
	// defaults do not trip the schema
	config.SetDefaults()

	if err := validateSchema(&config); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigValidation, "schema validation failed")
	}

	if err := config.Validate(); err != nil {
		return nil, err // Already returns structured error from validation
	}

	return &config, nil
}

// FindConfigFile searches for hyakvnc configuration files with the following
// precedence:
// 1. HYAKVNC_CONFIG environment variable
// 2. hyakvnc.yml / .hyakvnc.yml in the current directory
// 3. XDG config directory (~/.config/hyakvnc/hyakvnc.yml)
func FindConfigFile() (string, error) {
	if path := os.Getenv("HYAKVNC_CONFIG"); path != "" {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
		return "", errors.ConfigNotFound(path)
	}

	configNames := []string{
		"hyakvnc.yml",
		"hyakvnc.yaml",
		".hyakvnc.yml",
		".hyakvnc.yaml",
	}

	if cwd, err := os.Getwd(); err == nil {
		for _, name := range configNames {
			path := filepath.Join(cwd, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
	}

	for _, name := range []string{"hyakvnc.yml", "hyakvnc.yaml"} {
		path := filepath.Join(paths.ConfigDir(), name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}

	return "", errors.ConfigNotFound(filepath.Join(paths.ConfigDir(), "hyakvnc.yml"))
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		// Handle default values: ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}
