package config

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every configuration validation failure
var ErrInvalid = errors.New("invalid configuration")

//go:embed schema/config.schema.json
var schemaFS embed.FS

var (
	configSchema *jsonschema.Schema
	compileOnce  sync.Once
	compileErr   error
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

// Load builds the configuration for a project: defaults, then the YAML file,
// then the .env file and NTR_* environment overrides.
// A missing default config file is not an error; a missing explicit one is.
func Load(projectPath, configFile string) (*Config, error) {
	cfg := New()
	if projectPath != "" {
		cfg.ProjectPath = projectPath
	}

	// .env file might not exist, that's okay - use environment variables
	_ = godotenv.Load(filepath.Join(cfg.ProjectPath, ".env"))

	explicit := configFile != ""
	if !explicit {
		configFile = DefaultConfigFile
	}
	if !filepath.IsAbs(configFile) {
		configFile = filepath.Join(cfg.ProjectPath, configFile)
	}

	data, err := os.ReadFile(configFile)
	switch {
	case err == nil:
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", configFile, err)
		}
		cfg.ConfigFile = configFile
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// defaults only
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse validates YAML data against the config schema and decodes it over cfg.
func Parse(data []byte, cfg *Config) error {
	if err := validateSchema(data); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// Validate checks the semantic constraints the schema can't express
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalid, c.Workers)
	}
	if c.Retries < 0 {
		return fmt.Errorf("%w: retries must not be negative, got %d", ErrInvalid, c.Retries)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative, got %d", ErrInvalid, c.Timeout)
	}
	if len(c.Reporter) == 0 {
		return fmt.Errorf("%w: at least one reporter is required", ErrInvalid)
	}
	for i, r := range c.Reporter {
		if r.Name == "" {
			return fmt.Errorf("%w: reporter #%d has no name", ErrInvalid, i+1)
		}
	}
	if c.History.Table != "" && !tableNamePattern.MatchString(c.History.Table) {
		return fmt.Errorf("%w: invalid history table name %q", ErrInvalid, c.History.Table)
	}
	return nil
}

// applyEnv applies NTR_* overrides from the environment
func (c *Config) applyEnv() error {
	ints := []struct {
		key string
		dst *int
	}{
		{"NTR_WORKERS", &c.Workers},
		{"NTR_RETRIES", &c.Retries},
		{"NTR_TIMEOUT", &c.Timeout},
	}
	for _, e := range ints {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalid, e.key, v)
		}
		*e.dst = n
	}

	if v := os.Getenv("NTR_ENGINE_COMMAND"); v != "" {
		c.Engine.Command = v
	}
	if v := os.Getenv("NTR_HISTORY_DSN"); v != "" {
		c.History.DSN = v
	}
	return nil
}

// compileSchema compiles the embedded schema once.
func compileSchema() error {
	compileOnce.Do(func() {
		data, err := schemaFS.ReadFile("schema/config.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("read config schema: %w", err)
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal config schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("config.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("add config schema resource: %w", err)
			return
		}
		configSchema, err = compiler.Compile("config.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile config schema: %w", err)
		}
	})
	return compileErr
}

func validateSchema(data []byte) error {
	if err := compileSchema(); err != nil {
		return err
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if raw == nil {
		return nil
	}

	// Round-trip through JSON so the validator sees JSON types only
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := configSchema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
