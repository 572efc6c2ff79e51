// Package nanoconfig loads the YAML project configuration the CLI
// reads before running sync/diff/generate, per spec.md §6. Grounded in
// vippsas-sqlcode's cli/cmd/config.go, which reads a project-root YAML
// file via gopkg.in/yaml.v3 into a small tagged struct; this package
// keeps that same "os.ReadFile + yaml.Unmarshal into a tagged struct"
// shape, generalized from sqlcode's single-purpose DatabaseConfig into
// the fuller dev/schema/migration/generate section set this engine's
// spec recognizes.
package nanoconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CacheDirName is the project-relative directory the migration driver
// and generator write their intermediate output under.
const CacheDirName = ".nanopg"

// Dev holds the development database connection this engine diffs
// against.
type Dev struct {
	ConnectionString string            `yaml:"connectionString"`
	Connection       map[string]string `yaml:"connection"`
}

// Schema selects which SQL source files are part of the managed
// schema.
type Schema struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// Migration configures the external migration planner's behavior.
type Migration struct {
	AllowHazards []string `yaml:"allowHazards"`
	// Planner is the external schema-diff binary invoked against the
	// schema-output directory, per spec.md §6. Defaults to "pg-schema-diff".
	Planner string `yaml:"planner"`
}

// Generate configures the binding generator.
type Generate struct {
	OutFile                    string   `yaml:"outFile"`
	FieldCase                  string   `yaml:"fieldCase"`
	PluginSqlDir               string   `yaml:"pluginSqlDir"`
	PreferredExtension         string   `yaml:"preferredExtension"`
	ExactOptionalPropertyTypes bool     `yaml:"exactOptionalPropertyTypes"`
	NotNullCompositeFields     []string `yaml:"notNullCompositeFields"`
	ApplyFunctionPatterns      []string `yaml:"applyFunctionPatterns"`
	PostGenerateScript         string   `yaml:"postGenerateScript"`
}

// Config is the top-level shape of a project's nanopg.yaml.
type Config struct {
	Dev       Dev       `yaml:"dev"`
	Schema    Schema    `yaml:"schema"`
	Migration Migration `yaml:"migration"`
	Generate  Generate  `yaml:"generate"`

	// root is the directory the config file was loaded from, used to
	// resolve every relative path the config names (schema globs,
	// generate.outFile, the cache directory).
	root string
}

// defaultIncludes matches spec.md §6's "default include **/*.pgsql".
var defaultIncludes = []string{"**/*.pgsql"}

// Load reads and parses the project config at path, defaulting
// Schema.Include when the file leaves it empty.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("nanoconfig: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("nanoconfig: parse %s: %w", path, err)
	}
	if len(cfg.Schema.Include) == 0 {
		cfg.Schema.Include = defaultIncludes
	}
	if cfg.Migration.Planner == "" {
		cfg.Migration.Planner = defaultPlanner
	}
	cfg.root = filepath.Dir(path)
	return &cfg, nil
}

// defaultPlanner names the external schema-diff binary used when a
// project doesn't override migration.planner.
const defaultPlanner = "pg-schema-diff"

// Root returns the directory the config was loaded from.
func (c *Config) Root() string { return c.root }

// CacheDir returns the <root>/.nanopg directory spec.md §6 describes,
// under which the migration driver's schema/ directory and pre-plan.sql
// live.
func (c *Config) CacheDir() string {
	return filepath.Join(c.root, CacheDirName)
}

// SchemaOutputDir returns <cacheDir>/schema, consumed by the external
// migration planner.
func (c *Config) SchemaOutputDir() string {
	return filepath.Join(c.CacheDir(), "schema")
}

// ResolvedOutFile returns Generate.OutFile resolved against root.
func (c *Config) ResolvedOutFile() string {
	if filepath.IsAbs(c.Generate.OutFile) {
		return c.Generate.OutFile
	}
	return filepath.Join(c.root, c.Generate.OutFile)
}
