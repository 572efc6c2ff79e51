package nanoconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeProject(t *testing.T, yamlBody string, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nanopg.yaml"), []byte(yamlBody), 0o644))
	for rel, body := range files {
		full := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
	}
	return dir
}

func TestLoadDefaultsSchemaInclude(t *testing.T) {
	dir := writeProject(t, "dev:\n  connectionString: postgres://localhost/app\n", nil)
	cfg, err := Load(filepath.Join(dir, "nanopg.yaml"))
	require.NoError(t, err)
	require.Equal(t, defaultIncludes, cfg.Schema.Include)
	require.Equal(t, "postgres://localhost/app", cfg.Dev.ConnectionString)
}

func TestLoadDefaultsPlannerBinary(t *testing.T) {
	dir := writeProject(t, "dev:\n  connectionString: postgres://localhost/app\n", nil)
	cfg, err := Load(filepath.Join(dir, "nanopg.yaml"))
	require.NoError(t, err)
	require.Equal(t, "pg-schema-diff", cfg.Migration.Planner)
}

func TestResolveSchemaFilesAppliesExclude(t *testing.T) {
	dir := writeProject(t, "schema:\n  include:\n    - \"**/*.pgsql\"\n  exclude:\n    - \"vendor/**\"\n", map[string]string{
		"schema/users.pgsql":       "create table users();",
		"vendor/third_party.pgsql": "create table ignored();",
	})
	cfg, err := Load(filepath.Join(dir, "nanopg.yaml"))
	require.NoError(t, err)
	files, err := cfg.ResolveSchemaFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Contains(t, files[0], "users.pgsql")
}

func TestCacheDirAndSchemaOutputDir(t *testing.T) {
	dir := writeProject(t, "dev:\n  connectionString: postgres://localhost/app\n", nil)
	cfg, err := Load(filepath.Join(dir, "nanopg.yaml"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, ".nanopg"), cfg.CacheDir())
	require.Equal(t, filepath.Join(dir, ".nanopg", "schema"), cfg.SchemaOutputDir())
}

func TestResolvedOutFileJoinsRoot(t *testing.T) {
	dir := writeProject(t, "generate:\n  outFile: gen/bindings.go\n", nil)
	cfg, err := Load(filepath.Join(dir, "nanopg.yaml"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "gen", "bindings.go"), cfg.ResolvedOutFile())
}
