package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangang/cdashconf/internal/config"
)

func TestCommands_UniqueNames(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range commands {
		if seen[c.name] {
			t.Errorf("duplicate command %q", c.name)
		}
		seen[c.name] = true
		if c.run == nil || c.usage == "" {
			t.Errorf("command %q is incomplete", c.name)
		}
	}
}

func TestApp_DefaultPath(t *testing.T) {
	if got := (&app{}).path(); got != "config.yaml" {
		t.Errorf("path() = %q, expected config.yaml", got)
	}
	if got := (&app{configPath: "/etc/cdash.yaml"}).path(); got != "/etc/cdash.yaml" {
		t.Errorf("path() = %q, expected /etc/cdash.yaml", got)
	}
}

func TestRunInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	a := &app{configPath: path}

	if err := runInit(a, nil); err != nil {
		t.Fatalf("runInit() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "root_dir") {
		t.Errorf("initial configuration pins root_dir:\n%s", data)
	}

	if err := runInit(a, nil); err == nil {
		t.Error("runInit() expected an error for an existing file")
	}
	if err := runInit(a, []string{"-force"}); err != nil {
		t.Errorf("runInit(-force) error = %v", err)
	}
}

func TestRunPaths(t *testing.T) {
	root := t.TempDir()
	t.Setenv(config.EnvRootDir, root)

	a := &app{configPath: filepath.Join(root, "missing.yaml")}
	if err := runPaths(a, nil); err != nil {
		t.Fatalf("runPaths() error = %v", err)
	}
	for _, dir := range []string{"backup", "upload"} {
		if info, err := os.Stat(filepath.Join(root, dir)); err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", dir, err)
		}
	}
}

func TestRunImportPHP(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvRootDir, dir)
	t.Setenv(config.EnvDBType, "")

	php := filepath.Join(dir, "config.local.php")
	src := "<?php\n$CDASH_DB_TYPE = 'mysql';\n$CDASH_USE_LDAP = '1';\n"
	if err := os.WriteFile(php, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "config.yaml")
	if err := runImportPHP(&app{configPath: path}, []string{php}); err != nil {
		t.Fatalf("runImportPHP() error = %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.Type != "mysql" || !cfg.LDAP.Enabled {
		t.Errorf("imported configuration = type %q, ldap %v", cfg.Database.Type, cfg.LDAP.Enabled)
	}
}

func TestRunImportPHP_IgnoresEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvRootDir, "/opt/from-env")
	t.Setenv(config.EnvDBPassword, "env-secret")
	t.Setenv(config.EnvLinkedDBHost, "172.17.0.9")
	t.Setenv(config.EnvRedisURL, "redis://:redis-secret@cache:6379/1")

	php := filepath.Join(dir, "config.local.php")
	if err := os.WriteFile(php, []byte("<?php\n$CDASH_DB_NAME = 'dashboard';\n"), 0644); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "config.yaml")
	if err := runImportPHP(&app{configPath: path}, []string{php}); err != nil {
		t.Fatalf("runImportPHP() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, leaked := range []string{"root_dir", "/opt/from-env", "env-secret", "172.17.0.9", "redis-secret", "cache:6379"} {
		if strings.Contains(string(data), leaked) {
			t.Errorf("saved configuration contains %q:\n%s", leaked, data)
		}
	}
	if !strings.Contains(string(data), "dashboard") {
		t.Errorf("saved configuration lacks the imported database name:\n%s", data)
	}
}

func TestRunImportPHP_Usage(t *testing.T) {
	if err := runImportPHP(&app{}, nil); err == nil {
		t.Error("runImportPHP() expected a usage error without a file")
	}
}

func TestRunCleanup(t *testing.T) {
	root := t.TempDir()
	t.Setenv(config.EnvRootDir, root)

	a := &app{configPath: filepath.Join(root, "missing.yaml")}
	if err := runCleanup(a, nil); err != nil {
		t.Errorf("runCleanup() error = %v", err)
	}
}
