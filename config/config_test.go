package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestFileGetSetDelete(t *testing.T) {
	dir := t.TempDir()
	f := NewConfigFileWithDir(filepath.Join(dir, "sub"), "config.yaml")

	// Test 1 - missing file behaves as empty.
	var val string
	err := f.Get("log-level", &val)
	if !errors.As(err, &KeyNotFoundError{}) {
		t.Fatalf("test 1: expected KeyNotFoundError; got %v", err)
	}
	// Test 2 - Set creates the dir and file, Get decodes the value.
	if err = f.Set("log-level", "debug"); err != nil {
		t.Fatalf("test 2: unexpected error: %v", err)
	}
	if _, err = os.Stat(f.FullPath); err != nil {
		t.Fatalf("test 2: expected config file to exist: %v", err)
	}
	f2 := NewConfigFileWithDir(filepath.Join(dir, "sub"), "config.yaml")
	if err = f2.Get("log-level", &val); err != nil || val != "debug" {
		t.Fatalf("test 2: expected debug; got %q, %v", val, err)
	}
	// Test 3 - non-string values are weakly decoded into strings.
	if err = f2.Set("port", 8080); err != nil {
		t.Fatal(err)
	}
	if err = f2.Get("port", &val); err != nil || val != "8080" {
		t.Fatalf("test 3: expected 8080; got %q, %v", val, err)
	}
	keys, err := f2.GetAllKeys()
	if err != nil || strings.Join(keys, ",") != "log-level,port" {
		t.Fatalf("test 3: unexpected keys %v, %v", keys, err)
	}
	// Test 4 - Delete removes keys and errors on unknown keys.
	if err = f2.Delete("port"); err != nil {
		t.Fatal(err)
	}
	if err = f2.Delete("port"); !errors.As(err, &KeyNotFoundError{}) {
		t.Fatalf("test 4: expected KeyNotFoundError; got %v", err)
	}
	// Test 5 - out must be a pointer.
	if err = f2.Get("log-level", val); err == nil {
		t.Fatal("test 5: expected error for non-pointer out")
	}
}

func TestLoadWarehouseConfig(t *testing.T) {
	env := map[string]string{
		"SNOWFLAKE_ACCOUNT":        "acme.eu-west-1",
		"SNOWFLAKE_LOAD_DATABASE":  "RAW",
		"SNOWFLAKE_LOAD_WAREHOUSE": "LOADING",
		"SNOWFLAKE_LOAD_USER":      "loader",
		"SNOWFLAKE_LOAD_PASSWORD":  "s3cret",
		"PATH":                     "/usr/bin",
	}
	// Test 1 - all values are decoded and the role and schema applied.
	cfg, err := LoadLoaderConfig(env)
	if err != nil {
		t.Fatalf("test 1: unexpected error: %v", err)
	}
	if cfg.Account != "acme.eu-west-1" || cfg.Database != "RAW" || cfg.Warehouse != "LOADING" ||
		cfg.User != "loader" || cfg.Password != "s3cret" || cfg.Role != "LOADER" || cfg.Schema != "analytics" {
		t.Fatalf("test 1: unexpected config %#v", cfg)
	}
	// Test 2 - String() never prints the password.
	if strings.Contains(cfg.String(), "s3cret") {
		t.Fatalf("test 2: password leaked in %v", cfg)
	}
	// Test 3 - missing secrets are all reported.
	delete(env, "SNOWFLAKE_LOAD_PASSWORD")
	delete(env, "SNOWFLAKE_ACCOUNT")
	_, err = LoadLoaderConfig(env)
	if err == nil {
		t.Fatal("test 3: expected error; got nil")
	}
	for _, k := range []string{"SNOWFLAKE_ACCOUNT", "SNOWFLAKE_LOAD_PASSWORD"} {
		if !strings.Contains(err.Error(), k) {
			t.Fatalf("test 3: expected %v in error %q", k, err)
		}
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	if err := os.WriteFile(p, []byte("ENG_TEST_ENV_FILE_A=from-file\nENG_TEST_ENV_FILE_B=from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	_ = os.Setenv("ENG_TEST_ENV_FILE_B", "from-env")
	defer os.Unsetenv("ENG_TEST_ENV_FILE_A")
	defer os.Unsetenv("ENG_TEST_ENV_FILE_B")
	if err := LoadEnvFile(p); err != nil {
		t.Fatal(err)
	}
	if v := os.Getenv("ENG_TEST_ENV_FILE_A"); v != "from-file" {
		t.Fatalf("expected value from file; got %q", v)
	}
	if v := os.Getenv("ENG_TEST_ENV_FILE_B"); v != "from-env" {
		t.Fatalf("expected existing env to win; got %q", v)
	}
	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err == nil {
		t.Fatal("expected error for missing env file")
	}
	if err := LoadEnvFile(""); err != nil {
		t.Fatalf("expected nil for empty file name; got %v", err)
	}
}
