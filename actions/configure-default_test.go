package actions

import (
	"bytes"
	"strings"
	"testing"

	"github.com/relloyd/engagement/config"
)

func TestRunDefaultAddListRemove(t *testing.T) {
	f := config.NewConfigFileWithDir(t.TempDir(), "config.yaml")
	out := &bytes.Buffer{}

	// Test 1 - add to a file that does not exist yet.
	if err := RunDefaultAdd(&DefaultConfig{ConfigFile: f, Key: "log-level", Value: "debug", Out: out}); err != nil {
		t.Fatal(err)
	}
	// Test 2 - existing key requires force.
	if err := RunDefaultAdd(&DefaultConfig{ConfigFile: f, Key: "log-level", Value: "warn", Out: out}); err == nil {
		t.Fatal("expected error adding an existing key without force")
	}
	if err := RunDefaultAdd(&DefaultConfig{ConfigFile: f, Key: "log-level", Value: "warn", Force: true, Out: out}); err != nil {
		t.Fatal(err)
	}
	// Test 3 - list.
	out.Reset()
	if err := RunDefaultList(&DefaultConfig{ConfigFile: f, Out: out}); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != "log-level: warn" {
		t.Fatalf("unexpected list output %q", out.String())
	}
	// Test 4 - remove, then remove again.
	if err := RunDefaultRemove(&DefaultConfig{ConfigFile: f, Key: "log-level", Out: out}); err != nil {
		t.Fatal(err)
	}
	if err := RunDefaultRemove(&DefaultConfig{ConfigFile: f, Key: "log-level", Out: out}); err == nil {
		t.Fatal("expected error removing a missing key")
	}
	// Test 5 - missing value.
	if err := RunDefaultAdd(&DefaultConfig{ConfigFile: f, Key: "fact-table", Out: out}); err == nil {
		t.Fatal("expected error for missing value")
	}
}
