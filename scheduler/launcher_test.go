package scheduler

import (
	"bytes"
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/relloyd/engagement/logger"
)

func TestProcessLauncher(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	log := logger.NewLogger("engagement", "error", false)
	req := LaunchRequest{
		RunID:       "run1",
		TaskID:      EngagementExtractTaskID,
		LogicalDate: time.Date(2024, 3, 5, 9, 45, 0, 0, time.UTC),
		Attempt:     2,
	}

	// Test 1 - logical date is the only positional argument and run env is set.
	out := &bytes.Buffer{}
	p := &ProcessLauncher{
		Log:     log,
		Command: []string{"sh", "-c", `echo "$0|$ENG_RUN_ID|$ENG_TRY_NUMBER|$EXTRA"`},
		Env:     []string{"EXTRA=yes"},
		Stdout:  out,
	}
	if err := p.Launch(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != "2024-03-05T09:45:00Z|run1|2|yes" {
		t.Fatalf("unexpected worker output %q", got)
	}

	// Test 2 - non-zero exit is an error carrying the exit code.
	p = &ProcessLauncher{Log: log, Command: []string{"sh", "-c", "exit 3"}, Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	err := p.Launch(context.Background(), req)
	if err == nil || !strings.Contains(err.Error(), "exited with code 3") {
		t.Fatalf("expected exit code error; got %v", err)
	}

	// Test 3 - missing secrets fail before launching.
	p = &ProcessLauncher{Log: log, Command: []string{"sh", "-c", "echo launched"}, Secrets: []string{"ENG_TEST_UNSET_SECRET"}, Stdout: out}
	out.Reset()
	err = p.Launch(context.Background(), req)
	if err == nil || !strings.Contains(err.Error(), "ENG_TEST_UNSET_SECRET") {
		t.Fatalf("expected missing secret error; got %v", err)
	}
	if out.Len() != 0 {
		t.Fatal("expected no launch when secrets are missing")
	}

	// Test 4 - secrets supplied by Env satisfy the check and reach the worker.
	p = &ProcessLauncher{
		Log:     log,
		Command: []string{"sh", "-c", `echo "$ENG_TEST_ENV_ONLY_SECRET"`},
		Secrets: []string{"ENG_TEST_ENV_ONLY_SECRET"},
		Env:     []string{"ENG_TEST_ENV_ONLY_SECRET=s3cret"},
		Stdout:  out,
	}
	out.Reset()
	if err = p.Launch(context.Background(), req); err != nil {
		t.Fatalf("expected secret from Env to be accepted; got %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "s3cret" {
		t.Fatalf("unexpected worker output %q", got)
	}

	// Test 5 - an empty value in Env does not count as set.
	p = &ProcessLauncher{Log: log, Command: []string{"sh", "-c", "echo launched"}, Secrets: []string{"ENG_TEST_ENV_ONLY_SECRET"}, Env: []string{"ENG_TEST_ENV_ONLY_SECRET="}, Stdout: out}
	out.Reset()
	if err = p.Launch(context.Background(), req); err == nil || out.Len() != 0 {
		t.Fatalf("expected missing secret error without launch; got %v", err)
	}

	// Test 6 - empty command.
	p = &ProcessLauncher{Log: log}
	if err = p.Launch(context.Background(), req); err == nil {
		t.Fatal("expected error for empty command")
	}
}
