package cmd

import (
	"context"
	"testing"
)

var results = map[string]string{}

var mockTwelveFactorActions = map[string]twelveFactorAction{
	"refresh": {
		setupFunc:  func(date string) { results["refresh-date"] = date },
		runnerFunc: func() error { results["refresh"] = "ran"; return nil },
	},
}

func TestSetupTwelveFactorMode(t *testing.T) {
	defer func() { twelveFactorMode, lambdaMode = false, false }()
	// Test 1 - off.
	t.Setenv(envVarTwelveFactorMode, "")
	setupTwelveFactorMode()
	if twelveFactorMode || lambdaMode {
		t.Fatal("expected twelveFactorMode to be false")
	}
	// Test 2 - on.
	t.Setenv(envVarTwelveFactorMode, "1")
	setupTwelveFactorMode()
	if !twelveFactorMode || lambdaMode {
		t.Fatal("expected twelveFactorMode to be true without lambdaMode")
	}
	// Test 3 - lambda.
	t.Setenv(envVarTwelveFactorMode, "Lambda")
	setupTwelveFactorMode()
	if !twelveFactorMode || !lambdaMode {
		t.Fatal("expected twelveFactorMode and lambdaMode to be true")
	}
}

func TestExecute12FactorMode(t *testing.T) {
	defer func() { stackDumpOnPanic = false }()
	osVars := map[string]string{
		envVarLogLevel:  "error",
		envVarDate:      "2024-03-05T09:45:00+00:00",
		envVarStackDump: "1",
	}
	for k, v := range osVars {
		t.Setenv(k, v)
	}

	// Test 1 - action runner function is called with the date.
	t.Setenv(envVarCommand, "refresh")
	if err := execute12FactorMode(mockTwelveFactorActions); err != nil {
		t.Fatalf("test 1 failed: expected nil error got error: %v", err)
	}
	if results["refresh"] != "ran" || results["refresh-date"] != osVars[envVarDate] {
		t.Fatalf("test 1 failed: unexpected results %v", results)
	}

	// Test 2 - invalid command.
	t.Setenv(envVarCommand, "invalidCommand")
	if err := execute12FactorMode(mockTwelveFactorActions); err == nil {
		t.Fatal("test 2 failed, expected: error; got: nil")
	}

	// Test 3 - all twelveFactorVars are fetched from the environment.
	for k, expected := range osVars {
		if got := twelveFactorVars[k]; got != expected {
			t.Fatalf("test 3 failed: expected %v = %v; got: %v", k, expected, got)
		}
	}
	if !stackDumpOnPanic {
		t.Fatal("test 3 failed: expected stack dumps to be enabled")
	}
}

func TestTwelveFactorActions(t *testing.T) {
	// Every action must map to a registered cobra command.
	for k := range twelveFactorActions {
		args := map[string][]string{
			"refresh":          {"refresh"},
			"schedule":         {"schedule", "run"},
			"schedule-trigger": {"schedule", "trigger"},
		}[k]
		if args == nil {
			t.Fatalf("no cobra command listed for 12 factor action %v", k)
		}
		c, _, err := rootCmd.Find(args)
		if err != nil || c == rootCmd {
			t.Fatalf("12 factor action %v has no cobra command: %v", k, err)
		}
	}
}

func TestLambdaHandlerFailsFastOnBadDate(t *testing.T) {
	t.Setenv(envVarLogLevel, "error")
	t.Setenv(envVarDate, "")
	if _, err := lambdaHandler(context.Background(), lambdaEvent{Date: "tomorrow"}); err == nil {
		t.Fatal("expected error for bad date")
	}
	if _, err := lambdaHandler(context.Background(), lambdaEvent{}); err == nil {
		t.Fatal("expected error for missing date")
	}
}
