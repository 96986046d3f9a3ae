package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/engagement/actions"
	c "github.com/relloyd/engagement/constants"
	"github.com/relloyd/engagement/helper"
	"github.com/relloyd/engagement/logger"
)

// init will be called first due to the lexical order in which these functions are executed.
// This ensures the value of twelveFactorMode is set such that other init() functions that configure
// Cobra can do the job of processing all environment variables that would contain equivalent of the CLI flag
// structures used by the actions.
func init() {
	setupTwelveFactorMode()
}

// setupTwelveFactorMode will enable or disable 12 factor mode based on environment variable.
func setupTwelveFactorMode() {
	mode := os.Getenv(envVarTwelveFactorMode)
	if mode != "" { // if variable for 12factor mode is set and we should read env vars to determine actions...
		twelveFactorMode = true
		lambdaMode = strings.ToLower(mode) == "lambda"
	} else { // else 12factor mode should be off...
		twelveFactorMode = false // explicitly turn off this mode since tests may have turned it on while others require it off.
		lambdaMode = false
	}
}

const (
	envVarTwelveFactorMode = c.EnvVarPrefix + "_" + "12FACTOR_MODE"
	envVarCommand          = c.EnvVarPrefix + "_" + "COMMAND"
	envVarDate             = c.EnvVarPrefix + "_" + "DATE"
	envVarLogLevel         = c.EnvVarPrefix + "_" + "LOG_LEVEL"
	envVarStackDump        = c.EnvVarPrefix + "_" + "STACK_DUMP"
)

var (
	twelveFactorMode bool // true if os env var envVarTwelveFactorMode is set
	lambdaMode       bool // true if envVarTwelveFactorMode is "lambda"
	twelveFactorVars = map[string]string{
		envVarCommand:   "",
		envVarDate:      "",
		envVarLogLevel:  "",
		envVarStackDump: "",
	}
)

type twelveFactorAction struct {
	setupFunc  func(date string)
	runnerFunc func() error
}

var twelveFactorActions = map[string]twelveFactorAction{
	"refresh": {
		setupFunc:  func(date string) { refreshCfg.Date = date },
		runnerFunc: runRefresh,
	},
	"schedule": {
		setupFunc:  func(date string) {},
		runnerFunc: runSchedule,
	},
	"schedule-trigger": {
		setupFunc:  func(date string) { scheduleTriggerDate = date },
		runnerFunc: func() error { return runScheduleTrigger(scheduleTriggerDate) },
	},
}

var scheduleTriggerDate string

// readTwelveFactorVars saves the values of twelveFactorVars from the environment.
func readTwelveFactorVars(log logger.Logger) {
	for k := range twelveFactorVars { // for each env variable that we need...
		twelveFactorVars[k] = os.Getenv(k)
		log.Debug(k, "=", twelveFactorVars[k])
	}
	if twelveFactorVars[envVarStackDump] != "" {
		stackDumpOnPanic = true
	}
}

func execute12FactorMode(acts map[string]twelveFactorAction) (err error) {
	logLevel := helper.ReadValueFromEnvWithDefault(envVarLogLevel, "info") // fetch logLevel from env as this is not a persistent flag.
	log := logger.NewLogger("engagement", logLevel, stackDumpOnPanic)
	log.Info("engagement is running in 12 Factor mode...")
	readTwelveFactorVars(log)
	// Use the command to fetch the appropriate action.
	a, ok := acts[twelveFactorVars[envVarCommand]]
	if !ok {
		err = errors.Errorf("invalid command %q supplied via %v", twelveFactorVars[envVarCommand], envVarCommand)
		log.Error(err.Error())
		return
	}
	// Set up the date as Cobra would have with CLI args.
	a.setupFunc(twelveFactorVars[envVarDate])
	// Run the action.
	err = a.runnerFunc()
	if err != nil {
		log.Error("Error: ", err)
	}
	return err
}

// lambdaEvent is the payload accepted in lambda mode.
// When Date is empty, envVarDate is used instead.
type lambdaEvent struct {
	Date string `json:"date"`
}

type lambdaResponse struct {
	Date       string `json:"date"`
	RowsStaged int64  `json:"rowsStaged"`
	RowsMerged int64  `json:"rowsMerged"`
}

// lambdaHandler runs one refresh per invocation.
func lambdaHandler(ctx context.Context, ev lambdaEvent) (lambdaResponse, error) {
	log := logger.NewLogger("engagement", helper.ReadValueFromEnvWithDefault(envVarLogLevel, "info"), stackDumpOnPanic)
	readTwelveFactorVars(log)
	cfg := refreshCfg // copy so invocations on a warm container start from the same flags.
	cfg.Date = ev.Date
	if cfg.Date == "" {
		cfg.Date = twelveFactorVars[envVarDate]
	}
	cfg.StackDumpOnPanic = stackDumpOnPanic
	res, err := actions.RunRefresh(ctx, &cfg)
	if err != nil {
		log.Error("Error: ", err)
		return lambdaResponse{}, err
	}
	return lambdaResponse{Date: res.Tick.String(), RowsStaged: res.RowsStaged, RowsMerged: res.RowsMerged}, nil
}
