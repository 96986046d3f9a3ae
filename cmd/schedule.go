package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/engagement/actions"
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run or inspect the engagement_metrics_refresh schedule",
	Long: `The engagement_metrics_refresh schedule launches "engagement refresh <logical-date>"
every 15 minutes. Only one run is active at a time, missed intervals are not
replayed and a failed launch is retried once after 5 minutes. Each failed
attempt raises an alert. Manual runs are requested from the running scheduler
so they share its single-flight rule.`,
}

const defaultSchedulePort = "8080"

var scheduleCfg = actions.ScheduleConfig{}
var scheduleCommand string

var scheduleRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Launch refreshes every 15 minutes until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSchedule()
	},
}

var scheduleTriggerCfg = actions.ScheduleTriggerConfig{}

var scheduleTriggerCmd = &cobra.Command{
	Use:   "trigger <date>",
	Short: "Ask the running scheduler to start a refresh now for the logical <date>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScheduleTrigger(args[0])
	},
}

var scheduleShowCfg = actions.ScheduleShowConfig{}

var scheduleShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the schedule definition",
	RunE: func(cmd *cobra.Command, args []string) error {
		argv, err := workerCommand(scheduleCommand)
		if err != nil {
			return err
		}
		scheduleShowCfg.Command = argv
		return actions.RunScheduleShow(&scheduleShowCfg)
	},
}

// workerCommand splits s into an argv, defaulting to this binary's refresh command.
func workerCommand(s string) ([]string, error) {
	if f := strings.Fields(s); len(f) > 0 {
		return f, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, errors.Wrap(err, "unable to find the worker command, use flag --worker-command")
	}
	exeReal, err := filepath.EvalSymlinks(exe) // convert executable path to absolute...
	if err != nil {
		return nil, errors.Wrapf(err, "unable to resolve symlinks in path to executable %q", exe)
	}
	return []string{exeReal, refreshCmd.Name()}, nil
}

func setupScheduleConfig() error {
	argv, err := workerCommand(scheduleCommand)
	if err != nil {
		return err
	}
	scheduleCfg.Command = argv
	scheduleCfg.StackDumpOnPanic = stackDumpOnPanic
	if twelveFactorMode { // if workers would inherit 12 factor mode...
		// Turn it off so they read their positional date argument.
		scheduleCfg.WorkerEnv = []string{envVarTwelveFactorMode + "="}
	}
	return nil
}

func runSchedule() error {
	if err := setupScheduleConfig(); err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	return actions.RunSchedule(ctx, &scheduleCfg)
}

func runScheduleTrigger(date string) error {
	scheduleTriggerCfg.StackDumpOnPanic = stackDumpOnPanic
	ctx, cancel := signalContext()
	defer cancel()
	run, err := actions.RunScheduleTrigger(ctx, &scheduleTriggerCfg, date)
	if err != nil {
		return err
	}
	fmt.Printf("Run %v started for logical date %v; see %v/runs\n", run.ID, run.LogicalDate.Format(time.RFC3339), strings.TrimRight(scheduleTriggerCfg.ServerURL, "/"))
	return nil
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleRunCmd, scheduleTriggerCmd, scheduleShowCmd)
	scheduleRunCmd.Flags().SortFlags = false
	scheduleRunCmd.SilenceUsage = true
	switches.addFlag(scheduleRunCmd, &scheduleCfg.LogLevel, "log-level", "info", false, "")
	switches.addFlag(scheduleRunCmd, &scheduleCommand, "worker-command", "", false, "")
	switches.addFlag(scheduleRunCmd, &scheduleCfg.EnvFile, "env-file", "", false, "; workers inherit them")
	switches.addFlag(scheduleRunCmd, &scheduleCfg.WebhookURL, "webhook-url", "", false, "")
	switches.addFlag(scheduleRunCmd, &scheduleCfg.AlertChannel, "alert-channel", "", false, "")
	switches.addFlag(scheduleRunCmd, &scheduleCfg.Port, "port", defaultSchedulePort, false, "")
	scheduleTriggerCmd.Flags().SortFlags = false
	scheduleTriggerCmd.SilenceUsage = true
	switches.addFlag(scheduleTriggerCmd, &scheduleTriggerCfg.LogLevel, "log-level", "info", false, "")
	switches.addFlag(scheduleTriggerCmd, &scheduleTriggerCfg.ServerURL, "server-url", "http://127.0.0.1:"+defaultSchedulePort, false, "")
	scheduleShowCmd.Flags().SortFlags = false
	switches.addFlag(scheduleShowCmd, &scheduleShowCfg.Output, "output", "yaml", false, "")
	switches.addFlag(scheduleShowCmd, &scheduleCommand, "worker-command", "", false, "")
}
