package cmd

import (
	"github.com/pkg/errors"
	"github.com/relloyd/engagement/actions"
	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh <date>",
	Short: "Refresh engagement metrics for the hour bucket of <date>",
	Long: `Copy source engagement events updated in the hour bucket of <date> into the
staging table and then merge hourly aggregates from staging into the fact table.

<date> is the logical timestamp of the scheduled run, for example
2024-03-05T09:45:00+00:00. The two statements are not run in a transaction.

Snowflake settings are read from the environment:
  SNOWFLAKE_ACCOUNT, SNOWFLAKE_LOAD_DATABASE, SNOWFLAKE_LOAD_WAREHOUSE,
  SNOWFLAKE_LOAD_USER, SNOWFLAKE_LOAD_PASSWORD`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("requires exactly one <date> argument")
		}
		refreshCfg.Date = args[0]
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRefresh()
	},
}

var refreshCfg = actions.RefreshConfig{}

func runRefresh() error {
	ctx, cancel := signalContext()
	defer cancel()
	refreshCfg.StackDumpOnPanic = stackDumpOnPanic
	_, err := actions.RunRefresh(ctx, &refreshCfg)
	return err
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	refreshCmd.Flags().SortFlags = false
	refreshCmd.SilenceUsage = true // avoid dumping command help when a SQL error occurs.
	switches.addFlag(refreshCmd, &refreshCfg.LogLevel, "log-level", "info", false, "")
	switches.addFlag(refreshCmd, &refreshCfg.DryRun, "dry-run", "false", false, "")
	switches.addFlag(refreshCmd, &refreshCfg.EnvFile, "env-file", "", false, "")
	switches.addFlag(refreshCmd, &refreshCfg.Tables.Source, "source-table", defaultTables.Source, false, "")
	switches.addFlag(refreshCmd, &refreshCfg.Tables.Staging, "staging-table", defaultTables.Staging, false, "")
	switches.addFlag(refreshCmd, &refreshCfg.Tables.Fact, "fact-table", defaultTables.Fact, false, "")
}
