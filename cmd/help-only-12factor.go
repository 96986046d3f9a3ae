package cmd

import (
	"fmt"

	"github.com/relloyd/engagement/constants"
	"github.com/spf13/cobra"
)

var twelveFactorCmd = &cobra.Command{
	Use:   "12f",
	Short: `View help notes for running in Twelve-Factor mode`,
	Long: fmt.Sprintf(`
engagement can be controlled by environment variables, which suits containers
launched by an external scheduler and serverless functions.

To enable Twelve-Factor mode, set environment variable %[1]s_12FACTOR_MODE=1.
To supply flags documented by the regular command-line usage, set an
equivalent environment variable using the following convention:

<%[1]s>_<flag long-name in upper case>

For example, this will refresh the hour bucket of a scheduled tick:

export %[1]s_12FACTOR_MODE=1
export %[1]s_COMMAND=refresh
export %[1]s_DATE=2024-03-05T09:45:00+00:00
export %[1]s_LOG_LEVEL=debug
export SNOWFLAKE_ACCOUNT=xy12345.eu-west-2.aws
export SNOWFLAKE_LOAD_DATABASE=ANALYTICS
export SNOWFLAKE_LOAD_WAREHOUSE=LOADING
export SNOWFLAKE_LOAD_USER=loader
export SNOWFLAKE_LOAD_PASSWORD=...

Valid commands are "refresh", "schedule" and "schedule-trigger".
"schedule-trigger" asks the scheduler at %[1]s_SERVER_URL to start a run for %[1]s_DATE.
Set %[1]s_12FACTOR_MODE=lambda to run refreshes as an AWS Lambda function
taking events of the form {"date": "2024-03-05T09:45:00Z"}.

Then execute the CLI tool without any arguments or flags.

`, constants.EnvVarPrefix),
}

func init() {
	rootCmd.AddCommand(twelveFactorCmd)
}
