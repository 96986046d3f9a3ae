package cmd

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/relloyd/engagement/config"
	"github.com/relloyd/engagement/engagement"
	"github.com/relloyd/engagement/helper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type cliFlag struct {
	name      string // name of flag
	val       string // default value
	shortHand string // single character name for the flag
	desc      string // description of the flag; the long text
}

type cliFlags map[string]cliFlag

var defaultTables = engagement.DefaultTables()

var switches = cliFlags{
	"mock": cliFlag{name: "mock", shortHand: "m", desc: "mock switch for testing"},
	"log-level": cliFlag{name: "log-level", shortHand: "l",
		desc: "Log level: \"error | warn | info | debug | trace\""},
	"dry-run": cliFlag{name: "dry-run", shortHand: "d",
		desc: "Print the SQL statements and bind value without connecting to Snowflake"},
	"env-file": cliFlag{name: "env-file", shortHand: "e",
		desc: "Optional .env file of SNOWFLAKE_* variables to load. Variables already set in the \n" +
			"environment take priority"},
	"source-table": cliFlag{name: "source-table", shortHand: "s",
		desc: "Source table of engagement events, [<database>.][<schema>.]<table>"},
	"staging-table": cliFlag{name: "staging-table", shortHand: "S",
		desc: "Append-only staging table, [<database>.][<schema>.]<table>"},
	"fact-table": cliFlag{name: "fact-table", shortHand: "f",
		desc: "Hourly engagement metrics fact table, [<database>.][<schema>.]<table>"},
	"worker-command": cliFlag{name: "worker-command", shortHand: "c",
		desc: "Space separated worker command launched on each tick; the logical date is appended \n" +
			"as the last argument (default: this binary with \"refresh\")"},
	"webhook-url": cliFlag{name: "webhook-url", shortHand: "w",
		desc: "Slack or Mattermost compatible incoming webhook URL for failure alerts \n" +
			"(failures are always logged)"},
	"alert-channel": cliFlag{name: "alert-channel", shortHand: "a",
		desc: "Channel to post failure alerts to (omit to use the webhook default)"},
	"port": cliFlag{name: "port", shortHand: "p",
		desc: "Port for the server exposing /health, /runs and /metrics and accepting manual runs \n" +
			"from \"schedule trigger\" (0 to disable)"},
	"server-url": cliFlag{name: "server-url", shortHand: "u",
		desc: "Base URL of the running \"schedule run\" server that starts the run"},
	"output": cliFlag{name: "output", shortHand: "o",
		desc: "Specify \"yaml\" or \"json\" to print the schedule definition"},
}

// addFlag add a flag to combra.Command c, based on the type of targetVar (which must be a pointer).
// The name of the flag is looked up in map, cliFlags.
// When running in twelveFactorMode, the targetVar is populated using the value of environment variable for the supplied
// name, or if not set then the supplied default value is used.
// When NOT running in twelveFactorMode, the default value is fetched from config if it exists else the supplied
// defaultValue is applied.
// The flag is marked as required in Cobra based on the value of required.
// Supply a value for desc2 to append to the existing description found in map cliFlags.
func (f *cliFlags) addFlag(c *cobra.Command, targetVar interface{}, name string, defaultValue string, required bool, desc2 string) {
	v := reflect.ValueOf(targetVar)
	if v.Kind() != reflect.Ptr {
		fmt.Println("error adding flag: targetVar must be a pointer")
		os.Exit(1)
	}
	sw := f.getCliFlag(name, defaultValue, config.Main.Get) // get the cliFlag details, with defaults taken from config or the supplied defaultValue
	desc := sw.desc + desc2                                 // create the full flag description for use below
	// Apply the flag.
	switch p := targetVar.(type) {
	case *string:
		if twelveFactorMode {
			*p = sw.val
		} else {
			c.Flags().StringVarP(p, sw.name, sw.shortHand, sw.val, desc)
			// Signal that the flag was set so defaults take effect.
			if sw.val != "" { // if there is a value via config or default...
				mustSetFlag(c.Flags(), sw.name, sw.val)
			}
		}
	case *bool:
		defaultBool := parseBool(sw.val)
		if twelveFactorMode {
			*p = defaultBool
		} else {
			c.Flags().BoolVarP(p, sw.name, sw.shortHand, defaultBool, desc)
			mustSetFlag(c.Flags(), sw.name, strconv.FormatBool(defaultBool))
		}
	case *int:
		defaultInt, err := strconv.Atoi(sw.val)
		if err != nil {
			fmt.Printf("the value for flag %q must be an integer: %v\n", sw.name, err)
			os.Exit(1)
		}
		if twelveFactorMode {
			*p = defaultInt
		} else {
			c.Flags().IntVarP(p, sw.name, sw.shortHand, defaultInt, desc)
			// Signal that the flag was set so defaults take effect.
			mustSetFlag(c.Flags(), sw.name, sw.val)
		}
	default:
		panic("Error: unhandled CLI flag target value type")
	}
	// Optionally mark the flag as mandatory.
	if required && !twelveFactorMode { // if the flag is required...
		_ = c.MarkFlagRequired(sw.name)
	}
}

// getCliFlag fetches the value of name from the environment, when running in twelveFactorMode,
// else read the Main config file to find it.
// If a value cannot be found then use the supplied defaultValue in its place.
func (f *cliFlags) getCliFlag(name string, defaultValue string, fnGetConfig func(key string, out interface{}) error) cliFlag {
	s, ok := (*f)[name]
	if !ok {
		panic(fmt.Sprintf("unregistered CLI flag, %q", name))
	}
	if twelveFactorMode { // if we should read env vars...
		if err := helper.ReadValueFromEnv(helper.FlagNameToEnvVar(name), &s.val); err != nil { // if there's no value for the env var...
			// Apply the default.
			s.val = defaultValue
		}
	} else { // else check the config file or apply default...
		if err := fnGetConfig(s.name, &s.val); err != nil || s.val == "" { // if there was no key found...
			// Apply the default.
			s.val = defaultValue
		}
	}
	return s
}

// parseBool treats "1", "t", "true", "y" and "yes" in any case as true.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes":
		return true
	}
	return false
}

func mustSetFlag(f *pflag.FlagSet, name string, val string) {
	if err := f.Set(name, val); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
