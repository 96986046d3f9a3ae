package cmd

import (
	"fmt"

	"github.com/relloyd/engagement/actions"
	"github.com/relloyd/engagement/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure default flag values",
	Long: fmt.Sprintf(`Configure default flag values, stored in file %q.
Keys match flag long-names, for example "log-level" or "fact-table".`, config.Main.FullPath),
}

var defaultCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Configure default values for commands",
}

var defaultCfg = actions.DefaultConfig{}

var defaultAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or set a default flag value",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaultCfg.ConfigFile = config.Main
		return actions.RunDefaultAdd(&defaultCfg)
	},
}

var defaultListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print all default flag values",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaultCfg.ConfigFile = config.Main
		return actions.RunDefaultList(&defaultCfg)
	},
}

var defaultRemoveCmd = &cobra.Command{
	Use:     "remove",
	Aliases: []string{"rm", "del", "delete"},
	Short:   "Remove a default flag value",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaultCfg.ConfigFile = config.Main
		return actions.RunDefaultRemove(&defaultCfg)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(defaultCmd)
	defaultCmd.AddCommand(defaultAddCmd, defaultListCmd, defaultRemoveCmd)

	defaultAddCmd.Flags().SortFlags = false
	defaultAddCmd.Flags().StringVarP(&defaultCfg.Key, "key", "k", "", "* The key to set in config. Match the name of the flag\n"+
		"to have this value take effect in commands")
	defaultAddCmd.Flags().StringVarP(&defaultCfg.Value, "value", "v", "", "* The default value to set")
	defaultAddCmd.Flags().BoolVarP(&defaultCfg.Force, "force", "f", false, "Overwrite existing values")
	_ = defaultAddCmd.MarkFlagRequired("key")
	_ = defaultAddCmd.MarkFlagRequired("value")
	defaultAddCmd.SilenceUsage = true

	defaultRemoveCmd.Flags().StringVarP(&defaultCfg.Key, "key", "k", "",
		"The key to remove from config")
	_ = defaultRemoveCmd.MarkFlagRequired("key")
	defaultRemoveCmd.SilenceUsage = true
}
