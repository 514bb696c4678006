package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"statement-splitter/cmd/splitter/config"
)

// configCmd groups the settings subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Get and set splitter settings",
	Long: `Config reads and writes the persistent splitter settings.

Examples:
  splitter config get
  splitter config get default_tag
  splitter config set default_tag card-split
  splitter config set use_ai_for_parsing true
  splitter config set header_mapping.amount Betrag`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a setting and persist it",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		key := args[0]
		if !config.IsSettable(key) && key != config.KeyHeaderMapping {
			return fmt.Errorf("unknown setting %q", key)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, viper.Get(key))
		return nil
	}

	for _, key := range config.SettableKeys {
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, viper.Get(key))
	}
	if mapping := viper.GetStringMapString(config.KeyHeaderMapping); len(mapping) > 0 {
		for field, column := range mapping {
			fmt.Fprintf(cmd.OutOrStdout(), "%s.%s = %s\n", config.KeyHeaderMapping, field, column)
		}
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	if !config.IsSettable(key) {
		return fmt.Errorf("unknown setting %q, settable keys: %s",
			key, strings.Join(config.SettableKeys, ", "))
	}

	viper.Set(key, value)
	if err := writeConfigFile(); err != nil {
		return fmt.Errorf("failed to persist setting: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, viper.Get(key))
	return nil
}

// writeConfigFile persists the settings, creating the default config file
// on first use.
func writeConfigFile() error {
	if viper.ConfigFileUsed() != "" {
		return viper.WriteConfig()
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	return viper.WriteConfigAs(filepath.Join(home, ".splitter.yaml"))
}
