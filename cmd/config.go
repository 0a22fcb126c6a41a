package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with secrets redacted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

func configShowRun() error {
	settings := viper.AllSettings()
	redactSecrets(settings)

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if file := viper.ConfigFileUsed(); file != "" {
		ui.Info("Config file: %s", file)
	} else {
		ui.Info("No config file found, using defaults and environment")
	}
	fmt.Fprintln(ui.Out, string(data))
	return nil
}

// redactSecrets masks values under keys that look like credentials.
func redactSecrets(settings map[string]any) {
	for key, value := range settings {
		switch v := value.(type) {
		case map[string]any:
			redactSecrets(v)
		case string:
			if v != "" && (strings.Contains(key, "key") || strings.Contains(key, "token")) {
				settings[key] = "********"
			}
		}
	}
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
