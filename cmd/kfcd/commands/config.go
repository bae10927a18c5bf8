package commands

import (
	"fmt"
	"os"

	"github.com/jholhewres/kfc/pkg/kfc"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// newConfigCmd creates the `kfcd config` command.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage kfc.yaml configuration",
		Long: `Manage the conversation-control engine's configuration.

Examples:
  kfcd config init
  kfcd config show
  kfcd config validate`,
	}

	cmd.AddCommand(
		newConfigInitCmd(),
		newConfigShowCmd(),
		newConfigValidateCmd(),
	)

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a default kfc.yaml",
		RunE: func(_ *cobra.Command, _ []string) error {
			target := "kfc.yaml"

			if _, err := os.Stat(target); err == nil {
				return fmt.Errorf("%s already exists. Remove it first or edit it directly", target)
			}

			cfg := kfc.DefaultConfig()
			if err := kfc.SaveConfigToFile(cfg, target); err != nil {
				return err
			}

			fmt.Printf("Created %s with default configuration.\n", target)
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			fmt.Printf("# Loaded from: %s\n\n", path)

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			fmt.Printf("Config: %s\n", path)
			fmt.Printf("  Enabled:               %v\n", cfg.General.Enabled)
			fmt.Printf("  Model task:            %s\n", cfg.General.ModelTask)
			fmt.Printf("  Native multimodal:     %v\n", cfg.General.NativeMultimodal)
			fmt.Printf("  Wait seconds:          [%.0f, %.0f]\n", cfg.Wait.MinSeconds, cfg.Wait.MaxSeconds)
			fmt.Printf("  Max consecutive wait timeouts: %d\n", cfg.Wait.MaxConsecutiveTimeouts)
			fmt.Printf("  Proactive enabled:     %v\n", cfg.Proactive.Enabled)
			fmt.Printf("  Quiet hours:           %s - %s\n", cfg.Proactive.QuietHoursStart, cfg.Proactive.QuietHoursEnd)
			fmt.Printf("  Continuous thinking:   %v, thresholds=%v\n", cfg.ContinuousThinking.Enabled, cfg.ContinuousThinking.ProgressThresholds)

			fmt.Println("\nConfiguration is valid.")
			return nil
		},
	}
}

// loadConfig loads the config from the --config flag or auto-discovers it,
// falling back to documented defaults when neither resolves.
func loadConfig(cmd *cobra.Command) (*kfc.Config, string, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")

	if configPath == "" {
		configPath = kfc.FindConfigFile()
	}

	if configPath == "" {
		return kfc.DefaultConfig(), "(defaults)", nil
	}

	cfg, err := kfc.LoadConfigFromFile(configPath)
	if err != nil {
		return nil, configPath, fmt.Errorf("loading config from %s: %w", configPath, err)
	}

	return cfg, configPath, nil
}
