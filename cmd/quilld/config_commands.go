package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"quill/internal/config"
)

func newConfigCommand(configPath *string) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(configPath))
	configCmd.AddCommand(newConfigShowCommand(configPath))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set open_webui.url and open_webui.api_key (or export OPEN_WEBUI_URL and QUILL_API_KEY) before running quilld.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			if !exists {
				fmt.Fprintln(out, "No configuration file found; built-in defaults are in effect.")
			} else {
				fmt.Fprintf(out, "Configuration at %s is valid.\n", path)
			}
			fmt.Fprintf(out, "Watching %s and %s, writing knowledge to %s.\n",
				cfg.Paths.AudioInboxDir, cfg.Paths.TextInboxDir, cfg.Paths.KnowledgeDir)
			return nil
		},
	}
}

func newConfigShowCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			source := "defaults"
			if exists {
				source = path
			}
			rows := [][]string{
				{"config", source},
				{"audio inbox", cfg.Paths.AudioInboxDir},
				{"audio archive", cfg.Paths.AudioArchiveDir},
				{"text inbox / retry", cfg.Paths.TextInboxDir},
				{"knowledge", cfg.Paths.KnowledgeDir},
				{"lock file", cfg.Paths.LockFile},
				{"log dir", cfg.Logging.Dir},
				{"open webui", cfg.OpenWebUI.URL},
				{"model", cfg.OpenWebUI.Model},
				{"whisper", fmt.Sprintf("%s (%s)", cfg.Whisper.Binary, cfg.Whisper.Model)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]tableColumn{{header: "Setting"}, {header: "Value"}}, rows))
			return nil
		},
	}
}
