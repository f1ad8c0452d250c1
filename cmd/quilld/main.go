package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "quilld",
		Short:         "Quill knowledge pipeline daemon",
		Long:          "quilld watches inbox directories for audio recordings and text notes,\nturns them into markdown knowledge documents, and syncs them to an\nOpen WebUI knowledge store.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.toml")

	root.AddCommand(newRunCommand(&configPath))
	root.AddCommand(newConfigCommand(&configPath))
	root.AddCommand(newTypesCommand(&configPath))
	root.AddCommand(newNotifyCommand(&configPath))
	return root
}
