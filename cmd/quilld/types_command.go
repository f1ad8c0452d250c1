package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"quill/internal/config"
)

func newTypesCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List configured content types",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, _, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if len(cfg.ContentTypes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No content types configured.")
				return nil
			}

			columns := []tableColumn{
				{header: "Key"},
				{header: "Name"},
				{header: "Subfolder"},
				{header: "Collection"},
				{header: "Keywords", alignRight: true},
				{header: "Analysis"},
				{header: "Default"},
			}
			rows := make([][]string, 0, len(cfg.ContentTypes))
			for _, ct := range cfg.ContentTypes {
				rows = append(rows, []string{
					ct.Key,
					ct.Name,
					ct.TargetSubfolder,
					ct.CollectionID,
					strconv.Itoa(len(ct.DetectionKeywords)),
					yesNo(ct.EnableAnalysis),
					yesNo(ct.IsDefault),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(columns, rows))

			if cfg.Collections.FocusID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Focus collection: %s\n", cfg.Collections.FocusID)
			}
			return nil
		},
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
