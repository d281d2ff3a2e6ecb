// cmd/leafd/labels.go
package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/SyedDaiam9101/leaf-classifier/internal/config"
	"github.com/SyedDaiam9101/leaf-classifier/internal/disease"
)

func newLabelsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "labels [CATEGORY]",
		Short: "Print the class labels and descriptions of each category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cats := disease.Categories
			if len(args) == 1 {
				c, err := disease.ParseCategory(args[0])
				if err != nil {
					return err
				}
				cats = []disease.Category{c}
			}

			// models are not needed here, so the config is not validated
			cfg, err := config.Load(opts.configFile, cmd.Flags())
			if err != nil {
				return err
			}
			resolver := disease.NewResolver()
			if cfg.DiseaseInfoFile != "" {
				if err := resolver.LoadInfoFile(cfg.DiseaseInfoFile); err != nil {
					return err
				}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, c := range cats {
				fmt.Fprintf(tw, "%s\n", c)
				for i, l := range disease.Labels(c) {
					fmt.Fprintf(tw, "  %d\t%s\t%s\n", i, l, resolver.Info(l))
				}
			}
			return tw.Flush()
		},
	}
}
