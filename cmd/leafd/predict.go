// cmd/leafd/predict.go
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/SyedDaiam9101/leaf-classifier/internal/disease"
	"github.com/SyedDaiam9101/leaf-classifier/internal/handler"
	"github.com/SyedDaiam9101/leaf-classifier/internal/pipeline"
)

func newPredictCmd(opts *rootOptions) *cobra.Command {
	var (
		category string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "predict IMAGE...",
		Short: "Classify local leaf images",
		Example: `  leafd predict --category sponge leaf.jpg
  leafd predict --json --use-mock-inference a.png b.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := disease.ParseCategory(category)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			a, err := newApp(cmd.Context(), cfg, logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			var failed int
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				res, err := a.pipe.Classify(cmd.Context(), c, data)
				if err != nil {
					logger.Error().Err(err).Str("image", path).Msg("prediction failed")
					failed++
					continue
				}
				if err := printResult(out, path, res, asJSON); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d images could not be classified", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", handler.DefaultCategory, "Luffa category (smooth or sponge)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON object per image")
	return cmd
}

func printResult(w io.Writer, path string, res *pipeline.Result, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(struct {
			Image string `json:"image"`
			*pipeline.Result
		}{path, res})
	}
	_, err := fmt.Fprintf(w, "%s\n  Predicted Disease: %s (class %d)\n  %s\n", path, res.Label, res.ClassIndex, res.Info)
	return err
}
