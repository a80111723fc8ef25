package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lueurxax/event-tagger/internal/app"
	"github.com/lueurxax/event-tagger/internal/core/domain"
	"github.com/lueurxax/event-tagger/internal/evaluation"
	"github.com/lueurxax/event-tagger/internal/output/report"
)

const (
	flagFormat      = "format"
	flagOutput      = "output"
	flagInput       = "input"
	stdStreamMarker = "-"
	outputFileMode  = 0o644
)

func evaluateCmd(c *cli) *cobra.Command {
	var (
		formatName  string
		outputPath  string
		limit       int
		concurrency int
		thresholds  = evaluation.DisabledThresholds()
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score the tagging service against the labeled dataset",
		Long: `Run the tagging service over every item of the evaluation dataset and
report accuracy@k, weighted accuracy, precision, recall and F1 plus the most
confused tag pairs and the best and worst categories.

Quality gates (--min-*) make the command fail when a metric is too low.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := report.ParseFormat(formatName)
			if err != nil {
				return err
			}

			r, err := c.app.RunEvaluation(cmd.Context(), app.EvaluateOptions{
				Limit:       limit,
				Concurrency: concurrency,
			})
			if err != nil {
				return err
			}

			if err := writeOutput(cmd, outputPath, func(w io.Writer) error {
				return report.Render(w, r, format)
			}); err != nil {
				return err
			}

			c.logger.Info().
				Str("run_id", r.RunID).
				Float64("accuracy_at_1", r.Metrics.AccuracyAt1).
				Float64("f1", r.Metrics.F1).
				Int("failed", r.Metrics.FailedItems).
				Msg("evaluation finished")

			return thresholds.Check(r.Metrics)
		},
	}

	cmd.Flags().StringVarP(&formatName, flagFormat, "f", string(report.FormatText), "output format (text, json, yaml)")
	cmd.Flags().StringVarP(&outputPath, flagOutput, "o", stdStreamMarker, "write the report to this file")
	cmd.Flags().IntVar(&limit, "limit", 0, "evaluate only the first N items (0 = all)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel predictions (0 = EVAL_CONCURRENCY)")
	cmd.Flags().Float64Var(&thresholds.MinAccuracyAt1, "min-accuracy", -1, "fail if accuracy@1 is below this value (disabled if <0)")
	cmd.Flags().Float64Var(&thresholds.MinF1, "min-f1", -1, "fail if F1 is below this value (disabled if <0)")
	cmd.Flags().Float64Var(&thresholds.MinWeightedAccuracy, "min-weighted-accuracy", -1, "fail if weighted accuracy is below this value (disabled if <0)")

	return cmd
}

func tagCmd(c *cli) *cobra.Command {
	var (
		formatName  string
		inputPath   string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Tag an event item or a JSON array of items",
		Long: `Read one event item as a JSON object, or several as a JSON array, and
print the predicted tags. Fields use the dataset names, e.g.
{"arrangement_nummer": "1", "arrangement_titel": "Jazz i parken"}.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := report.ParseFormat(formatName)
			if err != nil {
				return err
			}

			data, err := readInput(cmd, inputPath)
			if err != nil {
				return err
			}

			svc, err := c.app.Service()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
				var items []domain.Item
				if err := json.Unmarshal(trimmed, &items); err != nil {
					return fmt.Errorf("decode items: %w", err)
				}

				result, err := svc.TagBatch(cmd.Context(), items, concurrency)
				if err != nil {
					return err
				}

				return report.RenderBatch(out, result, format)
			}

			var item domain.Item
			if err := json.Unmarshal(data, &item); err != nil {
				return fmt.Errorf("decode item: %w", err)
			}

			pred, err := svc.Predict(cmd.Context(), item)
			if err != nil {
				return err
			}

			if format == report.FormatText {
				format = report.FormatJSON
			}

			return report.Encode(out, pred, format)
		},
	}

	cmd.Flags().StringVarP(&formatName, flagFormat, "f", string(report.FormatText), "output format (text, json, yaml)")
	cmd.Flags().StringVarP(&inputPath, flagInput, "i", stdStreamMarker, "read items from this file")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel predictions for arrays")

	return cmd
}

func tagsCmd(c *cli) *cobra.Command {
	var formatName string

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List the tag vocabulary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := report.ParseFormat(formatName)
			if err != nil {
				return err
			}

			catalog, err := c.app.Catalog()
			if err != nil {
				return err
			}

			return report.RenderCatalog(cmd.OutOrStdout(), catalog, format)
		},
	}

	cmd.Flags().StringVarP(&formatName, flagFormat, "f", string(report.FormatText), "output format (text, json, yaml)")

	return cmd
}

func serveCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API with health probes and metrics",
		Long: `Serve on HTTP_PORT:
- /api/v1/events/tags, /api/v1/events/tag, /api/v1/events/tag/batch
- /api/v1/events/evaluate
- /healthz, /readyz, /metrics`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			port, _ := cmd.Flags().GetInt("port")
			if port > 0 {
				c.cfg.HTTPPort = port
			}

			return c.app.RunServer(cmd.Context())
		},
	}

	cmd.Flags().IntP("port", "p", 0, "HTTP server port (0 = HTTP_PORT)")

	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == stdStreamMarker {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}

		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return data, nil
}

func writeOutput(cmd *cobra.Command, path string, render func(io.Writer) error) error {
	if path == "" || path == stdStreamMarker {
		return render(cmd.OutOrStdout())
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, outputFileMode)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}

	if err := render(f); err != nil {
		_ = f.Close()

		return err
	}

	return f.Close()
}
