package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"hunter/src/caseloader"
	"hunter/src/core/evaluation"
	"hunter/src/report"
	"hunter/src/storage/minioctrl"
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a batch of test cases from a CSV or JSON file",
	Long: `The evaluate command loads test cases from a file, scores every case on
groundedness, relevance, coherence and completeness with the configured
judge, and renders a report.`,
	RunE: RunEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringP("input", "i", "", "Test case file (.csv or .json)")
	evaluateCmd.MarkFlagRequired("input")
	evaluateCmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
	evaluateCmd.Flags().StringP("format", "f", "md", "Report format: md, csv or json")
	evaluateCmd.Flags().StringP("judge", "j", "", "Judge backend override: ollama, openai or lexical")
	evaluateCmd.Flags().Bool("archive", false, "Archive the report to MinIO")
}

func RunEvaluate(cmd *cobra.Command, args []string) error {
	inputPath, _ := cmd.Flags().GetString("input")
	outputPath, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	judgeBackend, _ := cmd.Flags().GetString("judge")
	archive, _ := cmd.Flags().GetBool("archive")

	loaded, err := caseloader.LoadFile(inputPath)
	if err != nil {
		return err
	}
	for _, rej := range loaded.Rejected {
		fmt.Fprintf(os.Stderr, "skipping %s\n", rej)
	}
	if len(loaded.Cases) == 0 {
		return fmt.Errorf("no valid test cases in %s", inputPath)
	}

	judge, err := buildJudge(judgeBackend)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(loaded.Cases),
		progressbar.OptionSetDescription("evaluating"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	runner, err := buildRunner(judge, func(done, total int) {
		bar.Set(done)
	})
	if err != nil {
		return err
	}

	batch, err := runner.Run(cmd.Context(), loaded.Cases)
	if err != nil {
		return err
	}

	aggregator := evaluation.NewAggregator(
		evaluation.WithPassThreshold(viper.GetFloat64("eval.threshold")),
	)
	summaries, err := aggregator.Aggregate(batch.Results)
	if err != nil {
		return err
	}

	data := report.Data{
		Name:              inputPath,
		Threshold:         aggregator.Threshold(),
		Cases:             loaded.Cases,
		Results:           batch.Results,
		Summaries:         summaries,
		Rejected:          batch.Rejected,
		HallucinationRate: aggregator.HallucinationRate(batch.Results),
		Elapsed:           batch.Elapsed,
	}

	rendered, err := renderReport(data, format)
	if err != nil {
		return err
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, rendered, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	} else {
		fmt.Print(string(rendered))
	}

	if archive {
		minioService, err := minioctrl.NewMinioService(
			viper.GetString("minio.endpoint"),
			viper.GetString("minio.access_key"),
			viper.GetString("minio.secret_key"),
			viper.GetString("minio.bucket"),
			viper.GetBool("minio.use_ssl"),
		)
		if err != nil {
			return err
		}
		objectName, err := minioService.PutReport(cmd.Context(), inputPath, format, rendered)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "report archived as %s\n", objectName)
	}

	return nil
}

func renderReport(data report.Data, format string) ([]byte, error) {
	switch format {
	case "md":
		return []byte(report.Markdown(data)), nil
	case "csv":
		var buf bytes.Buffer
		if err := report.WriteCSV(&buf, data.Results); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "json":
		var buf bytes.Buffer
		if err := report.WriteTraceJSON(&buf, data); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown report format %q (want md, csv or json)", format)
	}
}
