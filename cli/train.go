package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"monsterlab/pipeline"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the rarity classifier from the store",
	Long: `Fetch every labeled monster from the configured store, report holdout
accuracy, train on the full dataset and save the model over model.path.

A running server with model.watch enabled picks up the new model.`,
	RunE: runTrain,
}

var trainJSON bool

func init() {
	rootCmd.AddCommand(trainCmd)
	trainCmd.Flags().BoolVar(&trainJSON, "json", false, "Print the training report as JSON")
}

func runTrain(cmd *cobra.Command, args []string) error {
	return invoke(func(trainer *pipeline.Trainer, logger *zap.Logger) error {
		defer logger.Sync()

		report, err := trainer.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("training failed: %w", err)
		}

		out := cmd.OutOrStdout()
		if trainJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		fmt.Fprintln(out, report.Description)
		fmt.Fprintf(out, "Rows:     %d\n", report.Rows)
		if report.Evaluated {
			fmt.Fprintf(out, "Accuracy: %.2f%%\n", report.Accuracy*100)
		} else {
			fmt.Fprintln(out, "Accuracy: not evaluated (too few rows)")
		}
		fmt.Fprintf(out, "Elapsed:  %s\n", report.Elapsed)
		if report.RunID != "" {
			fmt.Fprintf(out, "Run:      %s\n", report.RunID)
		}
		return nil
	})
}
