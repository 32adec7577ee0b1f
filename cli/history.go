package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"monsterlab/db"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent training runs and predictions",
	RunE:  runHistory,
}

var (
	historyLimit       int
	historyPredictions bool
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum entries to show")
	historyCmd.Flags().BoolVar(&historyPredictions, "predictions", false, "Show predictions instead of training runs")
}

func runHistory(cmd *cobra.Command, args []string) error {
	return invoke(func(h *db.History) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		defer w.Flush()

		if historyPredictions {
			records, err := h.RecentPredictions(cmd.Context(), historyLimit)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "TIME\tLEVEL\tHEALTH\tENERGY\tSANITY\tLABEL\tCONFIDENCE")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%.0f\t%.2f\t%.2f\t%.2f\t%s\t%.2f%%\n",
					r.Timestamp.Format("2006-01-02 15:04:05"), r.Level, r.Health, r.Energy, r.Sanity,
					r.Label, r.Confidence*100)
			}
			return nil
		}

		logs, err := h.LoadTrainingLog(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "RUN\tTRAINED\tMODEL\tROWS\tACCURACY\tELAPSED")
		for _, l := range logs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f%%\t%dms\n",
				l.RunID, l.TrainedAt.Format("2006-01-02 15:04:05"), l.ModelName, l.DataPoints,
				l.Accuracy*100, l.ElapsedMS)
		}
		return nil
	})
}
