package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"monsterlab/dataset"
	"monsterlab/ml"
	"monsterlab/monster"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict a monster's rarity",
	Long: `Predict the rarity of a monster from its level, health, energy and
sanity. The saved model is used when present; otherwise a model is trained
from the store and saved first. Stats left at zero are drawn at random.

Examples:
  monsterlab predict --level 12 --health 140 --energy 95 --sanity 120`,
	RunE: runPredict,
}

var (
	predictLevel  int
	predictHealth float64
	predictEnergy float64
	predictSanity float64
)

func init() {
	rootCmd.AddCommand(predictCmd)
	predictCmd.Flags().IntVar(&predictLevel, "level", 0, "Monster level (1-20)")
	predictCmd.Flags().Float64Var(&predictHealth, "health", 0, "Monster health")
	predictCmd.Flags().Float64Var(&predictEnergy, "energy", 0, "Monster energy")
	predictCmd.Flags().Float64Var(&predictSanity, "sanity", 0, "Monster sanity")
}

func runPredict(cmd *cobra.Command, args []string) error {
	row := monster.NewGenerator(0).RandomFeatures()
	if predictLevel != 0 {
		row["Level"] = predictLevel
	}
	for column, v := range map[string]float64{"Health": predictHealth, "Energy": predictEnergy, "Sanity": predictSanity} {
		if v != 0 {
			row[column] = v
		}
	}

	return invoke(func(provider *ml.Provider, fetch ml.FetchFunc, logger *zap.Logger) error {
		defer logger.Sync()

		m, err := provider.LoadOrTrain(cmd.Context(), fetch)
		if err != nil {
			return err
		}
		prediction, err := provider.Predict(cmd.Context(), row)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, m.Describe())
		for _, name := range monster.FeatureColumns {
			fmt.Fprintf(out, "%-7s %s\n", name+":", dataset.ToString(row[name]))
		}
		fmt.Fprintf(out, "Prediction: %s (%.2f%%)\n", prediction.Label, prediction.Confidence*100)
		return nil
	})
}
