package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"monsterlab/config"
	"monsterlab/ml"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe the saved model",
	RunE:  runInfo,
}

var infoPath string

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().StringVar(&infoPath, "model", "", "Model file (default: model.path)")
}

func runInfo(cmd *cobra.Command, args []string) error {
	return invoke(func(cfg *config.Config) error {
		path := infoPath
		if path == "" {
			path = cfg.Model.Path
		}
		m, err := ml.Load(path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, m.Describe())
		fmt.Fprintf(out, "Path:     %s\n", path)
		fmt.Fprintf(out, "Features: %s\n", strings.Join(m.Schema().Names(), ", "))
		fmt.Fprintf(out, "Classes:  %s\n", strings.Join(m.Classes(), ", "))
		return nil
	})
}
