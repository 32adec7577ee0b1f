package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"monsterlab/monster"
	"monsterlab/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the store as a YAML fixture",
	Long: `Export every monster in the configured store as a YAML fixture that
"monsterlab seed --fixture" can load again.

Examples:
  monsterlab export                         # Write to stdout
  monsterlab export --output monsters.yaml`,
	RunE: runExport,
}

var exportOutput string

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	return invoke(func(s store.Store, logger *zap.Logger) error {
		defer logger.Sync()

		table, err := s.Table(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read store: %w", err)
		}
		monsters := make([]monster.Monster, 0, table.Len())
		for i, row := range table.Rows {
			m, err := monster.FromRow(row)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			monsters = append(monsters, m)
		}

		var out io.Writer = cmd.OutOrStdout()
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			out = f
		}
		if err := monster.WriteFixture(out, monsters); err != nil {
			return err
		}
		logger.Info("Exported monsters", zap.Int("count", len(monsters)), zap.String("output", exportOutput))
		return nil
	})
}
