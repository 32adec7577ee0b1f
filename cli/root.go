// Package cli 命令行入口
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "monsterlab",
	Short: "Monster dataset explorer and rarity classifier",
	Long: `monsterlab serves a small web application over a monster dataset.

It browses and charts the monsters held in the configured store, trains a
random forest that predicts a monster's rarity from its stats, and answers
predictions from the saved model.`,
	SilenceUsage: true,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./config.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging to the console, ignoring log settings in the config")
}
