package run

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/blockplan-io/blockplan/pkg/configuration"
	"github.com/blockplan-io/blockplan/pkg/probe"
)

var extractOutput string

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Derive storage configuration from probe data",
	Long: `extract reads a probe data snapshot and derives the storage
configuration that would recreate every device present in it, in
dependency order.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		raw, err := os.ReadFile(config.probeData)
		if err != nil {
			return err
		}
		data, err := probe.Load(raw)
		if err != nil {
			return err
		}

		strict := config.strict || configuration.StrictExtract()
		cfg, err := probe.Extract(data, strict)
		if err != nil {
			return err
		}

		out, err := yaml.Marshal(wrapItems(cfg.Items()))
		if err != nil {
			return err
		}
		if extractOutput == "" {
			fmt.Print(string(out))
			return nil
		}
		return os.WriteFile(extractOutput, out, 0644)
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "Write the configuration to this file instead of stdout")
	rootCmd.AddCommand(extractCmd)
}
