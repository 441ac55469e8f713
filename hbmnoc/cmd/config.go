package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var configConfigFlags configFlags

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as JSON.",
	Long: "`config` merges the defaults, the dotenv file, the HBMNOC_* " +
		"environment variables and the flags, validates the result and " +
		"prints it.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := configConfigFlags.loadConfig(cmd)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		return enc.Encode(cfg)
	},
}

func init() {
	configConfigFlags.register(configCmd)
	rootCmd.AddCommand(configCmd)
}
