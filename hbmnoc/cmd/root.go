// Package cmd provides the command-line interface for hbmnoc.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/hbmnoc/logging"
)

var (
	logLevel string
	logJSON  bool
	envFile  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hbmnoc",
	Short: "hbmnoc simulates a mesh network-on-chip in front of a banked HBM.",
	Long: `hbmnoc is a cycle-level simulator of a wormhole-routed 2D mesh ` +
		`that carries memory transactions between tiles and a banked HBM. ` +
		`It can run synthetic traffic, drive legacy split-transaction ` +
		`NIUs and print the effective configuration.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return logging.Setup(os.Stderr, logLevel, logJSON)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", "info",
		"Log level: trace, debug, info, warn or error.")
	pf.BoolVar(&logJSON, "log-json", false, "Write logs as JSON.")
	pf.StringVar(&envFile, "env", "",
		"A dotenv file with HBMNOC_* configuration overrides.")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
