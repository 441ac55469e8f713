package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/hbmnoc/daisen"
	"github.com/sarchlab/hbmnoc/datarecording"
)

var (
	viewSQLite  string
	viewHTTP    string
	viewBrowser bool
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Serve the traces and samples of a recorded run in a browser.",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		server, err := openViewer(viewSQLite)
		if err != nil {
			return err
		}

		if viewBrowser {
			go func() {
				_ = browser.OpenURL(viewURL(viewHTTP))
			}()
		}

		return server.ListenAndServe(viewHTTP)
	},
}

func openViewer(file string) (*daisen.Server, error) {
	if file == "" {
		return nil, fmt.Errorf("view: --sqlite is required")
	}

	if _, err := os.Stat(file); err != nil {
		return nil, fmt.Errorf("view: %w", err)
	}

	return daisen.NewServer(datarecording.NewReader(file)), nil
}

func viewURL(addr string) string {
	if strings.HasPrefix(addr, ":") || strings.HasPrefix(addr, "0.0.0.0:") {
		addr = "localhost:" + addr[strings.LastIndex(addr, ":")+1:]
	}

	return "http://" + addr
}

func init() {
	f := viewCmd.Flags()
	f.StringVar(&viewSQLite, "sqlite", "",
		"The .sqlite3 file written by a run.")
	f.StringVar(&viewHTTP, "http", "0.0.0.0:3001",
		"HTTP service address (e.g., ':6060').")
	f.BoolVar(&viewBrowser, "browser", false,
		"Open the viewer in the default browser.")

	rootCmd.AddCommand(viewCmd)
}
