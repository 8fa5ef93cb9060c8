package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a one-shot screen",
	Long: `Screens a set of tickers or universes once and prints the
ranked signals as JSON.

Example:
  go run ./cmd/scout scan --tickers AAPL,MSFT,NVDA
  go run ./cmd/scout scan --universes auto:sp500 --max 50
  go run ./cmd/scout scan --universes auto:asx200 --chunk 0:40`,
	RunE: runScan,
}

var (
	scanTickers   string
	scanUniverses string
	scanMax       int
	scanChunk     string
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanTickers, "tickers", "", "comma-separated tickers to screen")
	scanCmd.Flags().StringVar(&scanUniverses, "universes", "", "comma-separated universe names")
	scanCmd.Flags().IntVar(&scanMax, "max", 0, "cap on tickers screened (0 uses SCAN_MAX_TICKERS)")
	scanCmd.Flags().StringVar(&scanChunk, "chunk", "", "start:end slice of the sorted ticker list")
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()

	var tickers []string
	if scanTickers != "" {
		for _, t := range strings.Split(scanTickers, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tickers = append(tickers, t)
			}
		}
	} else {
		names := a.cfg.Scan.Universes
		if scanUniverses != "" {
			names = strings.Split(scanUniverses, ",")
		}
		tickers = a.resolver.Resolve(ctx, names)
	}
	if len(tickers) == 0 {
		return fmt.Errorf("nothing to screen")
	}

	signals, err := a.engine.Screen(ctx, tickers, scanMax, scanChunk)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(signals)
}
