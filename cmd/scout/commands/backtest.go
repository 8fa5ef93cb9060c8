package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/scout/internal/backtest"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay the in-or-out filter over history",
	Long: `Backtests the trend and momentum filter over daily history and
prints per-ticker CAGR, max drawdown, Sharpe, and trade counts as JSON.

Example:
  go run ./cmd/scout backtest --tickers AAPL,MSFT --years 5
  go run ./cmd/scout backtest --tickers CBA.AX --years 10`,
	RunE: runBacktest,
}

var (
	backtestTickers string
	backtestYears   int
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&backtestTickers, "tickers", "", "comma-separated tickers to backtest")
	backtestCmd.Flags().IntVar(&backtestYears, "years", 5, "lookback window in years")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	var tickers []string
	for _, t := range strings.Split(backtestTickers, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tickers = append(tickers, strings.ToUpper(t))
		}
	}
	if len(tickers) == 0 {
		return fmt.Errorf("nothing to backtest")
	}

	bt := backtest.New(a.strat, a.md, a.log)
	report := bt.RunMulti(cmd.Context(), tickers, backtestYears)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
