package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// queueCmd groups the scan queue subcommands
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage the crash-resumable scan queue",
}

var (
	queueUniverses string
	queueMax       int
)

var queuePrepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Load the queue from universes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		var names []string
		if queueUniverses != "" {
			names = strings.Split(queueUniverses, ",")
		}
		n, err := a.queue.Prepare(cmd.Context(), names, queueMax)
		if err != nil {
			return err
		}
		fmt.Printf("queued: %d\n", n)
		return nil
	},
}

var queueStepCmd = &cobra.Command{
	Use:   "step",
	Short: "Advance the queue by one ticker",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		res, err := a.queue.Step(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var queueStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		return printJSON(a.queue.Status())
	},
}

var queueResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Re-prepare with the previously used universes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		n, err := a.queue.Reset(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("queued: %d\n", n)
		return nil
	},
}

var queueResultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Print recorded signals ranked by score",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		return printJSON(a.queue.Results())
	},
}

var queueRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sweep loop in the foreground",
	Long: `Advances the queue continuously until interrupted, re-preparing
it whenever the backlog is exhausted. Equivalent to SCAN_BG=true under
the api command, but without the HTTP server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		fmt.Println("sweeping, Ctrl+C to stop")
		a.queue.RunLoop(cmd.Context())
		return nil
	},
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queuePrepareCmd)
	queueCmd.AddCommand(queueStepCmd)
	queueCmd.AddCommand(queueStatusCmd)
	queueCmd.AddCommand(queueResetCmd)
	queueCmd.AddCommand(queueResultsCmd)
	queueCmd.AddCommand(queueRunCmd)

	queuePrepareCmd.Flags().StringVar(&queueUniverses, "universes", "", "comma-separated universe names (default SCAN_UNIVERSES)")
	queuePrepareCmd.Flags().IntVar(&queueMax, "max", 0, "cap on queued tickers (0 uses SCAN_MAX_TICKERS)")
}
