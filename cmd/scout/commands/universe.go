package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// universeCmd groups the universe subcommands
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "Inspect and refresh ticker universes",
}

var universeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured and locally available universes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		fmt.Println("configured:")
		for _, name := range a.cfg.Scan.Universes {
			fmt.Printf("  %s\n", name)
		}
		fmt.Println("available:")
		for _, name := range a.resolver.LocalNames() {
			fmt.Printf("  %s\n", name)
		}
		return nil
	},
}

var universePeekCmd = &cobra.Command{
	Use:   "peek [name...]",
	Short: "Resolve universes and print their tickers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		tickers := a.resolver.Resolve(cmd.Context(), args)
		for _, t := range tickers {
			fmt.Println(t)
		}
		fmt.Printf("total: %d\n", len(tickers))
		return nil
	},
}

var universeRefreshCmd = &cobra.Command{
	Use:   "refresh [name...]",
	Short: "Force a re-fetch of universes, bypassing caches",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		for _, name := range args {
			tickers := a.resolver.Refresh(cmd.Context(), name)
			fmt.Printf("%s: %d tickers\n", name, len(tickers))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(universeCmd)
	universeCmd.AddCommand(universeListCmd)
	universeCmd.AddCommand(universePeekCmd)
	universeCmd.AddCommand(universeRefreshCmd)
}
