// Package main implements the mica CLI.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mica/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "mica",
	Short: "Contract compiler backend",
	Long:  `Mica lowers typed contract ASTs through a mid-level IR to an EraVM-style target module.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		mode, err := cmd.Flags().GetString("color")
		if err != nil {
			return err
		}
		return applyColorMode(mode)
	},
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(lowerCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().IntP("jobs", "j", 0, "parallel compile jobs (0 = GOMAXPROCS)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func applyColorMode(mode string) error {
	switch mode {
	case "auto":
		color.NoColor = !isTerminal(os.Stdout)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("unknown color mode %q (must be auto, on, or off)", mode)
	}
	return nil
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
