// Package cmd provides the command-line interface for the simulator.
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use: "exesim",
	Short: "EXEsim estimates the steady-state throughput of a basic block " +
		"on an out-of-order processor.",
	Long: `EXEsim runs a basic block through a cycle-accurate model of a ` +
		`superscalar out-of-order pipeline. It reports how many cycles the ` +
		`block needs per iteration once the pipeline reaches steady state.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	// A .env file can set EXESIM_MONITOR_PORT and EXESIM_MONITOR_DEV.
	_ = godotenv.Load()

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
