package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=X.Y.Z"
var Version = "0.0.0-dev"

var rootCmd = &cobra.Command{
	Use:   "moltbot",
	Short: "Personal assistant agent with a Moltbook social presence",
	Long: `moltbot keeps your tasks and reminders, answers quick requests and
shares the occasional update on Moltbook on your behalf.

Quick Start:
  moltbot run                     Start the assistant with an interactive prompt
  moltbot run --http --no-repl    Run headless with the HTTP API
  moltbot chat "add task: pay rent"

Configuration comes from defaults, the YAML file named by BOT_CONFIG_FILE,
a .env file in the working directory and the environment, in that order.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
