// Package main is the entry point for the tokibot CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tokibot/pkg/version"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tokibot",
	Short: "tokibot - a Telegram command bot",
	Long: `tokibot is a Telegram bot that dispatches messages and button presses to
commands, events and scheduled jobs defined in YAML handler files.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetFullVersion())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(handlersCmd)
	rootCmd.AddCommand(serviceCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
