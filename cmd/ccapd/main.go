package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ccapd",
	Short: "C-CAP Connect dashboard gateway",
	Long:  "ccapd serves the C-CAP Connect apprenticeship dashboard: it authenticates admins and students against the hosted C-CAP API, persists their sessions, and fronts the roster, announcement and notification views.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/ccapd.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
