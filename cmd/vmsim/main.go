// Command vmsim runs a demand-paging simulation from the command line.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vmsim",
	Short: "vmsim simulates virtual memory with demand paging and swapping.",
	Long: `vmsim simulates the memory-management core of an operating ` +
		`system: virtual address translation, page faults, LRU eviction, ` +
		`and swap or file write-back under memory pressure.`,
}

// A .env file can predefine the VMSIM_* variables the flag defaults read.
// This init runs before the flag declarations in run.go.
func init() {
	_ = godotenv.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
