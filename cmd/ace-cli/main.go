package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ace-cli",
	Short: "Run self-improving playbook adaptation loops",
	Long: `ace-cli drives an adaptation loop over a set of task samples: each sample
is attempted with the current playbook, judged, reflected on, and the
reflection is curated into playbook edits. The grown playbook is persisted
between runs.`,
	Version: "0.1.0",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
