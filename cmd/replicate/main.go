package main

// ============================================================================
// couch-replicate entry point. All logic lives in internal/cli; main only
// maps errors to the process exit code (0 success, 1 failure).
// ============================================================================

import (
	"fmt"
	"os"

	"github.com/ChuLiYu/couch-replicate/internal/cli"
)

func main() {
	rootCmd := cli.BuildCLI()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
