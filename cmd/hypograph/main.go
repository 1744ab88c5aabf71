// hypograph: a hypothesis graph with evidence-driven confidence, served
// over MCP.
//
// Usage:
//
//	hypograph serve               # Start MCP server (stdio transport)
//	hypograph recalc              # Recompute every confidence from evidence
//	hypograph ancestors <id>      # Print the ancestors of a hypothesis
//	hypograph version
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
