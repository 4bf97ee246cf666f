// Command ragdemo is the entry point for the RAGdemo document assistant.
// It provides a CLI interface (via Cobra) and an HTTP server exposing the
// chat and indexing API.
package main

import (
	"fmt"
	"os"

	"github.com/TURahim/RAGdemo/cmd/ragdemo/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
