// Command docdetective answers questions about documents with citations.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/tkrief1/doc-detective/internal/adapters/driving/cli"
)

func main() {
	// A .env file is optional; it supplies API keys during development.
	_ = godotenv.Load()

	cli.SetBootstrap(wire)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
