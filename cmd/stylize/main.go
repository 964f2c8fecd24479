// Command stylize runs the studio workflow from a terminal: list styles,
// probe the backend and transform a single image file.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
