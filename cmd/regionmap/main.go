// Command regionmap decomposes game maps into connected regions.
package main

import (
	"os"

	"github.com/talgya/regionmap/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
