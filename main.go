// Command plant-rover drives the plant-care rover.
package main

import (
	"fmt"
	"os"

	"plant-rover/cmd"
)

func main() {
	if err := cmd.RootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "plant-rover: %v\n", err)
		os.Exit(1)
	}
}
